package account

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the current balance
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransferFailed is returned when source and target are the same account
	ErrTransferFailed = errors.New("transfer failed")
	// ErrSynchronizationFailed is returned when the balance source yields no value
	ErrSynchronizationFailed = errors.New("synchronization failed")
	// ErrInvalidAmount is returned for amounts that are not finite and positive
	ErrInvalidAmount = errors.New("invalid amount")
)

// Account holds a balance that is never driven negative by its own debits.
type Account struct {
	id     string
	source BalanceSource

	mu      sync.Mutex
	balance float64

	// syncMu serializes SynchronizeBalance calls on the same account
	syncMu sync.Mutex
}

// New creates an account with a fresh ID. A nil source falls back to RandomSource.
func New(balance float64, source BalanceSource) *Account {
	return Restore(uuid.NewString(), balance, source)
}

// Restore creates an account with a known ID, e.g. when loading a snapshot
func Restore(id string, balance float64, source BalanceSource) *Account {
	if source == nil {
		source = RandomSource{}
	}
	return &Account{id: id, balance: balance, source: source}
}

func (a *Account) ID() string {
	return a.id
}

// Balance returns the current balance
func (a *Account) Balance() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Deposit increases the balance by amount
func (a *Account) Deposit(amount float64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.balance + amount
	if math.IsInf(next, 0) {
		return fmt.Errorf("%w: deposit %v overflows balance of %s", ErrInvalidAmount, amount, a.id)
	}
	a.balance = next
	return nil
}

// Withdraw decreases the balance by amount
func (a *Account) Withdraw(amount float64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if amount > a.balance {
		return fmt.Errorf("withdraw %.2f from %s: %w", amount, a.id, ErrInsufficientFunds)
	}
	a.balance -= amount
	return nil
}

// Transfer moves amount from a to target. Either both balances change or neither does.
func (a *Account) Transfer(amount float64, target *Account) error {
	if target == a {
		return fmt.Errorf("transfer to the same account %s: %w", a.id, ErrTransferFailed)
	}
	if target == nil {
		return fmt.Errorf("transfer to nil account: %w", ErrTransferFailed)
	}
	// Lock ordering relies on distinct IDs.
	if target.id == a.id {
		return fmt.Errorf("transfer between two instances of account %s: %w", a.id, ErrTransferFailed)
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	// Lock in ID order so that opposite transfers cannot deadlock.
	first, second := a, target
	if second.id < first.id {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if amount > a.balance {
		return fmt.Errorf("transfer %.2f from %s to %s: %w", amount, a.id, target.id, ErrInsufficientFunds)
	}
	credited := target.balance + amount
	if math.IsInf(credited, 0) {
		return fmt.Errorf("%w: transfer %v overflows balance of %s", ErrInvalidAmount, amount, target.id)
	}
	a.balance -= amount
	target.balance = credited
	return nil
}

// FetchBalance asks the balance source for the account's external balance.
// The boolean is false when the source has no value for this account.
func (a *Account) FetchBalance(ctx context.Context) (float64, bool, error) {
	return a.source.FetchBalance(ctx, a.id)
}

// SynchronizeBalance overwrites the balance with the value from the balance source
func (a *Account) SynchronizeBalance(ctx context.Context) error {
	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	balance, ok, err := a.FetchBalance(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSynchronizationFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: no balance for account %s", ErrSynchronizationFailed, a.id)
	}
	if math.IsNaN(balance) || math.IsInf(balance, 0) {
		return fmt.Errorf("%w: non-finite balance for account %s", ErrSynchronizationFailed, a.id)
	}

	a.mu.Lock()
	a.balance = balance
	a.mu.Unlock()
	return nil
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	return nil
}
