package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/Dan9191/bank-account/internal/account"
	"github.com/Dan9191/bank-account/internal/config"
	"github.com/Dan9191/bank-account/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// OperatorSubject is the JWT subject issued to the service operator
const OperatorSubject = "operator"

// Service handles business logic
type Service struct {
	mu       sync.RWMutex
	accounts map[string]*account.Account

	source account.BalanceSource
	log    *logrus.Logger
	config *config.Config
}

// NewService initializes a new service. Accounts it opens synchronize against source.
func NewService(source account.BalanceSource, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		accounts: make(map[string]*account.Account),
		source:   source,
		log:      log,
		config:   cfg,
	}
}

// Login checks the operator password and returns a JWT token
func (s *Service) Login(password string) (string, error) {
	if s.config.OperatorPasswordHash == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.OperatorPasswordHash), []byte(password)); err != nil {
		s.log.Warn("Operator login rejected")
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   OperatorSubject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Info("Operator logged in")
	return tokenString, nil
}

// CreateAccount opens an account with the given initial balance
func (s *Service) CreateAccount(ctx context.Context, balance float64) (*models.Account, error) {
	if math.IsNaN(balance) || math.IsInf(balance, 0) || balance < 0 {
		return nil, fmt.Errorf("%w: initial balance %v", account.ErrInvalidAmount, balance)
	}
	a := account.New(balance, s.source)

	s.mu.Lock()
	s.accounts[a.ID()] = a
	s.mu.Unlock()

	s.log.WithField("account_id", a.ID()).Infof("Account created with balance %.2f", balance)
	return view(a), nil
}

// GetAccount returns the current balance of an account
func (s *Service) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	a, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return view(a), nil
}

// Deposit credits an account
func (s *Service) Deposit(ctx context.Context, id string, amount float64) (*models.Account, error) {
	a, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if err := a.Deposit(amount); err != nil {
		s.log.WithField("account_id", id).Warnf("Deposit rejected: %v", err)
		return nil, err
	}
	s.log.WithField("account_id", id).Infof("Deposited %.2f", amount)
	return view(a), nil
}

// Withdraw debits an account
func (s *Service) Withdraw(ctx context.Context, id string, amount float64) (*models.Account, error) {
	a, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if err := a.Withdraw(amount); err != nil {
		s.log.WithField("account_id", id).Warnf("Withdrawal rejected: %v", err)
		return nil, err
	}
	s.log.WithField("account_id", id).Infof("Withdrew %.2f", amount)
	return view(a), nil
}

// Transfer moves amount between two accounts and returns both after the move
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount float64) (*models.Account, *models.Account, error) {
	from, err := s.find(fromID)
	if err != nil {
		return nil, nil, err
	}
	to, err := s.find(toID)
	if err != nil {
		return nil, nil, err
	}
	logger := s.log.WithFields(logrus.Fields{"from": fromID, "to": toID})
	if err := from.Transfer(amount, to); err != nil {
		logger.Warnf("Transfer rejected: %v", err)
		return nil, nil, err
	}
	logger.Infof("Transferred %.2f", amount)
	return view(from), view(to), nil
}

// Synchronize overwrites the local balance of an account with the balance source's value
func (s *Service) Synchronize(ctx context.Context, id string) (*models.Account, error) {
	a, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if err := a.SynchronizeBalance(ctx); err != nil {
		s.log.WithField("account_id", id).Errorf("Balance synchronization failed: %v", err)
		return nil, err
	}
	s.log.WithField("account_id", id).Infof("Balance synchronized to %.2f", a.Balance())
	return view(a), nil
}

// Accounts returns all registered accounts ordered by ID
func (s *Service) Accounts() []*account.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := lo.Keys(s.accounts)
	slices.Sort(ids)
	return lo.Map(ids, func(id string, _ int) *account.Account { return s.accounts[id] })
}

// Snapshot returns the balances of all accounts
func (s *Service) Snapshot() []models.Account {
	return lo.Map(s.Accounts(), func(a *account.Account, _ int) models.Account { return *view(a) })
}

// Restore registers the accounts of a snapshot, replacing accounts with the same ID
func (s *Service) Restore(snap models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pa := range snap.Accounts {
		s.accounts[pa.ID] = account.Restore(pa.ID, pa.Balance, s.source)
	}
	s.log.Infof("Restored %d accounts from snapshot", len(snap.Accounts))
}

func (s *Service) find(id string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return a, nil
}

func view(a *account.Account) *models.Account {
	return &models.Account{ID: a.ID(), Balance: a.Balance()}
}
