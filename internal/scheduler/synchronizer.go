package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/Dan9191/bank-account/internal/account"
	"github.com/Dan9191/bank-account/internal/timers"
	"github.com/sirupsen/logrus"
)

// AccountLister lists the accounts to keep in sync
type AccountLister interface {
	Accounts() []*account.Account
}

// Notifier is told about accounts whose balance source had no value
type Notifier interface {
	SendSyncFailureAlert(accountID string, balance float64, cause error) error
}

// Synchronizer periodically synchronizes every account with its balance source
type Synchronizer struct {
	accounts  AccountLister
	scheduler timers.Scheduler
	notifier  Notifier
	log       *logrus.Logger

	// Timeout bounds a single account's synchronization; zero means no limit
	Timeout time.Duration
}

// NewSynchronizer creates a synchronizer. notifier may be nil.
func NewSynchronizer(accounts AccountLister, scheduler timers.Scheduler, notifier Notifier, log *logrus.Logger) *Synchronizer {
	return &Synchronizer{
		accounts:  accounts,
		scheduler: scheduler,
		notifier:  notifier,
		log:       log,
		Timeout:   10 * time.Second,
	}
}

// Start runs a first round after delay and then one round every interval.
// The returned Stopper cancels both.
func (s *Synchronizer) Start(ctx context.Context, delay, interval time.Duration) timers.Stopper {
	first := timers.DoStuffByTimeout(s.scheduler, func() { s.RunOnce(ctx) }, delay)
	every := timers.DoStuffByInterval(s.scheduler, func() { s.RunOnce(ctx) }, interval)
	s.log.Infof("Balance synchronization scheduled every %s", interval)
	return timers.StopFunc(func() {
		first.Stop()
		every.Stop()
	})
}

// RunOnce synchronizes all accounts and returns how many failed
func (s *Synchronizer) RunOnce(ctx context.Context) int {
	failed := 0
	for _, a := range s.accounts.Accounts() {
		if ctx.Err() != nil {
			return failed
		}
		if err := s.syncAccount(ctx, a); err != nil {
			failed++
		}
	}
	return failed
}

func (s *Synchronizer) syncAccount(parent context.Context, a *account.Account) error {
	ctx := parent
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.Timeout)
		defer cancel()
	}

	logger := s.log.WithField("account_id", a.ID())
	err := a.SynchronizeBalance(ctx)
	if err == nil {
		logger.Debugf("Balance synchronized to %.2f", a.Balance())
		return nil
	}

	logger.Errorf("Scheduled synchronization failed: %v", err)
	// no alerts while shutting down
	if parent.Err() != nil {
		return err
	}
	if s.notifier != nil && errors.Is(err, account.ErrSynchronizationFailed) {
		if nerr := s.notifier.SendSyncFailureAlert(a.ID(), a.Balance(), err); nerr != nil {
			logger.Warnf("Synchronization alert not delivered: %v", nerr)
		}
	}
	return err
}
