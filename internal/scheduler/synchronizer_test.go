package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dan9191/bank-account/internal/account"
	"github.com/Dan9191/bank-account/internal/timers"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- mock implementations ----

type staticLister []*account.Account

func (l staticLister) Accounts() []*account.Account { return l }

type alert struct {
	accountID string
	balance   float64
	cause     error
}

type mockNotifier struct {
	alerts []alert
	err    error
}

func (m *mockNotifier) SendSyncFailureAlert(accountID string, balance float64, cause error) error {
	m.alerts = append(m.alerts, alert{accountID, balance, cause})
	return m.err
}

type scheduled struct {
	d       time.Duration
	f       func()
	repeat  bool
	stopped bool
}

type mockScheduler struct {
	jobs []*scheduled
}

func (m *mockScheduler) AfterFunc(d time.Duration, f func()) timers.Stopper {
	j := &scheduled{d: d, f: f}
	m.jobs = append(m.jobs, j)
	return timers.StopFunc(func() { j.stopped = true })
}

func (m *mockScheduler) Every(d time.Duration, f func()) timers.Stopper {
	j := &scheduled{d: d, f: f, repeat: true}
	m.jobs = append(m.jobs, j)
	return timers.StopFunc(func() { j.stopped = true })
}

// ---- helpers ----

func source(balance float64, ok bool, err error) account.BalanceSource {
	return account.BalanceSourceFunc(func(context.Context, string) (float64, bool, error) {
		return balance, ok, err
	})
}

func TestRunOnce(t *testing.T) {
	logger, _ := test.NewNullLogger()
	good := account.Restore("a", 100, source(10, true, nil))
	empty := account.Restore("b", 50, source(0, false, nil))
	notifier := &mockNotifier{}
	s := NewSynchronizer(staticLister{good, empty}, &mockScheduler{}, notifier, logger)

	failed := s.RunOnce(context.Background())

	assert.Equal(t, 1, failed)
	assert.Equal(t, 10.0, good.Balance())
	assert.Equal(t, 50.0, empty.Balance())
	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "b", notifier.alerts[0].accountID)
	assert.Equal(t, 50.0, notifier.alerts[0].balance)
	assert.ErrorIs(t, notifier.alerts[0].cause, account.ErrSynchronizationFailed)
}

func TestRunOnceNotifierErrorIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	notifier := &mockNotifier{err: errors.New("smtp down")}
	s := NewSynchronizer(staticLister{account.Restore("a", 1, source(0, false, nil))}, &mockScheduler{}, notifier, logger)

	assert.Equal(t, 1, s.RunOnce(context.Background()))
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "smtp down")
}

func TestRunOnceWithoutNotifier(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewSynchronizer(staticLister{account.Restore("a", 1, source(0, false, nil))}, &mockScheduler{}, nil, logger)

	assert.Equal(t, 1, s.RunOnce(context.Background()))
}

func TestRunOnceAppliesTimeout(t *testing.T) {
	logger, _ := test.NewNullLogger()
	slow := account.BalanceSourceFunc(func(ctx context.Context, _ string) (float64, bool, error) {
		<-ctx.Done()
		return 0, false, ctx.Err()
	})
	a := account.Restore("a", 5, slow)
	s := NewSynchronizer(staticLister{a}, &mockScheduler{}, nil, logger)
	s.Timeout = 10 * time.Millisecond

	assert.Equal(t, 1, s.RunOnce(context.Background()))
	assert.Equal(t, 5.0, a.Balance())
}

func TestRunOnceStopsWhenCanceled(t *testing.T) {
	logger, _ := test.NewNullLogger()
	calls := 0
	counting := account.BalanceSourceFunc(func(context.Context, string) (float64, bool, error) {
		calls++
		return 1, true, nil
	})
	s := NewSynchronizer(staticLister{account.Restore("a", 0, counting)}, &mockScheduler{}, nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0, s.RunOnce(ctx))
	assert.Equal(t, 0, calls)
}

func TestStart(t *testing.T) {
	logger, _ := test.NewNullLogger()
	a := account.Restore("a", 100, source(42, true, nil))
	sched := &mockScheduler{}
	s := NewSynchronizer(staticLister{a}, sched, nil, logger)

	stop := s.Start(context.Background(), 5*time.Second, time.Minute)

	require.Len(t, sched.jobs, 2)
	assert.Equal(t, 5*time.Second, sched.jobs[0].d)
	assert.False(t, sched.jobs[0].repeat)
	assert.Equal(t, time.Minute, sched.jobs[1].d)
	assert.True(t, sched.jobs[1].repeat)

	sched.jobs[1].f()
	assert.Equal(t, 42.0, a.Balance())

	stop.Stop()
	assert.True(t, sched.jobs[0].stopped)
	assert.True(t, sched.jobs[1].stopped)
}
