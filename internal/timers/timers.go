package timers

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Stopper cancels a scheduled callback
type Stopper interface {
	Stop()
}

// StopFunc adapts a function to Stopper
type StopFunc func()

func (f StopFunc) Stop() { f() }

// Scheduler runs callbacks once after a delay or repeatedly at a fixed interval
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
	Every(d time.Duration, f func()) Stopper
}

// DoStuffByTimeout schedules callback to run once after timeout
func DoStuffByTimeout(s Scheduler, callback func(), timeout time.Duration) Stopper {
	return s.AfterFunc(timeout, callback)
}

// DoStuffByInterval schedules callback to run every interval
func DoStuffByInterval(s Scheduler, callback func(), interval time.Duration) Stopper {
	return s.Every(interval, callback)
}

// CronScheduler runs interval jobs on a robfig/cron runner.
// Intervals are rounded down to whole seconds, with a minimum of one second.
type CronScheduler struct {
	cron *cron.Cron
	once sync.Once

	mu      sync.Mutex
	stopped bool
	running sync.WaitGroup
}

// NewCronScheduler creates a scheduler; the cron runner starts with the first interval job
func NewCronScheduler() *CronScheduler {
	return &CronScheduler{cron: cron.New()}
}

func (s *CronScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	t := time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.running.Add(1)
		s.mu.Unlock()
		defer s.running.Done()
		f()
	})
	return StopFunc(func() { t.Stop() })
}

func (s *CronScheduler) Every(d time.Duration, f func()) Stopper {
	id := s.cron.Schedule(cron.Every(d), cron.FuncJob(f))
	s.once.Do(s.cron.Start)
	return StopFunc(func() { s.cron.Remove(id) })
}

// Stop halts the cron runner and waits for running jobs to finish.
// One-shot callbacks that have not fired yet are dropped.
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.running.Wait()
}
