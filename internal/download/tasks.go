package download

import (
	"context"
	"sync"
	"time"
)

// taskSet tracks cancellable background work so it can all be stopped at
// shutdown.
type taskSet struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	live   int
	closed bool
}

func newTaskSet() *taskSet {
	ctx, cancel := context.WithCancel(context.Background())
	return &taskSet{ctx: ctx, cancel: cancel}
}

// start registers one task. The returned done func is safe to call more
// than once. ok is false after shutdown.
func (s *taskSet) start() (ctx context.Context, done func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, false
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.live++
	s.wg.Add(1)

	var once sync.Once
	done = func() {
		once.Do(func() {
			cancel()
			s.mu.Lock()
			s.live--
			s.mu.Unlock()
			s.wg.Done()
		})
	}
	return ctx, done, true
}

// after runs fn once d has elapsed unless the set is shut down first.
func (s *taskSet) after(d time.Duration, fn func()) bool {
	ctx, done, ok := s.start()
	if !ok {
		return false
	}

	timer := time.AfterFunc(d, func() {
		defer done()
		if ctx.Err() == nil {
			fn()
		}
	})
	go func() {
		<-ctx.Done()
		if timer.Stop() {
			done()
		}
	}()
	return true
}

// Len returns how many tasks are still registered.
func (s *taskSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// shutdown cancels every task and waits up to grace for them to finish.
// It reports whether they all did.
func (s *taskSet) shutdown(grace time.Duration) bool {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return true
	case <-time.After(grace):
		return false
	}
}
