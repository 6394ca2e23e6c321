// File: reactor/readiness.go
// Author: momentics <momentics@gmail.com>
//
// Per-direction readiness state shared by the poller goroutine and waiters.

package reactor

import (
	"context"
	"sync"

	"github.com/momentics/hioload-rawsock/api"
)

// dirState is the readiness of one direction of one descriptor.
// Every edge bumps tick and wakes all current waiters by closing wake.
type dirState struct {
	mu     sync.Mutex
	ready  bool
	tick   uint64
	closed bool
	wake   chan struct{}
}

func newDirState() *dirState {
	return &dirState{wake: make(chan struct{})}
}

// set records a new readiness edge.
func (s *dirState) set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ready = true
	s.tick++
	close(s.wake)
	s.wake = make(chan struct{})
}

// wait blocks until the direction is ready.
func (s *dirState) wait(ctx context.Context, dir api.Direction) (api.ReadyEvent, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return api.ReadyEvent{}, api.ErrClosed
		}
		if s.ready {
			ev := api.ReadyEvent{Dir: dir, Tick: s.tick}
			s.mu.Unlock()
			return ev, nil
		}
		wake := s.wake
		s.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return api.ReadyEvent{}, ctx.Err()
		}
	}
}

// clear drops readiness observed at tick. A newer edge wins.
func (s *dirState) clear(tick uint64) {
	s.mu.Lock()
	if s.tick == tick {
		s.ready = false
	}
	s.mu.Unlock()
}

// shutdown wakes all waiters; subsequent waits fail with ErrClosed.
func (s *dirState) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.ready = false
	close(s.wake)
}
