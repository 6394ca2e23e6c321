// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"context"
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-rawsock/api"
)

// Reactor is a deterministic api.Reactor. Readiness only changes when a test
// fires or schedules edges on a Registration.
type Reactor struct {
	mu          sync.Mutex
	regs        map[int]*Registration
	registerErr error
	closed      bool
}

// NewReactor creates a fake reactor with no registrations.
func NewReactor() *Reactor {
	return &Reactor{regs: make(map[int]*Registration)}
}

// SetRegisterError makes subsequent Register calls fail with err.
func (r *Reactor) SetRegisterError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerErr = err
}

// Register implements api.Reactor. New registrations start ready in both
// directions, so the first transfer attempt always reaches the descriptor.
func (r *Reactor) Register(fd int) (api.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, api.ErrClosed
	}
	if r.registerErr != nil {
		return nil, r.registerErr
	}
	g := newRegistration()
	r.regs[fd] = g
	return g, nil
}

// Registration returns the registration of fd, or nil.
func (r *Reactor) Registration(fd int) *Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.regs[fd]
}

// Close implements api.Reactor.
func (r *Reactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, g := range r.regs {
		_ = g.Close()
	}
	return nil
}

// Registration is a scripted api.Registration that records how it is used.
type Registration struct {
	mu        sync.Mutex
	ready     [2]bool
	tick      [2]uint64
	closed    bool
	wake      chan struct{}
	scheduled [2]*queue.Queue // edges delivered only once a waiter would block
	waits     [2]int
	clears    [2]int
}

func newRegistration() *Registration {
	return &Registration{
		ready:     [2]bool{true, true},
		tick:      [2]uint64{1, 1},
		wake:      make(chan struct{}),
		scheduled: [2]*queue.Queue{queue.New(), queue.New()},
	}
}

// Fire delivers a readiness edge for dir immediately.
func (g *Registration) Fire(dir api.Direction) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edgeLocked(dir)
}

// ScheduleEdges queues n edges for dir. Each is delivered when a waiter finds
// dir not ready, which lets tests drive the retry loop without goroutines.
func (g *Registration) ScheduleEdges(dir api.Direction, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 0; i < n; i++ {
		g.scheduled[dir].Add(dir)
	}
}

func (g *Registration) edgeLocked(dir api.Direction) {
	if g.closed {
		return
	}
	g.ready[dir] = true
	g.tick[dir]++
	close(g.wake)
	g.wake = make(chan struct{})
}

// Ready implements api.Registration.
func (g *Registration) Ready(ctx context.Context, dir api.Direction) (api.ReadyEvent, error) {
	if dir > api.DirWrite {
		return api.ReadyEvent{}, api.ErrInvalidArgument
	}
	g.mu.Lock()
	g.waits[dir]++
	g.mu.Unlock()

	for {
		g.mu.Lock()
		if g.closed {
			g.mu.Unlock()
			return api.ReadyEvent{}, api.ErrClosed
		}
		if g.ready[dir] {
			ev := api.ReadyEvent{Dir: dir, Tick: g.tick[dir]}
			g.mu.Unlock()
			return ev, nil
		}
		if g.scheduled[dir].Length() > 0 {
			g.scheduled[dir].Remove()
			g.edgeLocked(dir)
			g.mu.Unlock()
			continue
		}
		wake := g.wake
		g.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return api.ReadyEvent{}, ctx.Err()
		}
	}
}

// ClearReady implements api.Registration.
func (g *Registration) ClearReady(ev api.ReadyEvent) {
	if ev.Dir > api.DirWrite {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clears[ev.Dir]++
	if g.tick[ev.Dir] == ev.Tick {
		g.ready[ev.Dir] = false
	}
}

// Close implements api.Registration.
func (g *Registration) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	close(g.wake)
	return nil
}

// IsReady reports the current readiness of dir.
func (g *Registration) IsReady(dir api.Direction) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready[dir]
}

// Waits returns how many Ready calls were made for dir.
func (g *Registration) Waits(dir api.Direction) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waits[dir]
}

// Clears returns how many ClearReady calls were made for dir.
func (g *Registration) Clears(dir api.Direction) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clears[dir]
}

// Closed reports whether Close was called.
func (g *Registration) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
