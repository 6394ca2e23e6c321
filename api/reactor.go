// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for readiness reactors that raw sockets
// suspend on between non-blocking transfer attempts.

package api

import "context"

// Direction selects the read or write half of a registration.
type Direction uint8

const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	if d == DirWrite {
		return "write"
	}
	return "read"
}

// ReadyEvent is a readiness observation. Tick identifies the edge that made
// the direction ready so a later ClearReady cannot erase a newer edge.
type ReadyEvent struct {
	Dir  Direction
	Tick uint64
}

// Reactor associates descriptors with an OS readiness notification mechanism.
type Reactor interface {
	// Register must start tracking readiness of fd in both directions.
	Register(fd int) (Registration, error)

	// Close must release the poller backend and wake all waiters with ErrClosed.
	Close() error
}

// Registration is the per-descriptor readiness state. Read and write
// directions are tracked independently.
type Registration interface {
	// Ready blocks until dir is ready, ctx is done, or the registration is closed.
	Ready(ctx context.Context, dir Direction) (ReadyEvent, error)

	// ClearReady marks ev's direction not-ready unless a newer edge arrived.
	ClearReady(ev ReadyEvent)

	// Close stops tracking the descriptor. It does not close the descriptor.
	Close() error
}
