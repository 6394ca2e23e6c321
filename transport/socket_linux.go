//go:build linux

// File: transport/socket_linux.go
// Author: momentics <momentics@gmail.com>
//
// State shared by link and network sockets: descriptor, registration, counters.

package transport

import (
	"context"
	"sync"

	"github.com/momentics/hioload-rawsock/api"
	"github.com/momentics/hioload-rawsock/control"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// endpoint is the descriptor capability a socket drives. *descriptor.Descriptor
// implements it; tests substitute fake.Endpoint.
type endpoint interface {
	Fd() int
	Recv(b []byte) (int, error)
	Send(b []byte) (int, error)
	Close() error
}

type socketCore struct {
	ep    endpoint
	reg   api.Registration
	stats *control.Counters
	log   *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// newSocketCore registers ep with r. It does not take ownership of ep on
// failure; the constructor's scoped release does.
func newSocketCore(ep endpoint, r api.Reactor, o options) (*socketCore, error) {
	if r == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "nil reactor")
	}
	reg, err := r.Register(ep.Fd())
	if err != nil {
		return nil, err
	}
	return &socketCore{ep: ep, reg: reg, stats: o.stats, log: o.log}, nil
}

func (c *socketCore) recv(ctx context.Context, buf []byte, op string) (int, error) {
	return transfer(ctx, c.reg, api.DirRead, c.stats, op, func() (int, error) {
		return c.ep.Recv(buf)
	})
}

func (c *socketCore) send(ctx context.Context, b []byte, op string) (int, error) {
	return transfer(ctx, c.reg, api.DirWrite, c.stats, op, func() (int, error) {
		return c.ep.Send(b)
	})
}

// Stats returns the socket's transfer counters.
func (c *socketCore) Stats() control.Stats {
	return c.stats.Snapshot()
}

// Close deregisters from the reactor, waking any blocked transfer with
// api.ErrClosed, then releases the descriptor. Only the first call acts.
func (c *socketCore) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = multierr.Append(c.reg.Close(), c.ep.Close())
		c.log.Debug("socket closed", zap.Error(c.closeErr))
	})
	return c.closeErr
}
