//go:build linux

// File: transport/transfer_linux.go
// Author: momentics <momentics@gmail.com>
//
// Readiness-driven transfer: await ready -> one attempt -> done, re-arm or fail.

package transport

import (
	"context"
	"errors"

	"github.com/momentics/hioload-rawsock/api"
	"github.com/momentics/hioload-rawsock/control"
	"golang.org/x/sys/unix"
)

// outcome of one non-blocking attempt.
type outcome int

const (
	outcomeDone  outcome = iota
	outcomeRearm         // would block: readiness was stale, clear it and wait for a new edge
	outcomeRetry         // interrupted before transferring anything
	outcomeFail
)

func classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeDone
	case errors.Is(err, unix.EAGAIN):
		return outcomeRearm
	case errors.Is(err, unix.EINTR):
		return outcomeRetry
	default:
		return outcomeFail
	}
}

// transfer runs attempt once per readiness report until it completes or
// fails. Cancelling ctx while waiting returns ctx.Err() with nothing transferred.
func transfer(ctx context.Context, reg api.Registration, dir api.Direction, stats *control.Counters,
	op string, attempt func() (int, error)) (int, error) {
	for {
		ev, err := reg.Ready(ctx, dir)
		if err != nil {
			return 0, err
		}
		n, err := attempt()
		switch classify(err) {
		case outcomeDone:
			stats.Transferred(dir, n)
			return n, nil
		case outcomeRearm:
			stats.Rearmed(dir)
			reg.ClearReady(ev)
		case outcomeRetry:
		default:
			stats.Failed(dir)
			return 0, transferError(op, err)
		}
	}
}

func transferError(op string, err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return err
	}
	return api.OSError(op, err)
}
