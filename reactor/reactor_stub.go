//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import "github.com/momentics/hioload-rawsock/api"

// New returns an error for unsupported platforms.
func New(opts ...Option) (api.Reactor, error) {
	return nil, api.ErrNotSupported
}
