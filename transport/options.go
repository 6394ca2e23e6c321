// File: transport/options.go
// Package transport defines functional options for raw socket construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"github.com/momentics/hioload-rawsock/control"
	"go.uber.org/zap"
	"golang.org/x/net/bpf"
)

const defaultIPProto = 255 // IPPROTO_RAW

type options struct {
	log     *zap.Logger
	stats   *control.Counters
	filter  []bpf.Instruction
	ipProto int
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop(), ipProto: defaultIPProto}
	for _, opt := range opts {
		opt(&o)
	}
	if o.stats == nil {
		o.stats = &control.Counters{}
	}
	return o
}

// Option customizes socket initialization.
type Option func(*options)

// WithLogger sets the logger for socket lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithCounters makes the socket report transfers into c, typically one
// obtained from a control.MetricsRegistry.
func WithCounters(c *control.Counters) Option {
	return func(o *options) {
		o.stats = c
	}
}

// WithFilter attaches a classic BPF program to a LinkSocket before it is
// bound, so no unfiltered frame is ever queued. Ignored by NetworkSocket.
func WithFilter(prog ...bpf.Instruction) Option {
	return func(o *options) {
		o.filter = append(o.filter[:0:0], prog...)
	}
}

// WithProtocol sets the IP protocol number of a NetworkSocket. The default,
// IPPROTO_RAW, can send any protocol but the kernel delivers no received
// packets to it; capture needs a concrete protocol such as IPPROTO_UDP.
// Ignored by LinkSocket.
func WithProtocol(proto int) Option {
	return func(o *options) {
		o.ipProto = proto
	}
}
