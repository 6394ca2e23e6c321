// File: reactor/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import "go.uber.org/zap"

const defaultMaxEvents = 128

type config struct {
	log       *zap.Logger
	maxEvents int
	pollerCPU int
}

func defaultConfig() config {
	return config{log: zap.NewNop(), maxEvents: defaultMaxEvents, pollerCPU: -1}
}

// Option customizes reactor initialization.
type Option func(*config)

// WithLogger sets the logger used for reactor lifecycle and poller failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMaxEvents overrides how many events one epoll_wait call may return.
func WithMaxEvents(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxEvents = n
		}
	}
}

// WithPollerCPU pins the poller goroutine's OS thread to cpu. A pin failure
// is logged and the poller runs unpinned. Negative values disable pinning.
func WithPollerCPU(cpu int) Option {
	return func(c *config) {
		c.pollerCPU = cpu
	}
}
