// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Named probes reporting live socket and host state.

package control

import (
	"sync"

	"github.com/momentics/hioload-rawsock/api"
)

var _ api.Debug = (*DebugProbes)(nil)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook, replacing any probe of that name.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any)
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

// RegisterMetrics exposes every counter of mr under the "sockets" probe.
func (dp *DebugProbes) RegisterMetrics(mr *MetricsRegistry) {
	dp.RegisterProbe("sockets", func() any { return mr.GetSnapshot() })
}
