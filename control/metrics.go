// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Transfer counters for raw sockets and a registry that exposes them by name.

package control

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-rawsock/api"
)

// Counters tracks completed transfers per direction. All methods are safe
// for concurrent use; a nil *Counters discards updates.
type Counters struct {
	units  [2]atomic.Uint64
	bytes  [2]atomic.Uint64
	rearms [2]atomic.Uint64
	errors [2]atomic.Uint64
}

// Stats is a point-in-time copy of Counters.
type Stats struct {
	RxUnits  uint64 `json:"rx_units"`
	RxBytes  uint64 `json:"rx_bytes"`
	RxRearms uint64 `json:"rx_rearms"`
	RxErrors uint64 `json:"rx_errors"`
	TxUnits  uint64 `json:"tx_units"`
	TxBytes  uint64 `json:"tx_bytes"`
	TxRearms uint64 `json:"tx_rearms"`
	TxErrors uint64 `json:"tx_errors"`
}

// Transferred records one completed unit of n bytes.
func (c *Counters) Transferred(dir api.Direction, n int) {
	if c == nil || dir > api.DirWrite {
		return
	}
	c.units[dir].Add(1)
	c.bytes[dir].Add(uint64(n))
}

// Rearmed records a would-block attempt that cleared readiness.
func (c *Counters) Rearmed(dir api.Direction) {
	if c == nil || dir > api.DirWrite {
		return
	}
	c.rearms[dir].Add(1)
}

// Failed records a transfer that ended with an error.
func (c *Counters) Failed(dir api.Direction) {
	if c == nil || dir > api.DirWrite {
		return
	}
	c.errors[dir].Add(1)
}

// Snapshot returns the current values.
func (c *Counters) Snapshot() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		RxUnits:  c.units[api.DirRead].Load(),
		RxBytes:  c.bytes[api.DirRead].Load(),
		RxRearms: c.rearms[api.DirRead].Load(),
		RxErrors: c.errors[api.DirRead].Load(),
		TxUnits:  c.units[api.DirWrite].Load(),
		TxBytes:  c.bytes[api.DirWrite].Load(),
		TxRearms: c.rearms[api.DirWrite].Load(),
		TxErrors: c.errors[api.DirWrite].Load(),
	}
}

// MetricsRegistry holds named counters.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counters
	updated  time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*Counters),
	}
}

// Counters returns the counters registered under key, creating them on first use.
func (mr *MetricsRegistry) Counters(key string) *Counters {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	c, ok := mr.counters[key]
	if !ok {
		c = &Counters{}
		mr.counters[key] = c
		mr.updated = time.Now()
	}
	return c
}

// Keys returns registered names in sorted order.
func (mr *MetricsRegistry) Keys() []string {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	keys := make([]string, 0, len(mr.counters))
	for k := range mr.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetSnapshot returns the latest stats of every registered key.
func (mr *MetricsRegistry) GetSnapshot() map[string]Stats {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]Stats, len(mr.counters))
	for k, c := range mr.counters {
		out[k] = c.Snapshot()
	}
	return out
}

// Updated reports when the last key was registered.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}
