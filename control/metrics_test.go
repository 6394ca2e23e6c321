package control

import (
	"sync"
	"testing"

	"github.com/momentics/hioload-rawsock/api"
)

func TestCounters_Directions(t *testing.T) {
	var c Counters
	c.Transferred(api.DirRead, 60)
	c.Transferred(api.DirRead, 40)
	c.Rearmed(api.DirRead)
	c.Transferred(api.DirWrite, 14)
	c.Failed(api.DirWrite)

	s := c.Snapshot()
	if s.RxUnits != 2 || s.RxBytes != 100 || s.RxRearms != 1 || s.RxErrors != 0 {
		t.Errorf("unexpected rx stats %+v", s)
	}
	if s.TxUnits != 1 || s.TxBytes != 14 || s.TxRearms != 0 || s.TxErrors != 1 {
		t.Errorf("unexpected tx stats %+v", s)
	}
}

func TestCounters_NilSafe(t *testing.T) {
	var c *Counters
	c.Transferred(api.DirRead, 1)
	c.Rearmed(api.DirWrite)
	c.Failed(api.DirRead)
	if s := c.Snapshot(); s != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", s)
	}
}

func TestMetricsRegistry_SharedCounters(t *testing.T) {
	mr := NewMetricsRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mr.Counters("eth0/link").Transferred(api.DirRead, 10)
		}()
	}
	wg.Wait()

	snap := mr.GetSnapshot()
	if got := snap["eth0/link"].RxUnits; got != 8 {
		t.Errorf("expected 8 units, got %d", got)
	}
	if keys := mr.Keys(); len(keys) != 1 || keys[0] != "eth0/link" {
		t.Errorf("unexpected keys %v", keys)
	}
	if mr.Updated().IsZero() {
		t.Error("updated timestamp not set")
	}
}
