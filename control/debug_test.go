package control

import (
	"testing"

	"github.com/momentics/hioload-rawsock/api"
)

func TestDebugProbes_DumpState(t *testing.T) {
	dp := NewDebugProbes()
	mr := NewMetricsRegistry()
	mr.Counters("link/eth0").Transferred(api.DirRead, 64)
	dp.RegisterMetrics(mr)
	RegisterPlatformProbes(dp)

	state := dp.DumpState()
	sockets, ok := state["sockets"].(map[string]Stats)
	if !ok {
		t.Fatalf("sockets probe has type %T", state["sockets"])
	}
	if sockets["link/eth0"].RxBytes != 64 {
		t.Errorf("unexpected socket stats %+v", sockets)
	}
	if n, ok := state["platform.cpus"].(int); !ok || n < 1 {
		t.Errorf("unexpected cpu probe %v", state["platform.cpus"])
	}
}

func TestDebugProbes_ReplaceByName(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("x", func() any { return 1 })
	dp.RegisterProbe("x", func() any { return 2 })
	if got := dp.DumpState()["x"]; got != 2 {
		t.Errorf("expected replacement, got %v", got)
	}
}
