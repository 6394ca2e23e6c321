//go:build linux

package affinity

import (
	"errors"
	"runtime"
	"testing"

	"github.com/momentics/hioload-rawsock/api"
	"golang.org/x/sys/unix"
)

// restore widens the calling thread back to cpus.
func restore(t *testing.T, cpus []int) {
	var set unix.CPUSet
	for _, c := range cpus {
		set.Set(c)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		t.Errorf("restore affinity: %v", err)
	}
}

func TestSetAffinity_PinsCallingThread(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	before, err := Allowed()
	if err != nil || len(before) == 0 {
		t.Fatalf("Allowed: %v %v", before, err)
	}
	defer restore(t, before)

	target := before[len(before)-1]
	if err := SetAffinity(target); err != nil {
		t.Fatal(err)
	}
	after, err := Allowed()
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 1 || after[0] != target {
		t.Errorf("expected only cpu %d, got %v", target, after)
	}
}

func TestSetAffinity_OutOfRange(t *testing.T) {
	if err := SetAffinity(-1); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
