//go:build linux

package transport

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/momentics/hioload-rawsock/api"
	"github.com/momentics/hioload-rawsock/internal/descriptor"
	"github.com/momentics/hioload-rawsock/reactor"
)

func openFDs(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skipf("cannot inspect /proc/self/fd: %v", err)
	}
	return len(entries)
}

func requireRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("requires root for raw sockets")
	}
}

func newReactor(t testing.TB) api.Reactor {
	t.Helper()
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// linkPair builds two LinkSockets over a connected datagram pair, which has
// the unit-at-a-time and truncation semantics of a raw socket.
func linkPair(t testing.TB, r api.Reactor) (*LinkSocket, *LinkSocket) {
	t.Helper()
	a, b, err := descriptor.Pair()
	if err != nil {
		t.Fatal(err)
	}
	sa, err := newLinkSocket(a, r, InterfaceBinding{Name: "pair0", Index: 1}, EtherTypeAll, buildOptions(nil))
	if err != nil {
		_ = a.Close()
		_ = b.Close()
		t.Fatal(err)
	}
	sb, err := newLinkSocket(b, r, InterfaceBinding{Name: "pair1", Index: 2}, EtherTypeAll, buildOptions(nil))
	if err != nil {
		_ = sa.Close()
		_ = b.Close()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = sa.Close()
		_ = sb.Close()
	})
	return sa, sb
}

func hostIsLittleEndian() bool {
	return binary.NativeEndian.Uint16([]byte{1, 0}) == 1
}
