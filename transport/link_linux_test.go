//go:build linux

package transport

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-rawsock/api"
	"github.com/momentics/hioload-rawsock/fake"
	"golang.org/x/net/bpf"
)

func TestLinkSocket_FakeRecvAndSend(t *testing.T) {
	r := fake.NewReactor()
	ep := fake.NewEndpoint(5)
	ep.AddRecvData([]byte("frame-1"))

	s, err := newLinkSocket(ep, r, InterfaceBinding{Name: "eth0", Index: 2}, EtherTypeIPv4, buildOptions(nil))
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 64)
	n, err := s.RecvFrame(context.Background(), buf)
	if err != nil || string(buf[:n]) != "frame-1" {
		t.Fatalf("RecvFrame: n=%d err=%v data=%q", n, err, buf[:n])
	}
	if n, err := s.SendFrame(context.Background(), []byte("out")); err != nil || n != 3 {
		t.Fatalf("SendFrame: n=%d err=%v", n, err)
	}
	if sent := ep.GetSentData(); len(sent) != 1 || string(sent[0]) != "out" {
		t.Errorf("unexpected sent data %q", sent)
	}
	if s.EtherType() != EtherTypeIPv4 || s.Binding().Index != 2 {
		t.Errorf("unexpected binding %v / %v", s.Binding(), s.EtherType())
	}
	st := s.Stats()
	if st.RxUnits != 1 || st.TxUnits != 1 || st.TxBytes != 3 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestLinkSocket_CloseReleasesOnce(t *testing.T) {
	r := fake.NewReactor()
	ep := fake.NewEndpoint(5)
	s, err := newLinkSocket(ep, r, InterfaceBinding{Name: "eth0"}, EtherTypeAll, buildOptions(nil))
	if err != nil {
		t.Fatal(err)
	}
	g := r.Registration(5)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if ep.CloseCalls() != 1 || !g.Closed() {
		t.Errorf("close calls=%d registration closed=%v", ep.CloseCalls(), g.Closed())
	}
	if _, err := s.RecvFrame(context.Background(), make([]byte, 8)); !errors.Is(err, api.ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

func TestLinkSocket_RegisterFailure(t *testing.T) {
	r := fake.NewReactor()
	boom := api.OSError("epoll_ctl add", errors.New("boom"))
	r.SetRegisterError(boom)
	ep := fake.NewEndpoint(5)
	if _, err := newLinkSocket(ep, r, InterfaceBinding{Name: "eth0"}, EtherTypeAll, buildOptions(nil)); err != boom {
		t.Fatalf("expected register error, got %v", err)
	}
	if _, err := newLinkSocket(ep, nil, InterfaceBinding{Name: "eth0"}, EtherTypeAll, buildOptions(nil)); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for nil reactor, got %v", err)
	}
}

func TestLinkSocket_RoundTrip(t *testing.T) {
	r := newReactor(t)
	a, b := linkPair(t, r)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	frame := bytes.Repeat([]byte{0xab, 0xcd}, 700)
	n, err := b.SendFrame(ctx, frame)
	if err != nil || n != len(frame) {
		t.Fatalf("SendFrame: n=%d err=%v", n, err)
	}
	buf := make([]byte, 2048)
	n, err = a.RecvFrame(ctx, buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf[:n], frame) {
		t.Fatalf("received %d bytes differing from the %d sent", n, len(frame))
	}
}

func TestLinkSocket_TruncatesToBuffer(t *testing.T) {
	r := newReactor(t)
	a, b := linkPair(t, r)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := b.SendFrame(ctx, make([]byte, 512)); err != nil {
		t.Fatal(err)
	}
	n, err := a.RecvFrame(ctx, make([]byte, 64))
	if err != nil {
		t.Fatalf("truncation surfaced as error: %v", err)
	}
	if n != 64 {
		t.Errorf("expected 64 bytes, got %d", n)
	}
}

func TestLinkSocket_RecvSuspendsWithoutSpinning(t *testing.T) {
	r := newReactor(t)
	a, b := linkPair(t, r)

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	buf := make([]byte, 64)
	go func() {
		n, err := a.RecvFrame(context.Background(), buf)
		done <- result{n, err}
	}()

	select {
	case res := <-done:
		t.Fatalf("RecvFrame returned early: %+v", res)
	case <-time.After(100 * time.Millisecond):
	}
	if rearms := a.Stats().RxRearms; rearms > 1 {
		t.Fatalf("receive spun while idle: %d re-arms", rearms)
	}

	if _, err := b.SendFrame(context.Background(), []byte("first")); err != nil {
		t.Fatal(err)
	}
	select {
	case res := <-done:
		if res.err != nil || string(buf[:res.n]) != "first" {
			t.Fatalf("unexpected result %+v %q", res, buf[:res.n])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RecvFrame not woken by arriving frame")
	}
}

func TestLinkSocket_AbandonedRecvLeavesSocketUsable(t *testing.T) {
	r := newReactor(t)
	a, b := linkPair(t, r)

	short, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := a.RecvFrame(short, make([]byte, 16)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	ctx, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	if _, err := b.SendFrame(ctx, []byte("after")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 16)
	n, err := a.RecvFrame(ctx, buf)
	if err != nil || string(buf[:n]) != "after" {
		t.Fatalf("socket unusable after abandoned receive: n=%d err=%v", n, err)
	}
}

func TestLinkSocket_ConcurrentReceiversShareQueue(t *testing.T) {
	r := newReactor(t)
	a, b := linkPair(t, r)
	const frames = 40
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		mu   sync.Mutex
		seen = make(map[byte]int)
		wg   sync.WaitGroup
	)
	recvCtx, stop := context.WithCancel(ctx)
	defer stop()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 8)
			for {
				n, err := a.RecvFrame(recvCtx, buf)
				if err != nil {
					return
				}
				mu.Lock()
				seen[buf[0]] += n
				total := len(seen)
				mu.Unlock()
				if total == frames {
					stop()
				}
			}
		}()
	}

	for i := 0; i < frames; i++ {
		if _, err := b.SendFrame(ctx, []byte{byte(i)}); err != nil {
			t.Fatalf("SendFrame %d: %v", i, err)
		}
	}
	wg.Wait()

	if len(seen) != frames {
		t.Fatalf("expected %d distinct frames, got %d", frames, len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("frame %d delivered %d times", id, n)
		}
	}
}

func TestLinkSocket_CloseWakesBlockedRecv(t *testing.T) {
	r := newReactor(t)
	a, _ := linkPair(t, r)

	errc := make(chan error, 1)
	go func() {
		_, err := a.RecvFrame(context.Background(), make([]byte, 8))
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errc:
		if !errors.Is(err, api.ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked receive not woken by Close")
	}
}

func TestNewLinkSocket_MissingInterface(t *testing.T) {
	r := newReactor(t)
	before := openFDs(t)

	_, err := NewLinkSocketAll(r, "nosuchif0")
	if errors.Is(err, api.ErrOS) {
		t.Skipf("netlink unavailable: %v", err)
	}
	if !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if after := openFDs(t); after != before {
		t.Errorf("fd leak: %d open before, %d after", before, after)
	}
}

func TestNewLinkSocket_BadFilter(t *testing.T) {
	r := newReactor(t)
	before := openFDs(t)
	// A 3-byte absolute load does not assemble.
	_, err := NewLinkSocketAll(r, "lo", WithFilter(bpf.LoadAbsolute{Off: 0, Size: 3}))
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, api.ErrOS) {
		t.Skipf("netlink unavailable: %v", err)
	}
	if !errors.Is(err, api.ErrInvalidArgument) && !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("unexpected error %v", err)
	}
	if after := openFDs(t); after != before {
		t.Errorf("fd leak: %d open before, %d after", before, after)
	}
}

func TestNewLinkSocket_Unprivileged(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root")
	}
	r := newReactor(t)
	before := openFDs(t)
	_, err := NewLinkSocketIPv4(r, "lo")
	if errors.Is(err, api.ErrNotFound) || (errors.Is(err, api.ErrOS) && !errors.Is(err, api.ErrPermissionDenied)) {
		t.Skipf("loopback not resolvable: %v", err)
	}
	if !errors.Is(err, api.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if after := openFDs(t); after != before {
		t.Errorf("fd leak: %d open before, %d after", before, after)
	}
}

func TestNewLinkSocket_AllFiltersOnLoopback(t *testing.T) {
	requireRoot(t)
	r := newReactor(t)
	ctors := map[string]func(api.Reactor, string, ...Option) (*LinkSocket, error){
		"all":  NewLinkSocketAll,
		"ipv4": NewLinkSocketIPv4,
		"ipv6": NewLinkSocketIPv6,
	}
	for name, ctor := range ctors {
		s, err := ctor(r, "lo")
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if s.Binding().Name != "lo" || s.Binding().Index == 0 {
			t.Errorf("%s: unexpected binding %v", name, s.Binding())
		}
		if s.EtherType().String() != name {
			t.Errorf("%s: unexpected ethertype %v", name, s.EtherType())
		}
		_ = s.Close()
	}
}

func TestHtons(t *testing.T) {
	v := htons(0x86DD)
	b := [2]byte{byte(v), byte(v >> 8)}
	if hostIsLittleEndian() {
		if b != [2]byte{0x86, 0xDD} {
			t.Errorf("htons(0x86DD) stored as % x", b)
		}
	} else if v != 0x86DD {
		t.Errorf("htons changed value on big endian host: %#x", v)
	}
}
