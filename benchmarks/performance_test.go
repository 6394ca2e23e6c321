//go:build linux

// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-rawsock components.

package benchmarks

import (
	"context"
	"testing"

	"github.com/momentics/hioload-rawsock/api"
	"github.com/momentics/hioload-rawsock/control"
	"github.com/momentics/hioload-rawsock/internal/descriptor"
	"github.com/momentics/hioload-rawsock/pool"
	"github.com/momentics/hioload-rawsock/reactor"
)

// BenchmarkFramePool tests receive buffer recycling.
func BenchmarkFramePool(b *testing.B) {
	fp := pool.NewFramePool(pool.DefaultFrameSize)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := fp.Get()
			buf[0] = 1
			fp.Put(buf)
		}
	})
}

// BenchmarkCountersTransferred tests contended counter updates.
func BenchmarkCountersTransferred(b *testing.B) {
	var c control.Counters

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.Transferred(api.DirRead, 64)
		}
	})
}

// BenchmarkReactorEdgeCycle measures one write, edge delivery, read and
// readiness clear over a datagram pair.
func BenchmarkReactorEdgeCycle(b *testing.B) {
	r, err := reactor.New()
	if err != nil {
		b.Fatal(err)
	}
	defer r.Close()
	rx, tx, err := descriptor.Pair()
	if err != nil {
		b.Fatal(err)
	}
	defer rx.Close()
	defer tx.Close()
	reg, err := r.Register(rx.Fd())
	if err != nil {
		b.Fatal(err)
	}
	defer reg.Close()

	ctx := context.Background()
	payload := make([]byte, 64)
	buf := make([]byte, 64)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tx.Send(payload); err != nil {
			b.Fatal(err)
		}
		for {
			ev, err := reg.Ready(ctx, api.DirRead)
			if err != nil {
				b.Fatal(err)
			}
			if _, err := rx.Recv(buf); err == nil {
				break
			}
			reg.ClearReady(ev)
		}
	}
}
