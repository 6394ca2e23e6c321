//go:build linux

// File: cmd/rawsockctl/capture.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/momentics/hioload-rawsock/api"
	"github.com/momentics/hioload-rawsock/pool"
	"github.com/momentics/hioload-rawsock/reactor"
	"github.com/momentics/hioload-rawsock/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// recvFunc receives one unit into buf.
type recvFunc func(ctx context.Context, buf []byte) (int, error)

// dumpBytes bounds the raw hex printed per unit when decoding is off.
const dumpBytes = 32

func newCaptureCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "capture",
		Short: "Print units received on an interface",
	}
	pf := c.PersistentFlags()
	pf.StringP("iface", "i", "", "interface to bind to")
	pf.IntP("count", "n", 0, "stop after this many units (0 = unlimited)")
	pf.Int("buffer-size", 1518, "receive buffer size; longer units are truncated")
	pf.BoolP("decode", "d", false, "summarise units with gopacket")
	pf.Duration("duration", 0, "stop after this long (0 = until interrupted)")

	link := &cobra.Command{
		Use:   "link",
		Short: "Capture link-layer frames (AF_PACKET)",
		Args:  cobra.NoArgs,
		RunE:  a.runCaptureLink,
	}
	link.Flags().String("ethertype", "all", "frames to capture (all|ipv4|ipv6)")

	ip := &cobra.Command{
		Use:   "ip",
		Short: "Capture IP packets with headers (raw IP socket)",
		Args:  cobra.NoArgs,
		RunE:  a.runCaptureIP,
	}
	ip.Flags().Int("family", 4, "IP version (4|6)")
	ip.Flags().Int("protocol", 255, "IP protocol number; 255 (raw) receives nothing")

	c.AddCommand(link, ip)
	return c
}

func parseEtherType(s string) (transport.EtherType, error) {
	switch s {
	case "all":
		return transport.EtherTypeAll, nil
	case "ipv4":
		return transport.EtherTypeIPv4, nil
	case "ipv6":
		return transport.EtherTypeIPv6, nil
	}
	return 0, fmt.Errorf("unknown ethertype %q", s)
}

// session opens a reactor and a context bounded by signals and --duration.
func (a *app) session(parent context.Context) (context.Context, context.CancelFunc, api.Reactor, error) {
	if a.cfg.Interface == "" {
		return nil, nil, nil, errors.New("--iface is required")
	}
	r, err := reactor.New(
		reactor.WithLogger(a.log),
		reactor.WithPollerCPU(a.cfg.Reactor.PollerCPU),
		reactor.WithMaxEvents(a.cfg.Reactor.MaxEvents))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("start reactor: %w", err)
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	cancel := stop
	if d := a.cfg.Capture.Duration; d > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, d)
		cancel = func() { tcancel(); stop() }
	}
	return ctx, cancel, r, nil
}

func (a *app) socketOptions(key string) []transport.Option {
	return []transport.Option{
		transport.WithLogger(a.log),
		transport.WithCounters(a.metrics.Counters(key)),
	}
}

func (a *app) runCaptureLink(cmd *cobra.Command, _ []string) error {
	et, err := parseEtherType(a.cfg.Capture.EtherType)
	if err != nil {
		return err
	}
	ctx, cancel, r, err := a.session(cmd.Context())
	if err != nil {
		return err
	}
	defer cancel()
	defer r.Close()

	key := "link/" + a.cfg.Interface
	s, err := transport.NewLinkSocket(r, a.cfg.Interface, et, a.socketOptions(key)...)
	if err != nil {
		return err
	}
	defer s.Close()
	a.log.Info("capturing frames", zap.Stringer("interface", s.Binding()), zap.Stringer("ethertype", et))
	return a.capture(ctx, s.RecvFrame, layers.LayerTypeEthernet)
}

func (a *app) runCaptureIP(cmd *cobra.Command, _ []string) error {
	family, first := transport.FamilyIPv4, layers.LayerTypeIPv4
	if a.cfg.Network.Family == 6 {
		family, first = transport.FamilyIPv6, layers.LayerTypeIPv6
	}
	ctx, cancel, r, err := a.session(cmd.Context())
	if err != nil {
		return err
	}
	defer cancel()
	defer r.Close()

	if a.cfg.Network.Protocol == syscall.IPPROTO_RAW {
		a.log.Warn("protocol 255 sockets only send; pass --protocol to receive")
	}
	key := fmt.Sprintf("ip%d/%s", a.cfg.Network.Family, a.cfg.Interface)
	opts := append(a.socketOptions(key), transport.WithProtocol(a.cfg.Network.Protocol))
	s, err := transport.NewNetworkSocket(r, a.cfg.Interface, family, opts...)
	if err != nil {
		return err
	}
	defer s.Close()
	a.log.Info("capturing packets",
		zap.String("interface", a.cfg.Interface),
		zap.Stringer("family", family),
		zap.Int("protocol", s.Protocol()))
	return a.capture(ctx, s.RecvPacket, first)
}

// capture prints received units until the count is reached or ctx ends, then
// dumps the debug probes, transfer counters included.
func (a *app) capture(ctx context.Context, recv recvFunc, first gopacket.LayerType) error {
	defer a.printStats()
	frames := pool.NewFramePool(a.cfg.Capture.BufferSize)
	for i := 0; a.cfg.Capture.Count == 0 || i < a.cfg.Capture.Count; i++ {
		buf := frames.Get()
		n, err := recv(ctx, buf)
		if err != nil {
			frames.Put(buf)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		a.printUnit(i, buf[:n], first)
		frames.Put(buf)
	}
	return nil
}

func (a *app) printUnit(i int, data []byte, first gopacket.LayerType) {
	if a.cfg.Capture.Decode {
		fmt.Fprintf(a.out, "%d\t%s\n", i, summarize(data, first))
		return
	}
	head := data
	if len(head) > dumpBytes {
		head = head[:dumpBytes]
	}
	fmt.Fprintf(a.out, "%d\t%d bytes\t%x\n", i, len(data), head)
}

func (a *app) printStats() {
	b, err := json.Marshal(a.probes.DumpState())
	if err != nil {
		a.log.Error("encode stats", zap.Error(err))
		return
	}
	fmt.Fprintf(a.errOut, "stats %s\n", b)
}
