//go:build linux

// File: transport/network_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Network-layer raw IP socket with header inclusion, bound to one device.

package transport

import (
	"context"

	"github.com/momentics/hioload-rawsock/api"
	"github.com/momentics/hioload-rawsock/internal/descriptor"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// NetworkSocket receives and sends raw IP packets on one interface. Header
// inclusion is always enabled: buffers carry the IP header in both directions.
type NetworkSocket struct {
	*socketCore
	binding InterfaceBinding
	family  Family
	proto   int
}

type familyParams struct {
	af       int
	level    int
	hdrincl  int
	optName  string
	wildcard unix.Sockaddr
}

func paramsFor(f Family) (familyParams, error) {
	switch f {
	case FamilyIPv4:
		return familyParams{
			af: unix.AF_INET, level: unix.SOL_IP, hdrincl: unix.IP_HDRINCL,
			optName: "IP_HDRINCL", wildcard: &unix.SockaddrInet4{},
		}, nil
	case FamilyIPv6:
		return familyParams{
			af: unix.AF_INET6, level: unix.SOL_IPV6, hdrincl: unix.IPV6_HDRINCL,
			optName: "IPV6_HDRINCL", wildcard: &unix.SockaddrInet6{},
		}, nil
	}
	return familyParams{}, api.NewError(api.ErrCodeInvalidArgument, "unsupported address family").
		WithContext("family", int(f))
}

// NewNetworkSocket opens a raw IP socket of the given family restricted to
// ifname. Setup runs in a fixed order: SO_BINDTODEVICE, header inclusion,
// bind to the wildcard address. Any failure releases the socket.
func NewNetworkSocket(r api.Reactor, ifname string, family Family, opts ...Option) (*NetworkSocket, error) {
	o := buildOptions(opts)
	p, err := paramsFor(family)
	if err != nil {
		return nil, err
	}

	if err := descriptor.CheckDeviceName(ifname); err != nil {
		return nil, err
	}

	d, err := descriptor.Open(p.af, unix.SOCK_RAW, o.ipProto)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	if err := d.BindToDevice(ifname); err != nil {
		return nil, err
	}
	if err := d.SetInt(p.level, p.hdrincl, 1, p.optName); err != nil {
		return nil, err
	}
	if err := d.Bind(p.wildcard); err != nil {
		return nil, err
	}

	s, err := newNetworkSocket(d, r, InterfaceBinding{Name: ifname}, family, o)
	if err != nil {
		return nil, err
	}
	ok = true
	o.log.Debug("network socket opened",
		zap.String("interface", ifname),
		zap.Stringer("family", family),
		zap.Int("protocol", o.ipProto),
		zap.Int("fd", d.Fd()))
	return s, nil
}

func newNetworkSocket(ep endpoint, r api.Reactor, b InterfaceBinding, f Family, o options) (*NetworkSocket, error) {
	core, err := newSocketCore(ep, r, o)
	if err != nil {
		return nil, err
	}
	core.log = core.log.With(zap.String("socket", "network"), zap.String("interface", b.Name))
	return &NetworkSocket{socketCore: core, binding: b, family: f, proto: o.ipProto}, nil
}

// NewNetworkSocketV4 opens an IPv4 raw socket on ifname.
func NewNetworkSocketV4(r api.Reactor, ifname string, opts ...Option) (*NetworkSocket, error) {
	return NewNetworkSocket(r, ifname, FamilyIPv4, opts...)
}

// NewNetworkSocketV6 opens an IPv6 raw socket on ifname.
func NewNetworkSocketV6(r api.Reactor, ifname string, opts ...Option) (*NetworkSocket, error) {
	return NewNetworkSocket(r, ifname, FamilyIPv6, opts...)
}

// RecvPacket receives exactly one IP packet, header included, into buf.
func (s *NetworkSocket) RecvPacket(ctx context.Context, buf []byte) (int, error) {
	return s.recv(ctx, buf, "recv packet")
}

type sendToer interface {
	SendTo(b []byte, to unix.Sockaddr) (int, error)
}

// SendPacket sends one complete IP packet. The destination is read from the
// packet's own header, since the socket is not connected.
func (s *NetworkSocket) SendPacket(ctx context.Context, pkt []byte) (int, error) {
	to, err := destination(s.family, pkt)
	if err != nil {
		return 0, err
	}
	st, ok := s.ep.(sendToer)
	if !ok {
		return 0, api.ErrNotSupported
	}
	return transfer(ctx, s.reg, api.DirWrite, s.stats, "send packet", func() (int, error) {
		return st.SendTo(pkt, to)
	})
}

// destination extracts the destination address of a header-included packet.
func destination(f Family, pkt []byte) (unix.Sockaddr, error) {
	switch f {
	case FamilyIPv4:
		if len(pkt) < 20 || pkt[0]>>4 != 4 {
			return nil, invalidPacket(f, len(pkt))
		}
		sa := &unix.SockaddrInet4{}
		copy(sa.Addr[:], pkt[16:20])
		return sa, nil
	case FamilyIPv6:
		if len(pkt) < 40 || pkt[0]>>4 != 6 {
			return nil, invalidPacket(f, len(pkt))
		}
		sa := &unix.SockaddrInet6{}
		copy(sa.Addr[:], pkt[24:40])
		return sa, nil
	}
	return nil, api.ErrNotSupported
}

func invalidPacket(f Family, n int) error {
	return api.NewError(api.ErrCodeInvalidArgument, "packet does not carry a valid IP header").
		WithContext("family", f.String()).
		WithContext("length", n)
}

// Binding returns the interface the socket is bound to.
func (s *NetworkSocket) Binding() InterfaceBinding { return s.binding }

// Family returns the IP version of the socket.
func (s *NetworkSocket) Family() Family { return s.family }

// Protocol returns the IP protocol number the socket was opened with.
func (s *NetworkSocket) Protocol() int { return s.proto }
