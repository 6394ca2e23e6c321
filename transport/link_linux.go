//go:build linux

// File: transport/link_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Link-layer raw socket (AF_PACKET/SOCK_RAW) bound to one interface.

package transport

import (
	"context"
	"encoding/binary"

	"github.com/momentics/hioload-rawsock/api"
	"github.com/momentics/hioload-rawsock/internal/descriptor"
	"github.com/momentics/hioload-rawsock/internal/netif"
	"go.uber.org/zap"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// LinkSocket captures and injects whole link-layer frames on one interface.
// Received frames include the link-layer header; sent frames must carry it.
type LinkSocket struct {
	*socketCore
	binding   InterfaceBinding
	etherType EtherType
}

// NewLinkSocket opens a link-layer socket on ifname that receives frames
// whose EtherType matches etherType. The interface is resolved before any
// socket is created; an unknown name fails with api.ErrNotFound.
func NewLinkSocket(r api.Reactor, ifname string, etherType EtherType, opts ...Option) (*LinkSocket, error) {
	o := buildOptions(opts)

	iface, err := netif.Resolve(ifname)
	if err != nil {
		return nil, err
	}
	var prog []bpf.RawInstruction
	if len(o.filter) > 0 {
		if prog, err = bpf.Assemble(o.filter); err != nil {
			return nil, api.NewError(api.ErrCodeInvalidArgument, "assemble socket filter").WithCause(err)
		}
	}

	// Protocol 0 queues nothing until bind sets the EtherType, so frames from
	// other interfaces never reach the socket.
	d, err := descriptor.Open(unix.AF_PACKET, unix.SOCK_RAW, 0)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	if err := d.AttachFilter(prog); err != nil {
		return nil, err
	}
	sll := &unix.SockaddrLinklayer{Protocol: htons(uint16(etherType)), Ifindex: iface.Index}
	if err := d.Bind(sll); err != nil {
		return nil, err
	}

	binding := InterfaceBinding{Name: iface.Name, Index: iface.Index}
	s, err := newLinkSocket(d, r, binding, etherType, o)
	if err != nil {
		return nil, err
	}
	ok = true
	o.log.Debug("link socket opened",
		zap.Stringer("interface", binding),
		zap.Stringer("ethertype", etherType),
		zap.Int("fd", d.Fd()))
	return s, nil
}

func newLinkSocket(ep endpoint, r api.Reactor, b InterfaceBinding, et EtherType, o options) (*LinkSocket, error) {
	core, err := newSocketCore(ep, r, o)
	if err != nil {
		return nil, err
	}
	core.log = core.log.With(zap.String("socket", "link"), zap.String("interface", b.Name))
	return &LinkSocket{socketCore: core, binding: b, etherType: et}, nil
}

// NewLinkSocketAll captures frames of every EtherType.
func NewLinkSocketAll(r api.Reactor, ifname string, opts ...Option) (*LinkSocket, error) {
	return NewLinkSocket(r, ifname, EtherTypeAll, opts...)
}

// NewLinkSocketIPv4 captures IPv4 frames only.
func NewLinkSocketIPv4(r api.Reactor, ifname string, opts ...Option) (*LinkSocket, error) {
	return NewLinkSocket(r, ifname, EtherTypeIPv4, opts...)
}

// NewLinkSocketIPv6 captures IPv6 frames only.
func NewLinkSocketIPv6(r api.Reactor, ifname string, opts ...Option) (*LinkSocket, error) {
	return NewLinkSocket(r, ifname, EtherTypeIPv6, opts...)
}

// RecvFrame receives exactly one frame into buf and returns its length.
// Frames longer than buf are truncated by the kernel.
func (s *LinkSocket) RecvFrame(ctx context.Context, buf []byte) (int, error) {
	return s.recv(ctx, buf, "recv frame")
}

// SendFrame hands one complete frame to the kernel for transmission on the
// bound interface. There is no retry beyond waiting out would-block.
func (s *LinkSocket) SendFrame(ctx context.Context, frame []byte) (int, error) {
	return s.send(ctx, frame, "send frame")
}

// Binding returns the interface the socket is bound to.
func (s *LinkSocket) Binding() InterfaceBinding { return s.binding }

// EtherType returns the protocol filter applied at bind time.
func (s *LinkSocket) EtherType() EtherType { return s.etherType }

// htons converts v to network byte order as the kernel expects it in
// sockaddr_ll and socket(2).
func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.NativeEndian.Uint16(b[:])
}
