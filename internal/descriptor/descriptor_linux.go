//go:build linux

// File: internal/descriptor/descriptor_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Narrow capability type over one raw OS socket handle. All pointer/length
// plumbing of the socket syscalls stays inside this file.

package descriptor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/momentics/hioload-rawsock/api"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// Descriptor exclusively owns one non-blocking socket fd.
// The fd is valid from Open until Close; Close releases it exactly once.
type Descriptor struct {
	mu     sync.RWMutex
	fd     int
	family int
	sotype int
	proto  int
}

// Open creates a non-blocking, close-on-exec socket.
func Open(family, sotype, proto int) (*Descriptor, error) {
	fd, err := unix.Socket(family, sotype|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return nil, socketError(err, family, proto)
	}
	return &Descriptor{fd: fd, family: family, sotype: sotype, proto: proto}, nil
}

// Pair returns two connected datagram descriptors. Datagram boundaries and
// truncation behave like raw sockets, which makes the pair a stand-in for
// raw sockets where privilege is not available.
func Pair() (*Descriptor, *Descriptor, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, api.OSError("socketpair", err)
	}
	a := &Descriptor{fd: fds[0], family: unix.AF_UNIX, sotype: unix.SOCK_DGRAM}
	b := &Descriptor{fd: fds[1], family: unix.AF_UNIX, sotype: unix.SOCK_DGRAM}
	return a, b, nil
}

func socketError(err error, family, proto int) error {
	if err == unix.EPERM || err == unix.EACCES {
		return &api.Error{
			Code:    api.ErrCodePermissionDenied,
			Op:      "socket",
			Message: fmt.Sprintf("raw socket creation refused: %v", err),
			Err:     err,
			Context: map[string]any{"family": family, "protocol": proto},
		}
	}
	return api.OSError("socket", err).
		WithContext("family", family).
		WithContext("protocol", proto)
}

// Fd returns the raw handle for reactor registration, or -1 after Close.
func (d *Descriptor) Fd() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fd
}

// Family returns the address family the socket was opened with.
func (d *Descriptor) Family() int { return d.family }

// Protocol returns the protocol number the socket was opened with.
func (d *Descriptor) Protocol() int { return d.proto }

// with runs fn with the fd held open.
func (d *Descriptor) with(fn func(fd int) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.fd < 0 {
		return api.ErrClosed
	}
	return fn(d.fd)
}

// SetInt sets an integer socket option.
func (d *Descriptor) SetInt(level, opt, value int, name string) error {
	return d.with(func(fd int) error {
		if err := unix.SetsockoptInt(fd, level, opt, value); err != nil {
			return api.OSError("setsockopt "+name, err)
		}
		return nil
	})
}

// maxDeviceName is IFNAMSIZ minus the terminating NUL.
const maxDeviceName = 15

// CheckDeviceName rejects names SO_BINDTODEVICE cannot restrict to one
// interface. The kernel treats an empty name as "unbind", so it is refused.
func CheckDeviceName(ifname string) error {
	if ifname != "" && len(ifname) <= maxDeviceName && !strings.ContainsAny(ifname, "/\x00 ") {
		return nil
	}
	return &api.Error{
		Code:    api.ErrCodeDeviceBindFailed,
		Op:      "setsockopt",
		Message: fmt.Sprintf("SO_BINDTODEVICE(%s) failed: invalid interface name", ifname),
		Context: map[string]any{"interface": ifname},
	}
}

// BindToDevice restricts the socket to one interface (SO_BINDTODEVICE).
func (d *Descriptor) BindToDevice(ifname string) error {
	if err := CheckDeviceName(ifname); err != nil {
		return err
	}
	return d.with(func(fd int) error {
		if err := unix.BindToDevice(fd, ifname); err != nil {
			return &api.Error{
				Code:    api.ErrCodeDeviceBindFailed,
				Op:      "setsockopt",
				Message: fmt.Sprintf("SO_BINDTODEVICE(%s) failed: %v", ifname, err),
				Err:     err,
				Context: map[string]any{"interface": ifname},
			}
		}
		return nil
	})
}

// MaxFilterLen is the kernel's BPF_MAXINSNS limit for classic socket filters.
const MaxFilterLen = 4096

// AttachFilter installs a classic BPF program (SO_ATTACH_FILTER).
func (d *Descriptor) AttachFilter(prog []bpf.RawInstruction) error {
	if len(prog) == 0 {
		return nil
	}
	if len(prog) > MaxFilterLen {
		return api.NewError(api.ErrCodeInvalidArgument, "socket filter too long").
			WithContext("instructions", len(prog)).
			WithContext("max", MaxFilterLen)
	}
	filter := make([]unix.SockFilter, len(prog))
	for i, ins := range prog {
		filter[i] = unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	fprog := unix.SockFprog{Len: uint16(len(filter)), Filter: &filter[0]}
	return d.with(func(fd int) error {
		if err := unix.SetsockoptSockFprog(fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &fprog); err != nil {
			return api.OSError("setsockopt SO_ATTACH_FILTER", err)
		}
		return nil
	})
}

// Bind binds the socket to sa.
func (d *Descriptor) Bind(sa unix.Sockaddr) error {
	return d.with(func(fd int) error {
		if err := unix.Bind(fd, sa); err != nil {
			return api.OSError("bind", err)
		}
		return nil
	})
}

// Recv performs one non-blocking receive. The raw errno is returned so
// callers can tell would-block apart from fatal errors.
func (d *Descriptor) Recv(b []byte) (int, error) {
	var n int
	err := d.with(func(fd int) error {
		var rerr error
		n, rerr = unix.Read(fd, b)
		return rerr
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Send performs one non-blocking send on a bound or connected socket.
func (d *Descriptor) Send(b []byte) (int, error) {
	var n int
	err := d.with(func(fd int) error {
		var werr error
		n, werr = unix.Write(fd, b)
		return werr
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// SendTo performs one non-blocking sendto. Datagram sends are all or
// nothing, so success reports len(b).
func (d *Descriptor) SendTo(b []byte, to unix.Sockaddr) (int, error) {
	err := d.with(func(fd int) error {
		return unix.Sendto(fd, b, 0, to)
	})
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close releases the handle. Only the first call closes the fd.
func (d *Descriptor) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	fd := d.fd
	d.fd = -1
	if err := unix.Close(fd); err != nil {
		return api.OSError("close", err)
	}
	return nil
}
