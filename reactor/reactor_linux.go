//go:build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based readiness reactor.

package reactor

import (
	"context"
	"encoding/binary"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-rawsock/affinity"
	"github.com/momentics/hioload-rawsock/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	readEvents  = unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLHUP | unix.EPOLLERR
	writeEvents = unix.EPOLLOUT | unix.EPOLLHUP | unix.EPOLLERR
)

// epollReactor runs one poller goroutine that translates epoll edges into
// per-direction readiness of registered descriptors.
type epollReactor struct {
	epfd   int
	wakefd int      // eventfd used to stop the poller
	regs   sync.Map // map[int]*registration
	log    *zap.Logger

	maxEvents int
	pollerCPU int

	// mu orders interest-set changes against shutdown: once closed is set
	// under mu, no registration is stored and epfd is not touched again.
	mu        sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// New constructs the epoll reactor and starts its poller goroutine.
func New(opts ...Option) (api.Reactor, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, api.OSError("epoll_create1", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, api.OSError("eventfd", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, api.OSError("epoll_ctl add", err)
	}

	r := &epollReactor{
		epfd:      epfd,
		wakefd:    wakefd,
		log:       cfg.log,
		maxEvents: cfg.maxEvents,
		pollerCPU: cfg.pollerCPU,
		done:      make(chan struct{}),
	}
	go r.poll()
	r.log.Debug("reactor started", zap.Int("epfd", epfd))
	return r, nil
}

// Register adds fd to the epoll interest set in edge-triggered mode.
func (r *epollReactor) Register(fd int) (api.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return nil, api.ErrClosed
	}
	reg := newRegistration(r, fd)
	// Stored before EPOLL_CTL_ADD so the initial edge is never dropped.
	if _, loaded := r.regs.LoadOrStore(fd, reg); loaded {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "descriptor already registered").
			WithContext("fd", fd)
	}
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLRDHUP | unix.EPOLLET,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		r.regs.CompareAndDelete(fd, reg)
		return nil, api.OSError("epoll_ctl add", err).WithContext("fd", fd)
	}
	return reg, nil
}

func (r *epollReactor) unregister(reg *registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.regs.CompareAndDelete(reg.fd, reg) || r.closed.Load() {
		return nil
	}
	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, reg.fd, nil)
	if err != nil && err != unix.ENOENT && err != unix.EBADF {
		return api.OSError("epoll_ctl del", err).WithContext("fd", reg.fd)
	}
	return nil
}

// poll blocks in epoll_wait and dispatches edges until the wake eventfd fires.
func (r *epollReactor) poll() {
	defer close(r.done)
	defer r.shutdownAll()

	if r.pollerCPU >= 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := affinity.SetAffinity(r.pollerCPU); err != nil {
			r.log.Warn("poller not pinned", zap.Int("cpu", r.pollerCPU), zap.Error(err))
		}
	}

	events := make([]unix.EpollEvent, r.maxEvents)
	for {
		n, err := unix.EpollWait(r.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue // interrupted by signal, normal
			}
			r.log.Error("epoll wait failed", zap.Error(err))
			return
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == r.wakefd {
				return
			}
			val, ok := r.regs.Load(fd)
			if !ok {
				continue
			}
			val.(*registration).dispatch(events[i].Events)
		}
	}
}

func (r *epollReactor) shutdownAll() {
	r.markClosed()
	r.regs.Range(func(k, v any) bool {
		v.(*registration).shutdown()
		r.regs.Delete(k)
		return true
	})
}

// Close stops the poller, wakes every waiter with ErrClosed and releases the
// epoll and eventfd descriptors. Registered descriptors are not closed.
func (r *epollReactor) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.markClosed()
		var one [8]byte
		binary.NativeEndian.PutUint64(one[:], 1)
		if _, werr := unix.Write(r.wakefd, one[:]); werr != nil {
			err = api.OSError("eventfd write", werr)
			return
		}
		<-r.done
		err = multierr.Combine(closeFD("close epoll", r.epfd), closeFD("close eventfd", r.wakefd))
		r.log.Debug("reactor closed", zap.Int("epfd", r.epfd))
	})
	return err
}

func (r *epollReactor) markClosed() {
	r.mu.Lock()
	r.closed.Store(true)
	r.mu.Unlock()
}

func closeFD(op string, fd int) error {
	if err := unix.Close(fd); err != nil {
		return api.OSError(op, err)
	}
	return nil
}

// registration is the readiness state of one registered descriptor.
type registration struct {
	r         *epollReactor
	fd        int
	dirs      [2]*dirState
	closeOnce sync.Once
}

func newRegistration(r *epollReactor, fd int) *registration {
	return &registration{
		r:    r,
		fd:   fd,
		dirs: [2]*dirState{newDirState(), newDirState()},
	}
}

func (g *registration) dispatch(events uint32) {
	if events&readEvents != 0 {
		g.dirs[api.DirRead].set()
	}
	if events&writeEvents != 0 {
		g.dirs[api.DirWrite].set()
	}
}

// Ready implements api.Registration.
func (g *registration) Ready(ctx context.Context, dir api.Direction) (api.ReadyEvent, error) {
	if dir > api.DirWrite {
		return api.ReadyEvent{}, api.ErrInvalidArgument
	}
	return g.dirs[dir].wait(ctx, dir)
}

// ClearReady implements api.Registration.
func (g *registration) ClearReady(ev api.ReadyEvent) {
	if ev.Dir > api.DirWrite {
		return
	}
	g.dirs[ev.Dir].clear(ev.Tick)
}

// Close implements api.Registration.
func (g *registration) Close() error {
	var err error
	g.closeOnce.Do(func() {
		err = g.r.unregister(g)
		g.shutdown()
	})
	return err
}

func (g *registration) shutdown() {
	g.dirs[api.DirRead].shutdown()
	g.dirs[api.DirWrite].shutdown()
}
