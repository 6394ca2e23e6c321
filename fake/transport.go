// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for reactors and descriptors.

package fake

import (
	"sync"
	"syscall"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-rawsock/api"
)

type recvStep struct {
	data []byte
	err  error
}

// Endpoint stands in for a raw socket descriptor. Each Recv pops one scripted
// step; an empty script reports EAGAIN like a drained non-blocking socket.
type Endpoint struct {
	mu         sync.Mutex
	fd         int
	recvSteps  *queue.Queue // of recvStep
	sendErrs   *queue.Queue // of error, nil entries mean success
	sent       [][]byte
	recvCalls  int
	sendCalls  int
	closeCalls int
	closed     bool
}

// NewEndpoint creates an endpoint reporting fd from Fd.
func NewEndpoint(fd int) *Endpoint {
	return &Endpoint{
		fd:        fd,
		recvSteps: queue.New(),
		sendErrs:  queue.New(),
	}
}

// Fd returns the configured handle, or -1 after Close.
func (e *Endpoint) Fd() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return -1
	}
	return e.fd
}

// AddRecvData queues one unit to be returned by a later Recv.
func (e *Endpoint) AddRecvData(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	e.recvSteps.Add(recvStep{data: dataCopy})
}

// AddRecvError queues an error to be returned by a later Recv.
func (e *Endpoint) AddRecvError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recvSteps.Add(recvStep{err: err})
}

// AddSendError queues the result of a later Send; nil means success.
func (e *Endpoint) AddSendError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendErrs.Add(err)
}

// Recv performs one scripted receive, truncating to len(b).
func (e *Endpoint) Recv(b []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recvCalls++
	if e.closed {
		return 0, api.ErrClosed
	}
	if e.recvSteps.Length() == 0 {
		return 0, syscall.EAGAIN
	}
	step := e.recvSteps.Remove().(recvStep)
	if step.err != nil {
		return 0, step.err
	}
	return copy(b, step.data), nil
}

// Send performs one scripted send and records the payload on success.
func (e *Endpoint) Send(b []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendCalls++
	if e.closed {
		return 0, api.ErrClosed
	}
	if e.sendErrs.Length() > 0 {
		if err, _ := e.sendErrs.Remove().(error); err != nil {
			return 0, err
		}
	}
	bufCopy := make([]byte, len(b))
	copy(bufCopy, b)
	e.sent = append(e.sent, bufCopy)
	return len(b), nil
}

// Close marks the endpoint closed.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeCalls++
	e.closed = true
	return nil
}

// GetSentData returns all data that has been sent via Send.
func (e *Endpoint) GetSentData() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	sent := make([][]byte, len(e.sent))
	copy(sent, e.sent)
	return sent
}

// RecvCalls returns the number of Recv attempts.
func (e *Endpoint) RecvCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recvCalls
}

// SendCalls returns the number of Send attempts.
func (e *Endpoint) SendCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sendCalls
}

// CloseCalls returns the number of Close calls.
func (e *Endpoint) CloseCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeCalls
}
