// Copyright (c) 2022 The webserv Authors
// Copyright (c) 2021 Andy Pan
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

//go:build freebsd || dragonfly || darwin
// +build freebsd dragonfly darwin

package netpoll

import (
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"webserv/core/pkg/errors"
	"webserv/core/pkg/logging"
)

// IOEvent is the kqueue filter identifying which direction became ready.
type IOEvent = int16

const (
	// InEvents is the filter reported when a descriptor became readable (or errored/hung up).
	InEvents IOEvent = unix.EVFILT_READ
	// OutEvents is the filter reported when a descriptor became writable.
	OutEvents IOEvent = unix.EVFILT_WRITE
)

// Poller monitors registered file-descriptors via kqueue and dispatches readiness
// events to the callback bound to each one. Only one goroutine ever calls Polling.
type Poller struct {
	fd int
}

// OpenPoller instantiates a poller.
func OpenPoller() (poller *Poller, err error) {
	poller = new(Poller)
	if poller.fd, err = unix.Kqueue(); err != nil {
		poller = nil
		err = os.NewSyscallError("kqueue", err)
	}
	return
}

// Close closes the poller.
func (p *Poller) Close() error {
	return os.NewSyscallError("close", unix.Close(p.fd))
}

type eventList struct {
	size   int
	events []unix.Kevent_t
}

func newEventList(size int) *eventList {
	return &eventList{size, make([]unix.Kevent_t, size)}
}

func (el *eventList) expand() {
	el.size <<= 1
	el.events = make([]unix.Kevent_t, el.size)
}

func (el *eventList) shrink() {
	el.size >>= 1
	el.events = make([]unix.Kevent_t, el.size)
}

// Polling blocks the current goroutine, waiting for network events. tick runs
// once per loop iteration before the wait call and stops the loop if it
// returns a non-nil error; msgTimeout runs once per iteration after events
// are processed, so the caller can sweep idle connections without a second
// goroutine.
func (p *Poller) Polling(tick func() error, msgTimeout func()) error {
	el := newEventList(InitPollEventsCap)

	timeout := &unix.Timespec{Sec: 0, Nsec: 200e6}
	for {
		if err := tick(); err != nil {
			return err
		}
		n, err := unix.Kevent(p.fd, nil, el.events, timeout)
		if n == 0 || (n < 0 && err == unix.EINTR) {
			runtime.Gosched()
			msgTimeout()
			continue
		} else if err != nil {
			logging.Errorf("error occurs in kqueue: %v", os.NewSyscallError("kevent wait", err))
			return err
		}

		for i := 0; i < n; i++ {
			ev := &el.events[i]
			filter := ev.Filter
			if ev.Flags&unix.EV_EOF != 0 || ev.Flags&unix.EV_ERROR != 0 {
				filter = unix.EVFILT_READ
			}
			pa := (*PollAttachment)(unsafe.Pointer(ev.Udata))
			switch err = pa.Callback(int(ev.Ident), filter); err {
			case nil:
			case errors.ErrAcceptSocket, errors.ErrEngineShutdown:
				return err
			default:
				logging.Warnf("error occurs in event-loop: %v", err)
			}
		}

		if n == el.size {
			el.expand()
		} else if n < el.size>>1 {
			el.shrink()
		}
		msgTimeout()
	}
}

func (p *Poller) addEvents(pa *PollAttachment, filters ...int16) error {
	evs := make([]unix.Kevent_t, len(filters))
	for i, f := range filters {
		evs[i].Ident = uint64(pa.FD)
		evs[i].Flags = unix.EV_ADD
		evs[i].Filter = f
		evs[i].Udata = (*byte)(unsafe.Pointer(pa))
	}
	_, err := unix.Kevent(p.fd, evs, nil, nil)
	return os.NewSyscallError("kevent add", err)
}

// AddRead registers the given file-descriptor with readable-event interest.
func (p *Poller) AddRead(pa *PollAttachment) error {
	return p.addEvents(pa, unix.EVFILT_READ)
}

// AddWrite registers the given file-descriptor with writable-event interest.
func (p *Poller) AddWrite(pa *PollAttachment) error {
	return p.addEvents(pa, unix.EVFILT_WRITE)
}

// AddReadWrite registers the given file-descriptor with both read and write interest.
func (p *Poller) AddReadWrite(pa *PollAttachment) error {
	return p.addEvents(pa, unix.EVFILT_READ, unix.EVFILT_WRITE)
}

// ModRead drops write interest, leaving only the (already registered) read interest.
func (p *Poller) ModRead(pa *PollAttachment) error {
	var ev unix.Kevent_t
	ev.Ident = uint64(pa.FD)
	ev.Flags = unix.EV_DELETE
	ev.Filter = unix.EVFILT_WRITE
	_, err := unix.Kevent(p.fd, []unix.Kevent_t{ev}, nil, nil)
	if err != nil && err != unix.ENOENT {
		return os.NewSyscallError("kevent delete", err)
	}
	return nil
}

// ModReadWrite adds write interest back alongside the existing read interest.
func (p *Poller) ModReadWrite(pa *PollAttachment) error {
	return p.addEvents(pa, unix.EVFILT_WRITE)
}

// Delete removes the given file-descriptor from the poller. kqueue drops an
// fd's events automatically when the fd is closed, so this is a no-op kept
// for interface symmetry with the epoll poller.
func (p *Poller) Delete(_ int) error {
	return nil
}
