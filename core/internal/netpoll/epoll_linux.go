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

//go:build linux
// +build linux

package netpoll

import (
	"os"
	"runtime"

	"golang.org/x/sys/unix"

	"webserv/core/pkg/errors"
	"webserv/core/pkg/logging"
)

// IOEvent is the bitmask of epoll event flags reported for a descriptor.
type IOEvent = uint32

const (
	// InEvents is the set of events that indicate a descriptor is ready to read.
	InEvents IOEvent = unix.EPOLLIN | unix.EPOLLHUP | unix.EPOLLERR
	// OutEvents is the set of events that indicate a descriptor is ready to write.
	OutEvents IOEvent = unix.EPOLLOUT | unix.EPOLLERR
)

// Poller monitors registered file-descriptors via epoll and dispatches readiness
// events to the callback bound to each one. Only one goroutine ever calls Polling,
// so the attachment registry needs no lock.
type Poller struct {
	fd          int // epoll instance fd
	attachments map[int]*PollAttachment
}

// OpenPoller instantiates a poller.
func OpenPoller() (poller *Poller, err error) {
	poller = &Poller{attachments: make(map[int]*PollAttachment)}
	if poller.fd, err = unix.EpollCreate1(unix.EPOLL_CLOEXEC); err != nil {
		poller = nil
		err = os.NewSyscallError("epoll_create1", err)
	}
	return
}

// Close closes the poller.
func (p *Poller) Close() error {
	return os.NewSyscallError("close", unix.Close(p.fd))
}

type eventList struct {
	size   int
	events []unix.EpollEvent
}

func newEventList(size int) *eventList {
	return &eventList{size, make([]unix.EpollEvent, size)}
}

func (el *eventList) expand() {
	el.size <<= 1
	el.events = make([]unix.EpollEvent, el.size)
}

func (el *eventList) shrink() {
	el.size >>= 1
	el.events = make([]unix.EpollEvent, el.size)
}

// Polling blocks the current goroutine, waiting for network events. tick runs
// once per loop iteration before the wait call and stops the loop if it
// returns a non-nil error; msgTimeout runs once per iteration after events
// are processed, so the caller can sweep idle connections without a second
// goroutine.
func (p *Poller) Polling(tick func() error, msgTimeout func()) error {
	el := newEventList(InitPollEventsCap)

	msec := 200
	for {
		if err := tick(); err != nil {
			return err
		}
		n, err := unix.EpollWait(p.fd, el.events, msec)
		if n == 0 || (n < 0 && err == unix.EINTR) {
			msec = 200
			runtime.Gosched()
			msgTimeout()
			continue
		} else if err != nil {
			logging.Errorf("error occurs in epoll_wait: %v", os.NewSyscallError("epoll_wait", err))
			return err
		}
		msec = 200

		for i := 0; i < n; i++ {
			ev := &el.events[i]
			fd := int(ev.Fd)
			pa := p.attachments[fd]
			if pa == nil {
				continue
			}
			switch err = pa.Callback(fd, ev.Events); err {
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

func (p *Poller) ctl(op int, pa *PollAttachment, events uint32) error {
	p.attachments[pa.FD] = pa
	return os.NewSyscallError("epoll_ctl", unix.EpollCtl(p.fd, op, pa.FD, &unix.EpollEvent{Fd: int32(pa.FD), Events: events}))
}

// AddRead registers the given file-descriptor with a readable-event interest.
func (p *Poller) AddRead(pa *PollAttachment) error {
	return p.ctl(unix.EPOLL_CTL_ADD, pa, unix.EPOLLIN)
}

// AddWrite registers the given file-descriptor with a writable-event interest.
func (p *Poller) AddWrite(pa *PollAttachment) error {
	return p.ctl(unix.EPOLL_CTL_ADD, pa, unix.EPOLLOUT)
}

// AddReadWrite registers the given file-descriptor with both read and write interest.
func (p *Poller) AddReadWrite(pa *PollAttachment) error {
	return p.ctl(unix.EPOLL_CTL_ADD, pa, unix.EPOLLIN|unix.EPOLLOUT)
}

// ModRead renews the given file-descriptor to readable-only interest.
func (p *Poller) ModRead(pa *PollAttachment) error {
	return p.ctl(unix.EPOLL_CTL_MOD, pa, unix.EPOLLIN)
}

// ModReadWrite renews the given file-descriptor to read-and-write interest.
func (p *Poller) ModReadWrite(pa *PollAttachment) error {
	return p.ctl(unix.EPOLL_CTL_MOD, pa, unix.EPOLLIN|unix.EPOLLOUT)
}

// Delete removes the given file-descriptor from the poller.
func (p *Poller) Delete(fd int) error {
	delete(p.attachments, fd)
	err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && err != unix.ENOENT && err != unix.EBADF {
		return os.NewSyscallError("epoll_ctl del", err)
	}
	return nil
}
