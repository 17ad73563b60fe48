// Copyright (c) 2022 The webserv Authors
// Copyright (c) 2019 Andy Pan
// Copyright (c) 2018 Joshua J Baker
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux || freebsd || dragonfly || darwin
// +build linux freebsd dragonfly darwin

package core

import (
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"webserv/core/internal/netpoll"
	gerrors "webserv/core/pkg/errors"
	"webserv/core/pkg/logging"
)

// eventloop is the single readiness loop: it owns every listener and
// connection and is the only goroutine that ever touches them, satisfying
// spec §5's single-threaded cooperative model.
type eventloop struct {
	engine       *engine
	poller       *netpoll.Poller
	buffer       []byte // scratch read buffer, sized by Options.ReadBufferCap
	connCount    int32
	connections  map[int]*conn
	eventHandler EventHandler
	nextTick     time.Time
}

func (el *eventloop) addConn(delta int32)  { atomic.AddInt32(&el.connCount, delta) }
func (el *eventloop) loadConnCount() int32 { return atomic.LoadInt32(&el.connCount) }

func (el *eventloop) closeAllSockets() {
	for _, c := range el.connections {
		_ = el.closeConn(c, nil)
	}
}

func (el *eventloop) open(c *conn) error {
	c.opened = true
	GlobalStats.TotalConnections.WithLabelValues().Inc()
	el.addConn(1)
	GlobalStats.CurrConnections.WithLabelValues().Set(float64(el.loadConnCount()))

	action := el.eventHandler.OnOpened(c)
	return el.handleAction(c, action)
}

// read performs the one-recv-per-readiness contract of spec §4.3: at most
// ReadBufferCap bytes, feeding the result to the handler and refreshing the
// idle clock on success.
func (el *eventloop) read(c *conn) error {
	n, err := unix.Read(c.fd, el.buffer)
	if err != nil || n == 0 {
		if err == unix.EAGAIN {
			return nil
		}
		if n == 0 {
			return el.closeConn(c, nil)
		}
		return el.closeConn(c, os.NewSyscallError("read", err))
	}

	c.touch()
	c.recvBuf = append(c.recvBuf, el.buffer[:n]...)

	action := el.eventHandler.OnTraffic(c)
	return el.handleAction(c, action)
}

// write performs the one-send-per-readiness contract: a single send of the
// remaining response slice, advancing the sent offset on a partial write and
// closing the connection once everything has gone out.
func (el *eventloop) write(c *conn) error {
	if c.sent >= len(c.sendBuf) {
		return el.closeConn(c, nil)
	}

	n, err := unix.Write(c.fd, c.sendBuf[c.sent:])
	if err != nil {
		if err == unix.EAGAIN {
			return nil
		}
		return el.closeConn(c, os.NewSyscallError("write", err))
	}

	c.touch()
	c.sent += n
	if c.sent >= len(c.sendBuf) {
		return el.closeConn(c, nil)
	}
	return nil
}

// flush makes one best-effort attempt to drain a just-filled response buffer
// immediately, so small responses don't wait for the next readiness pass.
func (el *eventloop) flush(c *conn) error {
	return el.write(c)
}

func (el *eventloop) closeConn(c *conn, err error) error {
	if !c.opened {
		return nil
	}
	c.state = Closing

	if err := el.poller.Delete(c.fd); err != nil {
		logging.Warnf("failed to delete fd %d from poller: %v", c.fd, err)
	}
	_ = unix.Close(c.fd)
	delete(el.connections, c.fd)
	el.addConn(-1)

	GlobalStats.CurrConnections.WithLabelValues().Set(float64(el.loadConnCount()))
	el.eventHandler.OnClosed(c, err)
	c.release()

	if err == gerrors.ErrEngineShutdown {
		return err
	}
	return nil
}

func (el *eventloop) handleAction(c *conn, action Action) error {
	switch action {
	case None:
		return nil
	case Close:
		if len(c.sendBuf) > c.sent {
			return c.enterSendingResponse()
		}
		return el.closeConn(c, nil)
	case Shutdown:
		return gerrors.ErrEngineShutdown
	default:
		return nil
	}
}

// sweepIdle tears down every connection whose idle deadline has passed, per
// spec §4.3's "now - last_activity > 60s" rule.
func (el *eventloop) sweepIdle(now time.Time, timeout time.Duration) {
	for _, c := range el.connections {
		if c.idleFor(now) > timeout {
			_ = el.closeConn(c, nil)
		}
	}
}

func (el *eventloop) handleEvent(fd int, ev netpoll.IOEvent) error {
	c, ok := el.connections[fd]
	if !ok {
		return nil
	}

	if isErrorEvent(ev) {
		return el.closeConn(c, nil)
	}
	if isWritable(ev) && len(c.sendBuf) > c.sent {
		if err := el.write(c); err != nil {
			return err
		}
	}
	if isReadable(ev) && c.state == ReadingRequest {
		return el.read(c)
	}
	return nil
}

func (el *eventloop) tick() {
	now := time.Now()
	if now.Before(el.nextTick) {
		return
	}
	delay, action := el.eventHandler.OnTick()
	el.nextTick = now.Add(delay)
	if action == Shutdown {
		el.engine.signalShutdown()
	}
	el.sweepIdle(now, el.engine.opts.IdleTimeout)
}
