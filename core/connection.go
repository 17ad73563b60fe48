// Copyright (c) 2022 The webserv Authors
// Copyright (c) 2019 Andy Pan
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
	"net"
	"time"

	"webserv/config"
	"webserv/core/internal/netpoll"
	"webserv/core/internal/socket"
)

// connState is the per-connection request/response state machine (spec §4.3).
type connState int32

const (
	// ReadingRequest is the initial state: read-interest only.
	ReadingRequest connState = iota
	// ProcessingRequest is a synchronous transient with no I/O interest.
	ProcessingRequest
	// SendingResponse enables write-interest; read-interest stays registered
	// but readable events are ignored in this state.
	SendingResponse
	// Closing is terminal; the connection is torn down on the next pass.
	Closing
)

func (s connState) String() string {
	switch s {
	case ReadingRequest:
		return "READING_REQUEST"
	case ProcessingRequest:
		return "PROCESSING_REQUEST"
	case SendingResponse:
		return "SENDING_RESPONSE"
	case Closing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// conn is the concrete implementation of Conn.
type conn struct {
	fd             int
	localAddr      net.Addr
	remoteAddr     net.Addr
	loop           *eventloop
	server         *config.ServerConfig
	pollAttachment *netpoll.PollAttachment

	recvBuf []byte // append-only during READING_REQUEST
	sendBuf []byte // append-only once a response has been filled
	sent    int    // bytes of sendBuf already written

	state        connState
	lastActivity time.Time
	opened       bool

	ctx interface{} // protocol-specific state (e.g. the HTTP parser/request) set by the EventHandler
}

func newConn(fd int, el *eventloop, ln *listener, remoteAddr net.Addr) *conn {
	c := &conn{
		fd:           fd,
		loop:         el,
		localAddr:    ln.addr,
		remoteAddr:   remoteAddr,
		server:       ln.server,
		state:        ReadingRequest,
		lastActivity: time.Now(),
	}
	c.pollAttachment = netpoll.GetPollAttachment()
	c.pollAttachment.FD, c.pollAttachment.Callback = fd, el.handleEvent
	return c
}

func (c *conn) release() {
	c.opened = false
	c.recvBuf = nil
	c.sendBuf = nil
	c.ctx = nil
	netpoll.PutPollAttachment(c.pollAttachment)
	c.pollAttachment = nil
}

// touch updates the idle-deadline clock; called on every successful recv/send.
func (c *conn) touch() {
	c.lastActivity = time.Now()
}

func (c *conn) idleFor(now time.Time) time.Duration {
	return now.Sub(c.lastActivity)
}

// ========================= Conn interface =========================

func (c *conn) Fd() int { return c.fd }

func (c *conn) LocalAddr() string {
	if c.localAddr == nil {
		return "-"
	}
	return c.localAddr.String()
}

func (c *conn) RemoteAddr() string {
	if c.remoteAddr == nil {
		return "-"
	}
	return c.remoteAddr.String()
}

func (c *conn) ServerConfig() *config.ServerConfig { return c.server }

func (c *conn) Context() interface{}     { return c.ctx }
func (c *conn) SetContext(ctx interface{}) { c.ctx = ctx }

func (c *conn) Read() []byte { return c.recvBuf }

func (c *conn) Discard(n int) {
	if n <= 0 {
		return
	}
	if n >= len(c.recvBuf) {
		c.recvBuf = c.recvBuf[:0]
		return
	}
	c.recvBuf = c.recvBuf[n:]
}

func (c *conn) ResetRead() { c.recvBuf = c.recvBuf[:0] }

// Write appends to the response buffer; nothing is sent yet. When the
// handler then returns Close (or calls Close), the engine arms write-interest
// via enterSendingResponse and closes the connection once the buffer has been
// written, so Write is the dispatcher's way of handing the engine a complete
// serialized response.
func (c *conn) Write(p []byte) (int, error) {
	c.sendBuf = append(c.sendBuf, p...)
	return len(p), nil
}

func (c *conn) Close() error {
	return c.loop.handleAction(c, Close)
}

// enterSendingResponse enables write-interest and attempts an immediate
// opportunistic write so small responses often finish in the same readiness
// pass that produced them. Read-interest is not removed (the poller has no
// write-only mode); handleEvent ignores readable events once the state has
// left ReadingRequest.
func (c *conn) enterSendingResponse() error {
	c.state = SendingResponse
	if err := c.loop.poller.ModReadWrite(c.pollAttachment); err != nil {
		return err
	}
	return c.loop.flush(c)
}

func (c *conn) setSockOpts(opts *Options) {
	if opts.TCPKeepAlive > 0 {
		_ = socket.SetKeepAlivePeriod(c.fd, int(opts.TCPKeepAlive/time.Second))
	}
}
