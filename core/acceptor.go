// Copyright (c) 2022 The webserv Authors
// Copyright (c) 2021 Andy Pan
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

	"golang.org/x/sys/unix"

	"webserv/core/internal/netpoll"
	"webserv/core/internal/socket"
	"webserv/core/pkg/logging"
)

// acceptFrom drains up to AcceptBurst pending connections from ln, per spec §4.2.
func (el *eventloop) acceptFrom(ln *listener) func(fd int, ev netpoll.IOEvent) error {
	return func(_ int, _ netpoll.IOEvent) error {
		for i := 0; i < el.engine.opts.AcceptBurst; i++ {
			nfd, sa, err := unix.Accept(ln.fd)
			if err != nil {
				if err == unix.EAGAIN {
					return nil
				}
				logging.Errorf("accept() failed on %s: %v", ln.server.Listen(), err)
				return nil
			}

			if el.loadConnCount() >= int32(el.engine.opts.MaxConnections) {
				_ = unix.Close(nfd)
				GlobalStats.RejectedConnections.WithLabelValues().Inc()
				continue
			}

			if err = os.NewSyscallError("fcntl nonblock", unix.SetNonblock(nfd, true)); err != nil {
				logging.Error(err)
				_ = unix.Close(nfd)
				continue
			}

			remoteAddr := socket.SockaddrToTCPAddr(sa)
			c := newConn(nfd, el, ln, remoteAddr)
			c.setSockOpts(el.engine.opts)

			if err = el.poller.AddRead(c.pollAttachment); err != nil {
				_ = unix.Close(nfd)
				continue
			}
			el.connections[nfd] = c
			if err = el.open(c); err != nil {
				logging.Warnf("open() failed for fd %d: %v", nfd, err)
			}
		}
		return nil
	}
}
