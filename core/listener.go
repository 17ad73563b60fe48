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
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"webserv/config"
	"webserv/core/internal/netpoll"
	"webserv/core/internal/socket"
	"webserv/core/pkg/logging"
)

// listener is a non-blocking bound TCP socket for one ServerConfig.
type listener struct {
	once           sync.Once
	fd             int
	addr           net.Addr
	server         *config.ServerConfig
	pollAttachment *netpoll.PollAttachment
}

func (ln *listener) packPollAttachment(handler netpoll.PollEventHandler) *netpoll.PollAttachment {
	ln.pollAttachment = &netpoll.PollAttachment{FD: ln.fd, Callback: handler}
	return ln.pollAttachment
}

func (ln *listener) close() {
	ln.once.Do(func() {
		if ln.fd > 0 {
			if err := unix.Close(ln.fd); err != nil {
				logging.Error(os.NewSyscallError("close", err))
			}
		}
	})
}

func initListener(srv *config.ServerConfig, options *Options) (ln *listener, err error) {
	var sockOpts []socket.Option
	sockOpts = append(sockOpts, socket.Option{SetSockOpt: socket.SetReuseAddr, Opt: 1})
	sockOpts = append(sockOpts, socket.Option{SetSockOpt: socket.SetNoDelay, Opt: 1})
	if options.SocketRecvBuffer > 0 {
		sockOpts = append(sockOpts, socket.Option{SetSockOpt: socket.SetRecvBuffer, Opt: options.SocketRecvBuffer})
	}
	if options.SocketSendBuffer > 0 {
		sockOpts = append(sockOpts, socket.Option{SetSockOpt: socket.SetSendBuffer, Opt: options.SocketSendBuffer})
	}

	ln = &listener{server: srv}
	ln.fd, ln.addr, err = socket.TCPSocket("tcp", srv.Listen(), true, sockOpts...)
	return
}
