// Copyright (c) 2022 The webserv Authors
// Copyright (c) 2019 Andy Pan
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

//go:build linux || freebsd || dragonfly || darwin
// +build linux freebsd dragonfly darwin

// Package socket wraps the raw syscalls needed to build a non-blocking
// listening TCP socket and to tune options on accepted connections.
package socket

import (
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Option is a setsockopt call applied to a freshly created socket.
type Option struct {
	SetSockOpt func(int, int) error
	Opt        int
}

// SetReuseAddr sets SO_REUSEADDR so the listener can rebind a TIME_WAIT address.
func SetReuseAddr(fd, _ int) error {
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1))
}

// SetNoDelay disables Nagle's algorithm.
func SetNoDelay(fd, v int) error {
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v))
}

// SetRecvBuffer sets SO_RCVBUF.
func SetRecvBuffer(fd, bytes int) error {
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, bytes))
}

// SetSendBuffer sets SO_SNDBUF.
func SetSendBuffer(fd, bytes int) error {
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, bytes))
}

// SetLinger sets SO_LINGER.
func SetLinger(fd, sec int) error {
	var l unix.Linger
	if sec >= 0 {
		l.Onoff = 1
		l.Linger = int32(sec)
	}
	return os.NewSyscallError("setsockopt", unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &l))
}

// SetKeepAlivePeriod enables SO_KEEPALIVE and sets the probe period in seconds.
func SetKeepAlivePeriod(fd, secs int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return os.NewSyscallError("setsockopt", err)
	}
	return os.NewSyscallError("setsockopt", setKeepAliveInterval(fd, secs))
}

// TCPSocket creates, binds (when passive is true) and returns a non-blocking TCP socket.
func TCPSocket(proto, addr string, passive bool, sockOpts ...Option) (fd int, netAddr net.Addr, err error) {
	var (
		family   int
		sockAddr unix.Sockaddr
	)

	tcpAddr, err := net.ResolveTCPAddr(proto, addr)
	if err != nil {
		return 0, nil, err
	}
	netAddr = tcpAddr

	family, sockAddr, err = tcpAddrToSockAddr(proto, tcpAddr)
	if err != nil {
		return 0, nil, err
	}

	fd, err = unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return 0, nil, os.NewSyscallError("socket", err)
	}
	defer func() {
		if err != nil {
			_ = unix.Close(fd)
		}
	}()

	for _, opt := range sockOpts {
		if err = opt.SetSockOpt(fd, opt.Opt); err != nil {
			return 0, nil, err
		}
	}

	if passive {
		if err = os.NewSyscallError("bind", unix.Bind(fd, sockAddr)); err != nil {
			return 0, nil, err
		}
		if err = os.NewSyscallError("listen", unix.Listen(fd, listenBacklog)); err != nil {
			return 0, nil, err
		}
	}

	if err = os.NewSyscallError("fcntl nonblock", unix.SetNonblock(fd, true)); err != nil {
		return 0, nil, err
	}

	return
}

const listenBacklog = 512

func tcpAddrToSockAddr(proto string, addr *net.TCPAddr) (int, unix.Sockaddr, error) {
	if ip4 := addr.IP.To4(); ip4 != nil && proto != "tcp6" {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return unix.AF_INET, sa, nil
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return unix.AF_INET6, sa, nil
}

// SockaddrToTCPAddr converts a raw accept()-returned sockaddr into a *net.TCPAddr.
func SockaddrToTCPAddr(sa unix.Sockaddr) net.Addr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, net.IPv4len)
		copy(ip, sa.Addr[:])
		return &net.TCPAddr{IP: ip, Port: sa.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, sa.Addr[:])
		return &net.TCPAddr{IP: ip, Port: sa.Port}
	default:
		return nil
	}
}
