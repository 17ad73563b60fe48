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

package core

import "time"

// Option is a function that sets up an Options field.
type Option func(opts *Options)

func loadOptions(options ...Option) *Options {
	opts := &Options{
		ReadBufferCap:     4096,
		AcceptBurst:       10,
		MaxConnections:    1000,
		IdleTimeout:       60 * time.Second,
		TickInterval:      time.Second,
	}
	for _, option := range options {
		option(opts)
	}
	return opts
}

// Options are the tunables for Run.
type Options struct {
	// ReadBufferCap is the maximum number of bytes read from a socket per
	// readiness notification.
	ReadBufferCap int

	// AcceptBurst bounds how many pending connections a listener drains per
	// readiness notification, per spec §4.2.
	AcceptBurst int

	// MaxConnections is the hard cap on simultaneously open connections
	// across every listener; once reached, new accepts are closed immediately.
	MaxConnections int

	// IdleTimeout closes a connection that has not made progress in this long.
	IdleTimeout time.Duration

	// TickInterval is not read by the engine: the delay OnTick returns sets
	// when OnTick fires next.
	TickInterval time.Duration

	// TCPKeepAlive sets up the SO_KEEPALIVE socket option with this duration; 0 disables it.
	TCPKeepAlive time.Duration

	// SocketRecvBuffer sets the maximum socket receive buffer in bytes.
	SocketRecvBuffer int

	// SocketSendBuffer sets the maximum socket send buffer in bytes.
	SocketSendBuffer int
}

// WithReadBufferCap sets the per-readiness-event read size.
func WithReadBufferCap(n int) Option {
	return func(opts *Options) { opts.ReadBufferCap = n }
}

// WithAcceptBurst bounds how many connections are accepted per readiness event.
func WithAcceptBurst(n int) Option {
	return func(opts *Options) { opts.AcceptBurst = n }
}

// WithMaxConnections sets the hard connection cap.
func WithMaxConnections(n int) Option {
	return func(opts *Options) { opts.MaxConnections = n }
}

// WithIdleTimeout sets the per-connection idle deadline.
func WithIdleTimeout(d time.Duration) Option {
	return func(opts *Options) { opts.IdleTimeout = d }
}

// WithTCPKeepAlive sets up the SO_KEEPALIVE socket option with duration.
func WithTCPKeepAlive(d time.Duration) Option {
	return func(opts *Options) { opts.TCPKeepAlive = d }
}

// WithSocketRecvBuffer sets the maximum socket receive buffer in bytes.
func WithSocketRecvBuffer(n int) Option {
	return func(opts *Options) { opts.SocketRecvBuffer = n }
}

// WithSocketSendBuffer sets the maximum socket send buffer in bytes.
func WithSocketSendBuffer(n int) Option {
	return func(opts *Options) { opts.SocketSendBuffer = n }
}
