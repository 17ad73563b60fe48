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

// Package core implements the single-threaded, readiness-driven connection
// engine: one goroutine accepts connections across every configured listener,
// reads and writes their sockets, and drives a protocol-specific EventHandler
// synchronously between poller waits. The engine itself knows nothing about
// HTTP; package httpserv binds the origin-server semantics onto it.
package core

import (
	"context"
	"sync"
	"time"

	"webserv/config"
	"webserv/core/pkg/errors"
)

// Action is an action that occurs after the completion of an event.
type Action int

const (
	// None indicates that no action should occur following an event.
	None Action = iota

	// Close closes the connection.
	Close

	// Shutdown shuts down the engine.
	Shutdown
)

// Engine represents an engine context which provides some functions.
type Engine struct {
	eng *engine
}

// CountConnections counts the number of currently active connections and returns it.
func (e Engine) CountConnections() int {
	return int(e.eng.el.loadConnCount())
}

// Conn is the engine's view of one accepted TCP connection. Everything here
// is only safe to call from the event-loop goroutine; there is no other
// goroutine in this engine, so that is automatically true for every call
// originating from an EventHandler method.
type Conn interface {
	// Fd returns the underlying file descriptor.
	Fd() int

	// LocalAddr is the connection's local socket address.
	LocalAddr() string

	// RemoteAddr is the connection's remote peer address.
	RemoteAddr() string

	// ServerConfig is the virtual host this connection was accepted on.
	ServerConfig() *config.ServerConfig

	// Context returns the protocol-specific state the EventHandler previously
	// attached to this connection with SetContext.
	Context() interface{}

	// SetContext attaches protocol-specific state to this connection.
	SetContext(ctx interface{})

	// Read returns the bytes received so far that have not yet been
	// discarded. The slice is only valid until the next event-loop
	// iteration touches this connection.
	Read() []byte

	// Discard drops the first n bytes of the pending read buffer, e.g. once
	// the parser has consumed them.
	Discard(n int)

	// ResetRead clears the entire pending read buffer.
	ResetRead()

	// Write enqueues data to be sent back to the peer. Sending starts once
	// the handler returns Close (or calls Close); the data may then go out
	// immediately, in part, or later, depending on socket write-readiness,
	// and the engine flushes what remains as the socket becomes writable.
	Write(p []byte) (int, error)

	// Close closes the connection after any buffered write data has been flushed.
	Close() error
}

type (
	// EventHandler represents the engine events' callbacks for the Run call.
	// Each event has an Action return value that is used to manage the state
	// of the connection and engine.
	EventHandler interface {
		// OnBoot fires when the engine is ready for accepting connections.
		OnBoot(eng Engine) Action

		// OnShutdown fires when the engine is being shut down, right after
		// all listeners and connections are closed.
		OnShutdown(eng Engine)

		// OnOpened fires when a new connection has been accepted.
		OnOpened(c Conn) Action

		// OnClosed fires when a connection has been closed.
		OnClosed(c Conn, err error)

		// OnTraffic fires when a socket receives data from the peer.
		OnTraffic(c Conn) Action

		// OnTick fires periodically and returns the delay until the next firing.
		OnTick() (delay time.Duration, action Action)
	}

	// BuiltinEventEngine is a built-in implementation of EventHandler which gives
	// every method a default no-op implementation, so callers only need to
	// override what they care about.
	BuiltinEventEngine struct{}
)

func (*BuiltinEventEngine) OnBoot(Engine) (action Action)             { return }
func (*BuiltinEventEngine) OnShutdown(Engine)                         {}
func (*BuiltinEventEngine) OnOpened(Conn) (action Action)             { return }
func (*BuiltinEventEngine) OnClosed(Conn, error)                      {}
func (*BuiltinEventEngine) OnTraffic(Conn) (action Action)            { return }
func (*BuiltinEventEngine) OnTick() (delay time.Duration, action Action) { return time.Second, None }

// Run starts handling events across one listener per ServerConfig, blocking
// the calling goroutine until Stop is called or a fatal engine error occurs.
func Run(eventHandler EventHandler, servers []*config.ServerConfig, opts ...Option) (err error) {
	if len(servers) == 0 {
		return errors.ErrNoListeners
	}

	options := loadOptions(opts...)

	lns := make([]*listener, 0, len(servers))
	defer func() {
		for _, ln := range lns {
			ln.close()
		}
	}()
	for _, srv := range servers {
		var ln *listener
		if ln, err = initListener(srv, options); err != nil {
			return err
		}
		lns = append(lns, ln)
	}

	return serve(eventHandler, lns, options)
}

// runningEngine holds the single in-process engine instance, if one is
// currently serving. Unlike the multi-backend proxy this package is adapted
// from, a webserv process runs exactly one engine for its one configuration
// file, so a single guarded pointer replaces a name-keyed registry.
var (
	runningMu sync.Mutex
	running   *engine

	// shutdownPollInterval is how often Stop polls to check whether the
	// engine has finished shutting down.
	shutdownPollInterval = 200 * time.Millisecond
)

// Stop gracefully shuts down the running engine instance without
// interrupting any in-flight connection handling; it waits for the loop to
// notice the shutdown flag and tear down.
func Stop(ctx context.Context) error {
	runningMu.Lock()
	eng := running
	runningMu.Unlock()
	if eng == nil {
		return errors.ErrEngineInShutdown
	}
	eng.signalShutdown()

	ticker := time.NewTicker(shutdownPollInterval)
	defer ticker.Stop()
	for {
		runningMu.Lock()
		done := running != eng
		runningMu.Unlock()
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
