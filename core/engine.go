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
	"sync/atomic"

	"webserv/core/internal/netpoll"
	gerrors "webserv/core/pkg/errors"
)

// engine is the internal, unexported counterpart to the public Engine handle.
type engine struct {
	listeners  []*listener
	el         *eventloop
	opts       *Options
	inShutdown int32
}

func (eng *engine) signalShutdown() {
	atomic.StoreInt32(&eng.inShutdown, 1)
}

func (eng *engine) isInShutdown() bool {
	return atomic.LoadInt32(&eng.inShutdown) == 1
}

func serve(eventHandler EventHandler, lns []*listener, options *Options) error {
	eng := &engine{listeners: lns, opts: options}

	poller, err := netpoll.OpenPoller()
	if err != nil {
		return err
	}
	defer poller.Close()

	el := &eventloop{
		engine:       eng,
		poller:       poller,
		buffer:       make([]byte, options.ReadBufferCap),
		connections:  make(map[int]*conn),
		eventHandler: eventHandler,
	}
	eng.el = el

	for _, ln := range lns {
		pa := ln.packPollAttachment(el.acceptFrom(ln))
		if err = poller.AddRead(pa); err != nil {
			return err
		}
	}

	runningMu.Lock()
	running = eng
	runningMu.Unlock()
	defer func() {
		runningMu.Lock()
		if running == eng {
			running = nil
		}
		runningMu.Unlock()
	}()

	action := eventHandler.OnBoot(Engine{eng: eng})
	if action == Shutdown {
		return nil
	}

	defer func() {
		el.closeAllSockets()
		eventHandler.OnShutdown(Engine{eng: eng})
	}()

	err = poller.Polling(
		func() error {
			if eng.isInShutdown() {
				return gerrors.ErrEngineShutdown
			}
			return nil
		},
		el.tick,
	)
	if err == gerrors.ErrEngineShutdown {
		return nil
	}
	return err
}
