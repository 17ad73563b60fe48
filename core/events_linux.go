// Copyright (c) 2022 The webserv Authors
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

//go:build linux
// +build linux

package core

import (
	"golang.org/x/sys/unix"

	"webserv/core/internal/netpoll"
)

func isReadable(ev netpoll.IOEvent) bool { return ev&unix.EPOLLIN != 0 }
func isWritable(ev netpoll.IOEvent) bool { return ev&unix.EPOLLOUT != 0 }
func isErrorEvent(ev netpoll.IOEvent) bool {
	return ev&(unix.EPOLLERR|unix.EPOLLHUP) != 0
}
