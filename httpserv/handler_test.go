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

package httpserv

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webserv/config"
	"webserv/core"
)

// fakeConn is a minimal in-memory core.Conn double for exercising Handler
// without a real socket.
type fakeConn struct {
	server  *config.ServerConfig
	pending []byte
	out     bytes.Buffer
	ctx     interface{}
}

func (f *fakeConn) Fd() int                             { return -1 }
func (f *fakeConn) LocalAddr() string                   { return "127.0.0.1:80" }
func (f *fakeConn) RemoteAddr() string                  { return "127.0.0.1:9999" }
func (f *fakeConn) ServerConfig() *config.ServerConfig  { return f.server }
func (f *fakeConn) Context() interface{}                { return f.ctx }
func (f *fakeConn) SetContext(ctx interface{})          { f.ctx = ctx }
func (f *fakeConn) Read() []byte                        { return f.pending }
func (f *fakeConn) Discard(n int)                       { f.pending = f.pending[n:] }
func (f *fakeConn) ResetRead()                           { f.pending = f.pending[:0] }
func (f *fakeConn) Write(p []byte) (int, error)         { return f.out.Write(p) }
func (f *fakeConn) Close() error                        { return nil }

var _ core.Conn = (*fakeConn)(nil)

func Test_Handler_OnTraffic_StaticFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("hello"), 0644))

	server := &config.ServerConfig{
		Locations: []*config.LocationConfig{
			{Path: "/", Root: dir, Methods: map[string]bool{"GET": true}, Index: []string{"index.html"}},
		},
	}

	conn := &fakeConn{server: server, pending: []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n")}
	h := NewHandler()
	action := h.OnTraffic(conn)

	assert.Equal(t, core.Close, action)
	assert.Contains(t, conn.out.String(), "200 OK")
	assert.Contains(t, conn.out.String(), "hello")
	assert.Contains(t, conn.out.String(), "Connection: close")
}

func Test_Handler_OnTraffic_NeedsMoreData(t *testing.T) {
	server := &config.ServerConfig{Locations: []*config.LocationConfig{}}
	conn := &fakeConn{server: server, pending: []byte("GET / HTTP/1.1\r\n")}
	h := NewHandler()
	action := h.OnTraffic(conn)

	assert.Equal(t, core.None, action)
	assert.Empty(t, conn.out.Bytes())
}

func Test_Handler_OnTraffic_MethodNotAllowed(t *testing.T) {
	dir := t.TempDir()
	server := &config.ServerConfig{
		Locations: []*config.LocationConfig{
			{Path: "/", Root: dir, Methods: map[string]bool{"GET": true}},
		},
	}
	conn := &fakeConn{server: server, pending: []byte("POST / HTTP/1.1\r\nContent-Length: 0\r\n\r\n")}
	h := NewHandler()
	action := h.OnTraffic(conn)

	assert.Equal(t, core.Close, action)
	assert.Contains(t, conn.out.String(), "405")
	assert.Contains(t, conn.out.String(), "Allow: GET")
}

func Test_Handler_OnTraffic_MalformedRequestClosesWithBadRequest(t *testing.T) {
	server := &config.ServerConfig{Locations: []*config.LocationConfig{}}
	conn := &fakeConn{server: server, pending: []byte("BADLINE\r\n\r\n")}
	h := NewHandler()
	action := h.OnTraffic(conn)

	assert.Equal(t, core.Close, action)
	assert.Contains(t, conn.out.String(), "400")
}

func Test_Handler_OnTraffic_DeleteRemovesFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doomed.txt")
	require.NoError(t, os.WriteFile(target, []byte("bye"), 0644))

	server := &config.ServerConfig{
		Locations: []*config.LocationConfig{
			{Path: "/", Root: dir, Methods: map[string]bool{"DELETE": true}},
		},
	}
	conn := &fakeConn{server: server, pending: []byte("DELETE /doomed.txt HTTP/1.1\r\nHost: x\r\n\r\n")}
	h := NewHandler()
	action := h.OnTraffic(conn)

	assert.Equal(t, core.Close, action)
	assert.Contains(t, conn.out.String(), "200 OK")
	assert.NoFileExists(t, target)
}

func Test_Handler_OnTraffic_InvalidMethodNameReturns405(t *testing.T) {
	server := &config.ServerConfig{Locations: []*config.LocationConfig{}}
	conn := &fakeConn{server: server, pending: []byte("get / HTTP/1.1\r\nHost: x\r\n\r\n")}
	h := NewHandler()
	action := h.OnTraffic(conn)

	assert.Equal(t, core.Close, action)
	assert.Contains(t, conn.out.String(), "405")
}

func Test_Handler_OnTraffic_InvalidContentLengthReturns411(t *testing.T) {
	server := &config.ServerConfig{Locations: []*config.LocationConfig{}}
	conn := &fakeConn{server: server, pending: []byte("POST / HTTP/1.1\r\nHost: x\r\nContent-Length: notanumber\r\n\r\n")}
	h := NewHandler()
	action := h.OnTraffic(conn)

	assert.Equal(t, core.Close, action)
	assert.Contains(t, conn.out.String(), "411")
}

func Test_Handler_OnTraffic_URITooLongReturns400(t *testing.T) {
	server := &config.ServerConfig{Locations: []*config.LocationConfig{}}
	longPath := "/" + strings.Repeat("a", 2000)
	conn := &fakeConn{server: server, pending: []byte("GET " + longPath + " HTTP/1.1\r\nHost: x\r\n\r\n")}
	h := NewHandler()
	action := h.OnTraffic(conn)

	assert.Equal(t, core.Close, action)
	assert.Contains(t, conn.out.String(), "400")
}

func Test_Handler_OnTraffic_RedirectLocation(t *testing.T) {
	server := &config.ServerConfig{
		Locations: []*config.LocationConfig{
			{Path: "/old", Redirect: config.Redirect{Code: 301, Target: "/new"}},
		},
	}
	conn := &fakeConn{server: server, pending: []byte("GET /old HTTP/1.1\r\nHost: x\r\n\r\n")}
	h := NewHandler()
	action := h.OnTraffic(conn)

	assert.Equal(t, core.Close, action)
	assert.Contains(t, conn.out.String(), "301")
	assert.Contains(t, conn.out.String(), "Location: /new")
}
