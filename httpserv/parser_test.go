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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "webserv/core/pkg/errors"
)

func Test_Parse_SimpleGet(t *testing.T) {
	p := NewParser()
	raw := []byte("GET /index.html?x=1 HTTP/1.1\r\nHost: example.com\r\n\r\n")
	consumed, result := p.Parse(raw)

	require.Equal(t, Complete, result)
	assert.Equal(t, len(raw), consumed)
	assert.Equal(t, "GET", p.Request().Method)
	assert.Equal(t, "/index.html", p.Request().Path)
	assert.Equal(t, "x=1", p.Request().QueryString)
	assert.Equal(t, "HTTP/1.1", p.Request().Version)
	host, ok := p.Request().Header("Host")
	assert.True(t, ok)
	assert.Equal(t, "example.com", host)
}

// Test_Parse_ByteAtATime delivers the request one byte at a time to verify
// the incremental contract: like the connection, the test keeps the bytes
// Parse did not consume and hands them back with the next byte. Parse must
// report NeedMore at every partial boundary and eventually converge on the
// same result regardless of how the bytes arrived.
func Test_Parse_ByteAtATime(t *testing.T) {
	raw := []byte("POST /upload HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")
	p := NewParser()

	var result ParseResult
	var pending []byte
	for i := 0; i < len(raw); i++ {
		var c int
		pending = append(pending, raw[i])
		c, result = p.Parse(pending)
		assert.LessOrEqual(t, c, len(pending))
		pending = pending[c:]
		if result == Complete {
			break
		}
	}

	require.Equal(t, Complete, result)
	assert.Equal(t, "POST", p.Request().Method)
	assert.Equal(t, []byte("hello"), p.Request().Body)
}

func Test_Parse_MalformedRequestLine(t *testing.T) {
	p := NewParser()
	_, result := p.Parse([]byte("GET/index.html HTTP/1.1\r\n\r\n"))
	require.Equal(t, ParseError, result)
	assert.Equal(t, gerrors.ErrMalformedRequestLine, p.Err())
}

func Test_Parse_InvalidMethod(t *testing.T) {
	p := NewParser()
	_, result := p.Parse([]byte("get / HTTP/1.1\r\n\r\n"))
	require.Equal(t, ParseError, result)
	assert.Equal(t, gerrors.ErrInvalidMethodName, p.Err())
}

func Test_Parse_URITooLong(t *testing.T) {
	longPath := "/" + strings.Repeat("a", 2000)
	p := NewParser()
	line := []byte("GET " + longPath + " HTTP/1.1\r\n\r\n")
	_, result := p.Parse(line)
	require.Equal(t, ParseError, result)
	assert.Equal(t, gerrors.ErrURITooLong, p.Err())
}

func Test_Parse_DuplicateHostHeader(t *testing.T) {
	p := NewParser()
	raw := []byte("GET / HTTP/1.1\r\nHost: a\r\nHost: b\r\n\r\n")
	_, result := p.Parse(raw)
	require.Equal(t, ParseError, result)
	assert.Equal(t, gerrors.ErrDuplicateHeader, p.Err())
}

func Test_Parse_InvalidContentLength(t *testing.T) {
	p := NewParser()
	raw := []byte("POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n")
	_, result := p.Parse(raw)
	require.Equal(t, ParseError, result)
	assert.Equal(t, gerrors.ErrInvalidContentLength, p.Err())
}

func Test_PercentDecode_RoundTrip(t *testing.T) {
	assert.Equal(t, "/a b", percentDecode("/a%20b"))
	assert.Equal(t, "/a%b", percentDecode("/a%b"))
	assert.Equal(t, "/a%2", percentDecode("/a%2"))
	assert.Equal(t, "/", percentDecode("/"))
}
