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
	"strconv"
	"strings"

	gerrors "webserv/core/pkg/errors"
)

// ParseResult is the outcome of one Parser.Parse call.
type ParseResult int

const (
	// NeedMore means the buffer held no complete token; feed more bytes.
	NeedMore ParseResult = iota
	// Complete means the request has been fully parsed.
	Complete
	// ParseError means the request is malformed; Parser.Err holds the reason.
	ParseError
)

type parserState int

const (
	stateRequestLine parserState = iota
	stateHeaders
	stateBody
	stateComplete
	stateError
)

const maxURILength = 1024

var crlf = []byte("\r\n")

// Parser is the incremental HTTP/1.x request parser described in spec §4.4:
// it is fed whatever bytes are currently pending on the connection and
// reports how many of them it consumed, leaving the remainder for the next
// call. Once Complete or ParseError is reached, further Parse calls are a
// no-op that reports the same terminal result.
type Parser struct {
	state  parserState
	req    *Request
	needed int // remaining body bytes still to read, valid in stateBody
	err    error
}

// NewParser returns a parser ready to parse a new request.
func NewParser() *Parser {
	return &Parser{state: stateRequestLine, req: newRequest()}
}

// Request returns the request built so far; only meaningful once Parse has
// returned Complete.
func (p *Parser) Request() *Request { return p.req }

// Err is the error kind associated with a ParseError result.
func (p *Parser) Err() error { return p.err }

// Parse consumes as much of buf as it can from the front, returning the
// number of bytes consumed and the resulting state. buf is never mutated.
func (p *Parser) Parse(buf []byte) (consumed int, result ParseResult) {
	for {
		switch p.state {
		case stateComplete:
			return consumed, Complete
		case stateError:
			return consumed, ParseError

		case stateRequestLine:
			rest := buf[consumed:]
			idx := bytes.Index(rest, crlf)
			if idx < 0 {
				return consumed, NeedMore
			}
			line := rest[:idx]
			consumed += idx + 2
			if err := p.parseRequestLine(line); err != nil {
				p.fail(err)
				return consumed, ParseError
			}
			p.state = stateHeaders

		case stateHeaders:
			rest := buf[consumed:]
			idx := bytes.Index(rest, crlf)
			if idx < 0 {
				return consumed, NeedMore
			}
			line := rest[:idx]
			consumed += idx + 2
			if len(line) == 0 {
				if p.req.Method == "POST" && p.req.ContentLength > 0 {
					p.needed = p.req.ContentLength
					p.state = stateBody
					continue
				}
				p.state = stateComplete
				return consumed, Complete
			}
			if err := p.parseHeaderLine(line); err != nil {
				p.fail(err)
				return consumed, ParseError
			}

		case stateBody:
			rest := buf[consumed:]
			remaining := p.needed - len(p.req.Body)
			if len(rest) < remaining {
				p.req.Body = append(p.req.Body, rest...)
				consumed += len(rest)
				return consumed, NeedMore
			}
			p.req.Body = append(p.req.Body, rest[:remaining]...)
			consumed += remaining
			p.state = stateComplete
			return consumed, Complete
		}
	}
}

func (p *Parser) fail(err error) {
	p.state = stateError
	p.err = err
}

func (p *Parser) parseRequestLine(line []byte) error {
	if bytes.Count(line, []byte(" ")) != 2 {
		return gerrors.ErrMalformedRequestLine
	}
	parts := bytes.SplitN(line, []byte(" "), 3)
	method, uri, version := string(parts[0]), string(parts[1]), string(parts[2])

	if !isValidMethod(method) {
		return gerrors.ErrInvalidMethodName
	}
	p.req.Method = method
	p.req.Version = version

	if uri == "" {
		return gerrors.ErrMalformedRequestLine
	}
	rawPath, query := uri, ""
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		rawPath, query = uri[:i], uri[i+1:]
	}
	if rawPath == "" || rawPath[0] != '/' {
		return gerrors.ErrMalformedRequestLine
	}
	decoded := percentDecode(rawPath)
	if len(decoded) > maxURILength {
		return gerrors.ErrURITooLong
	}
	p.req.Path = decoded
	p.req.QueryString = query
	return nil
}

func isValidMethod(m string) bool {
	if m == "" {
		return false
	}
	for i := 0; i < len(m); i++ {
		if m[i] < 'A' || m[i] > 'Z' {
			return false
		}
	}
	return true
}

var singletonHeaders = map[string]bool{
	"host":           true,
	"content-length": true,
	"content-type":   true,
}

func (p *Parser) parseHeaderLine(line []byte) error {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return gerrors.ErrMalformedHeader
	}
	name := lower(string(line[:idx]))
	value := strings.Trim(string(line[idx+1:]), " \t")

	if singletonHeaders[name] {
		if _, exists := p.req.Headers[name]; exists {
			return gerrors.ErrDuplicateHeader
		}
	}

	if name == "content-length" {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return gerrors.ErrInvalidContentLength
		}
		p.req.ContentLengthPresent = true
		p.req.ContentLength = n
	}

	p.req.Headers[name] = value
	return nil
}

func lower(s string) string { return strings.ToLower(s) }

// percentDecode decodes %XX escapes in s, leaving malformed escapes (a '%'
// not followed by two hex digits) untouched in the output, per spec §4.4.
func percentDecode(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
