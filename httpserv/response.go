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
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/valyala/bytebufferpool"
)

// Response is the in-memory form of an outgoing HTTP response, serialised
// to the wire as "HTTP/1.1 <code> <reason>\r\n<headers>\r\n<body>" per
// spec §3. Every response carries Content-Length and Connection: close.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

var reasonPhrases = map[int]string{
	200: "OK",
	201: "Created",
	301: "Moved Permanently",
	302: "Found",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	411: "Length Required",
	413: "Payload Too Large",
	414: "URI Too Long",
	500: "Internal Server Error",
}

// reason returns the reason phrase for code, falling back to a generic one.
func reason(code int) string {
	if r, ok := reasonPhrases[code]; ok {
		return r
	}
	return "Unknown Status"
}

// NewResponse builds a response with the given status, body, and content type.
func NewResponse(status int, body []byte, contentType string) *Response {
	return &Response{
		Status:  status,
		Headers: map[string]string{"Content-Type": contentType},
		Body:    body,
	}
}

// SetHeader sets (or overwrites) a response header.
func (r *Response) SetHeader(name, value string) {
	r.Headers[name] = value
}

// SetLastModified sets Last-Modified from a file modification time.
func (r *Response) SetLastModified(t time.Time) {
	r.SetHeader("Last-Modified", t.UTC().Format(time.RFC1123))
}

// Serialize renders the full wire form of the response: status line,
// headers (Content-Length and Connection: close always present), blank
// line, body. Scratch space for the build-up comes from a bytebufferpool
// buffer, returned to the pool once the final byte slice has been copied
// out of it, since one connection emits exactly one response.
func (r *Response) Serialize() []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(r.Status))
	buf.WriteByte(' ')
	buf.WriteString(reason(r.Status))
	buf.WriteString("\r\n")

	buf.WriteString("Content-Length: ")
	buf.WriteString(strconv.Itoa(len(r.Body)))
	buf.WriteString("\r\n")
	buf.WriteString("Connection: close\r\n")

	names := make([]string, 0, len(r.Headers))
	for name := range r.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(r.Headers[name])
		buf.WriteString("\r\n")
	}

	buf.WriteString("\r\n")
	buf.Write(r.Body)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// Redirect builds a redirect response per a location's `return` directive.
func Redirect(status int, target string) *Response {
	resp := NewResponse(status, nil, "text/html; charset=utf-8")
	resp.SetHeader("Location", target)
	return resp
}

// MethodNotAllowed builds a 405 response carrying the Allow header.
func MethodNotAllowed(allowed []string) *Response {
	resp := errorBody(405, "Method Not Allowed")
	resp.SetHeader("Allow", joinComma(allowed))
	return resp
}

func joinComma(items []string) string {
	var buf bytes.Buffer
	for i, it := range items {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(it)
	}
	return buf.String()
}

// errorBody builds a plain, self-contained HTML error response with no
// configured error-page override; see ErrorResponse for the overridable form.
func errorBody(code int, detail string) *Response {
	html := fmt.Sprintf(
		"<html><body><h1>%d %s</h1><p>%s</p></body></html>",
		code, reason(code), detail,
	)
	return NewResponse(code, []byte(html), "text/html; charset=utf-8")
}
