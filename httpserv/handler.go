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

// Package httpserv implements the HTTP/1.x origin-server semantics
// (parsing, routing, and the GET/POST/DELETE/CGI dispatch) that core's
// connection engine is oblivious to.
package httpserv

import (
	"strconv"
	"time"

	"webserv/core"
	gerrors "webserv/core/pkg/errors"
	"webserv/core/pkg/logging"
)

// Handler binds the request parser and method dispatch onto a core.Conn,
// implementing core.EventHandler. One Handler instance is shared across
// every connection the engine accepts; per-connection state lives in the
// *Parser each Conn carries via SetContext/Context.
type Handler struct {
	core.BuiltinEventEngine
}

// NewHandler returns a ready-to-use core.EventHandler for Run.
func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) OnBoot(eng core.Engine) core.Action {
	logging.Info("webserv engine booted")
	return core.None
}

func (h *Handler) OnShutdown(eng core.Engine) {
	logging.Info("webserv engine shut down")
}

// OnOpened seeds the connection's parser; the engine itself already tracks
// TotalConnections/CurrConnections (see eventloop.go), so there is nothing
// else for the handler to account here.
func (h *Handler) OnOpened(c core.Conn) core.Action {
	c.SetContext(NewParser())
	return core.None
}

func (h *Handler) OnClosed(c core.Conn, err error) {}

func (h *Handler) OnTick() (time.Duration, core.Action) {
	return time.Second, core.None
}

// OnTraffic feeds whatever the connection has accumulated into the parser,
// discarding exactly what the parser consumed, and dispatches a response
// once a full request has arrived. Per spec §4.3/§8, a connection serves
// exactly one request: after the response is written the connection is
// always closed, never kept alive for a second request.
func (h *Handler) OnTraffic(c core.Conn) core.Action {
	parser, _ := c.Context().(*Parser)
	if parser == nil {
		parser = NewParser()
		c.SetContext(parser)
	}

	data := c.Read()
	consumed, result := parser.Parse(data)
	if consumed > 0 {
		c.Discard(consumed)
	}

	switch result {
	case NeedMore:
		return core.None
	case ParseError:
		resp := parseErrorResponse(parser.Err())
		core.GlobalStats.RequestsTotal.WithLabelValues(strconv.Itoa(resp.Status)).Inc()
		_, _ = c.Write(resp.Serialize())
		return core.Close
	case Complete:
		resp := dispatch(parser.Request(), c.ServerConfig())
		core.GlobalStats.RequestsTotal.WithLabelValues(strconv.Itoa(resp.Status)).Inc()
		_, _ = c.Write(resp.Serialize())
		return core.Close
	default:
		return core.None
	}
}

// parseErrorResponse maps a parser error to the status code spec §7 assigns
// it: InvalidMethodName -> 405, MissingContentLength/InvalidContentLength ->
// 411, everything else (including URI-too-long and duplicate headers) -> 400.
func parseErrorResponse(err error) *Response {
	switch err {
	case gerrors.ErrInvalidMethodName:
		return errorBody(405, "Method Not Allowed")
	case gerrors.ErrMissingContentLength, gerrors.ErrInvalidContentLength:
		return errorBody(411, "Length Required")
	default:
		return errorBody(400, "Bad Request")
	}
}
