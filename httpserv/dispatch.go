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

import "webserv/config"

// dispatch routes req against server's location table and runs the matched
// method handler, per spec §4.5/§4.6: location resolution, a redirect
// check, a method-allowed check, then GET/POST/DELETE.
func dispatch(req *Request, server *config.ServerConfig) *Response {
	if server == nil {
		return errorBody(500, "No matching server")
	}

	loc, ok := resolveLocation(server, req.Path)
	if !ok {
		return ErrorResponse(404, "Not Found", server)
	}

	if loc.Redirect.Target != "" {
		return Redirect(loc.Redirect.Code, loc.Redirect.Target)
	}

	if !loc.AllowsMethod(req.Method) {
		resp := MethodNotAllowed(loc.AllowedMethods())
		return resp
	}

	full := fullPath(loc, req.Path)

	switch req.Method {
	case "GET":
		return handleGet(req, loc, server, full)
	case "POST":
		return handlePost(req, loc, server, full)
	case "DELETE":
		return handleDelete(loc, server, full)
	default:
		return MethodNotAllowed(loc.AllowedMethods())
	}
}
