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
	"os"

	"webserv/config"
	"webserv/core/pkg/logging"
)

// ErrorResponse builds the error response for a failed request: the
// configured error_pages file for this status if one is set and readable,
// otherwise a small generated HTML body naming the code and detail, per
// spec §7's "user-visible behaviour" requirement.
func ErrorResponse(code int, detail string, server *config.ServerConfig) *Response {
	if server != nil {
		if path, ok := server.ErrorPages[code]; ok {
			body, err := os.ReadFile(path)
			if err == nil {
				return NewResponse(code, body, "text/html; charset=utf-8")
			}
			logging.Warnf("error page %s for status %d unreadable: %v", path, code, err)
		}
	}
	return errorBody(code, detail)
}
