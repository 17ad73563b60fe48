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

// resolveLocation picks the longest-prefix-matching location for path among
// server's locations, per spec §4.5. Ties are broken by first occurrence
// since later, equally-long candidates never replace an existing best.
func resolveLocation(server *config.ServerConfig, path string) (*config.LocationConfig, bool) {
	var best *config.LocationConfig
	for _, loc := range server.Locations {
		if !hasPrefix(path, loc.Path) {
			continue
		}
		if best == nil || len(loc.Path) > len(best.Path) {
			best = loc
		}
	}
	return best, best != nil
}

func hasPrefix(path, prefix string) bool {
	return len(path) >= len(prefix) && path[:len(prefix)] == prefix
}

// fullPath composes the filesystem path for a matched location per §4.5:
// the location's root concatenated with the request path, stripped of the
// location's own prefix unless the location is "/".
func fullPath(loc *config.LocationConfig, reqPath string) string {
	if loc.Path != "/" && hasPrefix(reqPath, loc.Path) {
		rel := reqPath[len(loc.Path):]
		if rel == "" {
			rel = "/"
		} else if rel[0] != '/' {
			rel = "/" + rel
		}
		return loc.Root + rel
	}
	return loc.Root + reqPath
}
