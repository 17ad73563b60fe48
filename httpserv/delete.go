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
	"path/filepath"
	"strings"

	"webserv/config"
)

// handleDelete implements spec §4.6's DELETE algorithm: a path-containment
// check ahead of the filesystem stat, then a plain unlink.
func handleDelete(loc *config.LocationConfig, server *config.ServerConfig, full string) *Response {
	if !isPathSafe(full, loc.Root) {
		return ErrorResponse(403, "Forbidden", server)
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrorResponse(404, "File not found", server)
		}
		return ErrorResponse(403, "Access denied", server)
	}
	if info.IsDir() {
		return ErrorResponse(403, "Cannot delete a directory", server)
	}

	if err := os.Remove(full); err != nil {
		if os.IsPermission(err) {
			return ErrorResponse(403, "Forbidden", server)
		}
		return ErrorResponse(500, "Failed to delete file", server)
	}

	return NewResponse(200, []byte("<html><body><h1>File Deleted</h1></body></html>"), "text/html; charset=utf-8")
}

// isPathSafe reports whether target's containing directory resolves to a
// path still inside root, rejecting any ../ escape, grounded exactly on
// HelpersMethods.cpp's isPathSafe: both root and target's parent directory
// must already exist and realpath-resolve (symlinks included), and the
// resolved parent must have the resolved root as a path prefix. A target
// whose parent directory doesn't exist, or whose resolved path escapes
// root, is unsafe.
func isPathSafe(target, root string) bool {
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false
	}

	parent := filepath.Dir(target)
	resolvedParent, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return false
	}

	return strings.HasPrefix(resolvedParent, resolvedRoot)
}
