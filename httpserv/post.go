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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"webserv/config"
	"webserv/core"
)

// handlePost implements spec §4.6's POST algorithm.
func handlePost(req *Request, loc *config.LocationConfig, server *config.ServerConfig, full string) *Response {
	contentType, _ := req.Header("content-type")

	ext := filepath.Ext(full)
	if interp, ok := cgiInterpreter(loc, ext); ok {
		return runCGI(req, loc, server, full, ext, interp)
	}

	isMultipart := strings.Contains(contentType, "multipart/form-data")
	if loc.UploadPath == "" && isMultipart {
		return errorBody(403, "File uploads not allowed")
	}
	if loc.UploadPath == "" {
		return NewResponse(200, []byte("<html><body><h1>POST Request Received</h1><p>Data accepted</p></body></html>"), "text/html; charset=utf-8")
	}

	if !req.ContentLengthPresent {
		return ErrorResponse(411, "Length Required", server)
	}

	maxBody := loc.EffectiveMaxBodySize(server)
	if int64(req.ContentLength) > maxBody {
		return ErrorResponse(413, "Payload Too Large", server)
	}

	if resp := ensureUploadDirectory(loc.UploadPath, server); resp != nil {
		return resp
	}

	if len(req.Body) != req.ContentLength {
		return ErrorResponse(400, "Incomplete request body", server)
	}

	core.GlobalStats.RequestBytes.WithLabelValues(req.Method).Add(float64(len(req.Body)))

	switch {
	case isMultipart:
		boundary := extractBoundary(contentType)
		if boundary == "" {
			return ErrorResponse(400, "Missing boundary", server)
		}
		saved, err := parseMultipart(req.Body, boundary, loc.UploadPath)
		if err != nil {
			return ErrorResponse(500, "Failed to save file", server)
		}
		if len(saved) == 0 {
			return ErrorResponse(400, "No files uploaded", server)
		}
		core.GlobalStats.UploadBytes.WithLabelValues().Add(float64(len(req.Body)))
		return NewResponse(201, multipartSuccessPage(saved), "text/html; charset=utf-8")

	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		return NewResponse(200, []byte("<html><body><h1>Form Data Received</h1></body></html>"), "text/html; charset=utf-8")

	default:
		return savePlainBody(req, loc, server)
	}
}

func savePlainBody(req *Request, loc *config.LocationConfig, server *config.ServerConfig) *Response {
	filename := fmt.Sprintf("upload_%d.dat", time.Now().Unix())
	filePath := filepath.Join(loc.UploadPath, filename)
	if err := os.WriteFile(filePath, req.Body, 0644); err != nil {
		return ErrorResponse(500, "Failed to save file", server)
	}
	core.GlobalStats.UploadBytes.WithLabelValues().Add(float64(len(req.Body)))
	html := fmt.Sprintf(
		"<html><body><h1>File Uploaded</h1><p>File saved to: %s</p><p>Size: %d bytes</p></body></html>",
		filePath, len(req.Body),
	)
	return NewResponse(201, []byte(html), "text/html")
}

// ensureUploadDirectory creates loc's upload directory with mode 0755 when
// missing and checks that an existing path is a writable directory,
// grounded on HelpersMethods.cpp's ensureUploadDirectory. Returns a non-nil
// response on failure, nil on success.
func ensureUploadDirectory(path string, server *config.ServerConfig) *Response {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return ErrorResponse(500, "Upload path is not a directory", server)
		}
		if unix.Access(path, unix.W_OK) != nil {
			return ErrorResponse(500, "Upload directory not writable", server)
		}
		return nil
	}
	if err := os.Mkdir(path, 0755); err != nil {
		return ErrorResponse(500, "Cannot create upload directory", server)
	}
	return nil
}
