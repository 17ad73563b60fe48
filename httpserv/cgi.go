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
	"os/exec"
	"strconv"
	"strings"

	"webserv/config"
	"webserv/core"
	"webserv/core/pkg/logging"
)

// runCGI invokes the interpreter (or the script directly, when interpreter
// is empty) for scriptPath against req, per spec §4.8. Go cannot safely
// fork a multi-threaded process without exec, so os/exec's
// StdinPipe/StdoutPipe/Start/Wait plays the role of
// CGIHandler.cpp's pipe/fork/dup2/execve/waitpid sequence while preserving
// the same observable contract: argv, env, a blocking stdin write, stdout
// drained to EOF, and an exit-code gate on the 200-vs-500 decision.
func runCGI(req *Request, loc *config.LocationConfig, server *config.ServerConfig, scriptPath, ext, interpreter string) *Response {
	var cmd *exec.Cmd
	if interpreter == "" {
		cmd = exec.Command(scriptPath)
	} else {
		cmd = exec.Command(interpreter, scriptPath)
	}
	cmd.Env = cgiEnviron(req, server, scriptPath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		core.GlobalStats.CGIErrors.WithLabelValues(ext).Inc()
		return errorBody(500, "CGI execution failed")
	}
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Start(); err != nil {
		logging.Warnf("cgi start failed for %s: %v", scriptPath, err)
		core.GlobalStats.CGIErrors.WithLabelValues(ext).Inc()
		return errorBody(500, "CGI execution failed")
	}

	if req.Method == "POST" && len(req.Body) > 0 {
		_, _ = stdin.Write(req.Body)
	}
	_ = stdin.Close()

	err = cmd.Wait()
	core.GlobalStats.CGIInvocations.WithLabelValues(ext).Inc()
	if err != nil {
		logging.Warnf("cgi %s exited with error: %v", scriptPath, err)
		core.GlobalStats.CGIErrors.WithLabelValues(ext).Inc()
		return errorBody(500, "CGI execution failed")
	}

	return &Response{Status: 200, Headers: map[string]string{}, Body: stdout.Bytes()}
}

// cgiEnviron builds the CGI/1.0 environment block for req, per spec §4.8's
// table, grounded on CGIHandler.cpp's prepareEnv.
func cgiEnviron(req *Request, server *config.ServerConfig, scriptPath string) []string {
	env := []string{
		"GATEWAY_INTERFACE=CGI/1.0",
		"SERVER_PROTOCOL=HTTP/1.0",
		"SCRIPT_NAME=" + scriptPath,
		"SCRIPT_FILENAME=" + scriptPath,
		"REQUEST_METHOD=" + req.Method,
		"QUERY_STRING=" + req.QueryString,
		"SERVER_NAME=" + server.ServerName,
		"SERVER_PORT=" + strconv.Itoa(server.Port),
		"SERVER_PROTOCOL=" + req.Version,
		"REMOTE_ADDR=",
	}

	if req.Method == "POST" && req.ContentLength > 0 {
		ct, _ := req.Header("content-type")
		env = append(env, "CONTENT_TYPE="+ct)
		env = append(env, "CONTENT_LENGTH="+strconv.Itoa(req.ContentLength))
	}

	for name, value := range req.Headers {
		if name == "content-type" || name == "content-length" {
			continue
		}
		env = append(env, httpEnvName(name)+"="+value)
	}
	return env
}

func httpEnvName(headerName string) string {
	var b strings.Builder
	b.WriteString("HTTP_")
	for i := 0; i < len(headerName); i++ {
		c := headerName[i]
		switch {
		case c == '-':
			b.WriteByte('_')
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
