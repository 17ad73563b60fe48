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

package config

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// parseDirectives reads the nginx-style surface syntax described in spec §6:
//
//	server {
//	    listen 8080;
//	    host 0.0.0.0;
//	    server_name example;
//	    error_page 404 500 ./www/error.html;
//	    client_max_body_size 10M;
//	    location / {
//	        methods GET POST;
//	        root ./www;
//	        index index.html index.htm;
//	        autoindex on;
//	        upload_path ./uploads;
//	        return 301 /elsewhere;
//	        cgi .py /usr/bin/python3;
//	        client_max_body_size 1M;
//	    }
//	}
//
// A handful of top-level scalar directives outside any server block
// (admin_port, log_path, log_level, log_expire_day) configure the ambient
// stack the core itself does not know about.
func parseDirectives(src string) (*Config, error) {
	lines := stripComments(src)

	cfg := &Config{
		AdminPort:    0,
		LogPath:      "./log",
		LogLevel:     "info",
		LogExpireDay: 7,
	}

	for i := 0; i < len(lines); i++ {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "server":
			if !blockOpensHere(fields, lines, &i) {
				return nil, errors.New("server block missing opening brace")
			}
			srv, next, err := parseServerBlock(lines, i+1)
			if err != nil {
				return nil, err
			}
			cfg.Servers = append(cfg.Servers, srv)
			i = next
		case "admin_port":
			if len(fields) < 2 {
				return nil, errors.New("admin_port directive requires a value")
			}
			port, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, errors.Wrapf(err, "invalid admin_port %q", fields[1])
			}
			cfg.AdminPort = port
		case "log_path":
			if len(fields) < 2 {
				return nil, errors.New("log_path directive requires a value")
			}
			cfg.LogPath = fields[1]
		case "log_level":
			if len(fields) < 2 {
				return nil, errors.New("log_level directive requires a value")
			}
			cfg.LogLevel = fields[1]
		case "log_expire_day":
			if len(fields) < 2 {
				return nil, errors.New("log_expire_day directive requires a value")
			}
			days, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, errors.Wrapf(err, "invalid log_expire_day %q", fields[1])
			}
			cfg.LogExpireDay = days
		default:
			return nil, errors.Errorf("unknown top-level directive %q", fields[0])
		}
	}

	if len(cfg.Servers) == 0 {
		return nil, errors.New("no server blocks found in configuration file")
	}
	return cfg, nil
}

// blockOpensHere reports whether the "{" for the directive starting at
// lines[*i] is on the same line or the line that immediately follows it,
// advancing *i past whichever line carried it.
func blockOpensHere(fields []string, lines []string, i *int) bool {
	if strings.Contains(lines[*i], "{") {
		return true
	}
	if *i+1 < len(lines) && strings.TrimSpace(lines[*i+1]) == "{" {
		*i++
		return true
	}
	return false
}

func parseServerBlock(lines []string, start int) (*ServerConfig, int, error) {
	srv := &ServerConfig{
		Host:              "0.0.0.0",
		Port:              80,
		ClientMaxBodySize: defaultClientMaxBodySize,
		ErrorPages:        make(map[int]string),
	}

	i := start
	for ; i < len(lines); i++ {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "}" {
			return srv, i, nil
		}

		switch fields[0] {
		case "listen":
			if len(fields) < 2 {
				return nil, 0, errors.New("listen directive requires a value")
			}
			host, port, err := parseListen(fields[1])
			if err != nil {
				return nil, 0, err
			}
			if host != "" {
				srv.Host = host
			}
			srv.Port = port
		case "host":
			if len(fields) < 2 {
				return nil, 0, errors.New("host directive requires a value")
			}
			srv.Host = fields[1]
		case "server_name":
			if len(fields) < 2 {
				return nil, 0, errors.New("server_name directive requires a value")
			}
			srv.ServerName = fields[1]
		case "error_page":
			if len(fields) < 3 {
				return nil, 0, errors.New("error_page directive requires at least one code and a path")
			}
			page := fields[len(fields)-1]
			for _, tok := range fields[1 : len(fields)-1] {
				code, err := strconv.Atoi(tok)
				if err != nil {
					return nil, 0, errors.Wrapf(err, "invalid error_page status code %q", tok)
				}
				srv.ErrorPages[code] = page
			}
		case "client_max_body_size":
			if len(fields) < 2 {
				return nil, 0, errors.New("client_max_body_size directive requires a value")
			}
			size, err := parseSize(fields[1])
			if err != nil {
				return nil, 0, err
			}
			srv.ClientMaxBodySize = size
		case "location":
			if len(fields) < 2 || !strings.HasPrefix(fields[1], "/") {
				return nil, 0, errors.Errorf("location path must start with '/': %q", strings.Join(fields[1:], " "))
			}
			if !blockOpensHere(fields, lines, &i) {
				return nil, 0, errors.Errorf("location %s missing opening brace", fields[1])
			}
			loc, next, err := parseLocationBlock(lines, i+1, fields[1])
			if err != nil {
				return nil, 0, err
			}
			srv.Locations = append(srv.Locations, loc)
			i = next
		default:
			return nil, 0, errors.Errorf("unknown server directive %q", fields[0])
		}
	}
	return nil, 0, errors.New("unterminated server block")
}

func parseLocationBlock(lines []string, start int, path string) (*LocationConfig, int, error) {
	loc := &LocationConfig{
		Path:    path,
		Methods: make(map[string]bool),
		CGI:     make(map[string]string),
	}

	i := start
	for ; i < len(lines); i++ {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "}" {
			if len(loc.Methods) == 0 {
				loc.Methods["GET"] = true
			}
			return loc, i, nil
		}

		switch fields[0] {
		case "methods":
			for _, m := range fields[1:] {
				loc.Methods[strings.ToUpper(m)] = true
			}
		case "root":
			if len(fields) < 2 {
				return nil, 0, errors.New("root directive requires a value")
			}
			loc.Root = fields[1]
		case "index":
			loc.Index = append([]string(nil), fields[1:]...)
		case "autoindex":
			if len(fields) < 2 {
				return nil, 0, errors.New("autoindex directive requires on|off")
			}
			loc.Autoindex = fields[1] == "on"
		case "upload_path":
			if len(fields) < 2 {
				return nil, 0, errors.New("upload_path directive requires a value")
			}
			loc.UploadPath = fields[1]
		case "return":
			if len(fields) < 3 {
				return nil, 0, errors.New("return directive requires a status code and a target")
			}
			code, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, 0, errors.Wrapf(err, "invalid return status code %q", fields[1])
			}
			loc.Redirect = Redirect{Code: code, Target: fields[2]}
		case "cgi":
			if len(fields) < 2 {
				return nil, 0, errors.New("cgi directive requires an extension")
			}
			ext := fields[1]
			interpreter := ""
			if len(fields) >= 3 {
				interpreter = fields[2]
			}
			loc.CGI[ext] = interpreter
		case "client_max_body_size":
			if len(fields) < 2 {
				return nil, 0, errors.New("client_max_body_size directive requires a value")
			}
			size, err := parseSize(fields[1])
			if err != nil {
				return nil, 0, err
			}
			loc.ClientMaxBodySize = size
			loc.HasBodySize = true
		default:
			return nil, 0, errors.Errorf("unknown location directive %q", fields[0])
		}
	}
	return nil, 0, errors.Errorf("unterminated location block for path %s", path)
}

func parseListen(value string) (host string, port int, err error) {
	value = strings.TrimSuffix(value, ";")
	if idx := strings.LastIndex(value, ":"); idx >= 0 {
		host = value[:idx]
		port, err = strconv.Atoi(value[idx+1:])
		return
	}
	port, err = strconv.Atoi(value)
	return
}

// parseSize parses a decimal byte count with an optional K/M/G suffix, e.g. "10M".
func parseSize(value string) (int64, error) {
	value = strings.TrimSuffix(value, ";")
	if value == "" {
		return 0, errors.New("empty size value")
	}
	mult := int64(1)
	switch value[len(value)-1] {
	case 'K', 'k':
		mult = 1 << 10
		value = value[:len(value)-1]
	case 'M', 'm':
		mult = 1 << 20
		value = value[:len(value)-1]
	case 'G', 'g':
		mult = 1 << 30
		value = value[:len(value)-1]
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", value)
	}
	return n * mult, nil
}

// stripComments splits src into lines with trailing '#' comments and
// surrounding whitespace removed; every ';' is replaced with a space, so the
// field parsers above see bare tokens, matching the original parser's
// token-by-token tolerance for trailing ';'.
func stripComments(src string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(src))
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		lines = append(lines, strings.TrimSpace(strings.ReplaceAll(line, ";", " ")))
	}
	return lines
}
