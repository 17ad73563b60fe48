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

// Package config loads and validates the server's configuration tree. The
// engine in package core never reads a config file itself; it consumes the
// *ServerConfig slice this package hands back, fully validated.
package config

import (
	"fmt"
	"io/ioutil"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"webserv/core/pkg/logging"
)

const defaultClientMaxBodySize = 1 << 20 // 1 MiB

// Redirect is a location's optional `return <code> <target>` directive.
type Redirect struct {
	Code   int    `yaml:"code,omitempty"`
	Target string `yaml:"target,omitempty"`
}

// LocationConfig is one `location <path> { ... }` block.
type LocationConfig struct {
	Path              string            `yaml:"path"`
	Root              string            `yaml:"root,omitempty"`
	Methods           map[string]bool   `yaml:"methods"`
	Index             []string          `yaml:"index,omitempty"`
	Autoindex         bool              `yaml:"autoindex"`
	UploadPath        string            `yaml:"upload_path,omitempty"`
	Redirect          Redirect          `yaml:"redirect,omitempty"`
	CGI               map[string]string `yaml:"cgi,omitempty"` // extension (with leading dot) -> interpreter path, "" means directly executable
	ClientMaxBodySize int64             `yaml:"client_max_body_size,omitempty"`
	HasBodySize       bool              `yaml:"has_body_size"`
}

// EffectiveMaxBodySize resolves this location's body-size cap, falling back
// to the owning server's default when no override was configured.
func (l *LocationConfig) EffectiveMaxBodySize(server *ServerConfig) int64 {
	if l.HasBodySize {
		return l.ClientMaxBodySize
	}
	return server.ClientMaxBodySize
}

// AllowsMethod reports whether method is permitted on this location.
func (l *LocationConfig) AllowsMethod(method string) bool {
	return l.Methods[method]
}

// AllowedMethods returns the location's permitted methods among GET, POST
// and DELETE, in that fixed order, for building an Allow header; methods
// outside those three are not included.
func (l *LocationConfig) AllowedMethods() []string {
	order := []string{"GET", "POST", "DELETE"}
	out := make([]string, 0, len(order))
	for _, m := range order {
		if l.Methods[m] {
			out = append(out, m)
		}
	}
	return out
}

// ServerConfig is one `server { ... }` block: a bind address plus the
// location table the dispatcher probes against it.
type ServerConfig struct {
	Host              string            `yaml:"host"`
	Port              int               `yaml:"port"`
	ServerName        string            `yaml:"server_name,omitempty"`
	ClientMaxBodySize int64             `yaml:"client_max_body_size"`
	ErrorPages        map[int]string    `yaml:"error_pages,omitempty"`
	Locations         []*LocationConfig `yaml:"locations"`
}

// Listen is the "host:port" string package core binds a listener on.
func (s *ServerConfig) Listen() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Config is the top-level, fully validated configuration tree.
type Config struct {
	AdminPort    int             `yaml:"admin_port"`
	LogPath      string          `yaml:"log_path"`
	LogLevel     string          `yaml:"log_level"`
	LogExpireDay int             `yaml:"log_expire_day"`
	Servers      []*ServerConfig `yaml:"servers"`
}

// LoadConfig reads the nginx-style directive file at fileName and returns
// the validated configuration tree.
func LoadConfig(fileName string) (*Config, error) {
	raw, err := ioutil.ReadFile(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file from %s", fileName)
	}

	cfg, err := parseDirectives(string(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse config from %s", fileName)
	}

	if err = cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "config validate failed")
	}
	return cfg, nil
}

// DumpYAML renders the resolved, in-memory configuration tree back to YAML,
// used for the admin sidecar's /config endpoint so operators can see
// exactly what the directive grammar resolved to.
func (c *Config) DumpYAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "failed to render config as yaml")
	}
	return string(out), nil
}

func (c *Config) validate() error {
	c.LogLevel = strings.ToUpper(c.LogLevel)
	if _, ok := logging.LevelMapperRev[c.LogLevel]; !ok {
		return errors.Errorf("unknown log level %s", c.LogLevel)
	}
	if len(c.Servers) == 0 {
		return errors.New("config must declare at least one server block")
	}

	seenHostPort := make(map[string]bool)
	for _, srv := range c.Servers {
		key := fmt.Sprintf("%s:%d", srv.Host, srv.Port)
		if seenHostPort[key] {
			return errors.Errorf("duplicate (host, port) %s", key)
		}
		seenHostPort[key] = true

		if len(srv.Locations) == 0 {
			return errors.Errorf("server %s has no locations", key)
		}
		seenPath := make(map[string]bool)
		for _, loc := range srv.Locations {
			if seenPath[loc.Path] {
				return errors.Errorf("server %s: duplicate location path %s", key, loc.Path)
			}
			seenPath[loc.Path] = true
		}
	}
	return nil
}
