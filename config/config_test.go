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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
admin_port 9000;
log_level info;

server {
    listen 8080;
    server_name test.local;
    error_page 404 ./www/404.html;
    client_max_body_size 5M;

    location / {
        methods GET POST;
        root ./www;
        index index.html;
        autoindex on;
    }

    location /upload {
        methods POST;
        root ./www/upload;
        upload_path ./uploads;
        client_max_body_size 1M;
    }

    location /old {
        return 301 /new;
    }

    location /cgi-bin {
        methods GET POST;
        root ./www/cgi-bin;
        cgi .py /usr/bin/python3;
        cgi .php;
    }
}
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webserv.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func Test_LoadConfig_ParsesServerAndLocations(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.AdminPort)
	require.Len(t, cfg.Servers, 1)

	srv := cfg.Servers[0]
	assert.Equal(t, 8080, srv.Port)
	assert.Equal(t, "test.local", srv.ServerName)
	assert.Equal(t, int64(5<<20), srv.ClientMaxBodySize)
	assert.Equal(t, "./www/404.html", srv.ErrorPages[404])
	require.Len(t, srv.Locations, 4)

	root := srv.Locations[0]
	assert.True(t, root.AllowsMethod("GET"))
	assert.True(t, root.AllowsMethod("POST"))
	assert.False(t, root.AllowsMethod("DELETE"))
	assert.True(t, root.Autoindex)

	upload := srv.Locations[1]
	assert.Equal(t, "./uploads", upload.UploadPath)
	assert.True(t, upload.HasBodySize)
	assert.Equal(t, int64(1<<20), upload.EffectiveMaxBodySize(srv))
	assert.Equal(t, int64(5<<20), root.EffectiveMaxBodySize(srv))

	redirect := srv.Locations[2]
	assert.Equal(t, 301, redirect.Redirect.Code)
	assert.Equal(t, "/new", redirect.Redirect.Target)

	cgi := srv.Locations[3]
	assert.Equal(t, "/usr/bin/python3", cgi.CGI[".py"])
	assert.Equal(t, "", cgi.CGI[".php"])
}

func Test_LoadConfig_DefaultsMethodToGet(t *testing.T) {
	path := writeTempConfig(t, `
server {
    listen 8081;
    location / {
        root ./www;
    }
}
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	loc := cfg.Servers[0].Locations[0]
	assert.True(t, loc.AllowsMethod("GET"))
	assert.False(t, loc.AllowsMethod("POST"))
}

func Test_LoadConfig_RejectsDuplicateHostPort(t *testing.T) {
	path := writeTempConfig(t, `
server {
    listen 8080;
    location / {
        root ./www;
    }
}
server {
    listen 8080;
    location / {
        root ./www;
    }
}
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func Test_LoadConfig_RejectsUnknownDirective(t *testing.T) {
	path := writeTempConfig(t, `
server {
    listen 8080;
    bogus_directive 1;
    location / { root ./www; }
}
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func Test_LoadConfig_RejectsMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/webserv.conf")
	assert.Error(t, err)
}

func Test_LoadConfig_RejectsServerWithNoLocations(t *testing.T) {
	path := writeTempConfig(t, `
server {
    listen 8080;
}
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func Test_ParseSize_Suffixes(t *testing.T) {
	v, err := parseSize("10M")
	require.NoError(t, err)
	assert.Equal(t, int64(10<<20), v)

	v, err = parseSize("512K")
	require.NoError(t, err)
	assert.Equal(t, int64(512<<10), v)

	v, err = parseSize("1G")
	require.NoError(t, err)
	assert.Equal(t, int64(1<<30), v)

	v, err = parseSize("100")
	require.NoError(t, err)
	assert.Equal(t, int64(100), v)
}

func Test_Config_DumpYAML(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	out, err := cfg.DumpYAML()
	require.NoError(t, err)
	assert.Contains(t, out, "servers:")
}
