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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webserv/config"
)

func testServer() *config.ServerConfig {
	return &config.ServerConfig{
		Locations: []*config.LocationConfig{
			{Path: "/", Root: "/var/www"},
			{Path: "/images", Root: "/var/www/images"},
			{Path: "/images/thumbs", Root: "/var/www/thumbs"},
		},
	}
}

func Test_ResolveLocation_LongestPrefix(t *testing.T) {
	srv := testServer()

	loc, ok := resolveLocation(srv, "/images/thumbs/a.png")
	require.True(t, ok)
	assert.Equal(t, "/images/thumbs", loc.Path)

	loc, ok = resolveLocation(srv, "/images/a.png")
	require.True(t, ok)
	assert.Equal(t, "/images", loc.Path)

	loc, ok = resolveLocation(srv, "/about.html")
	require.True(t, ok)
	assert.Equal(t, "/", loc.Path)
}

func Test_ResolveLocation_NoMatch(t *testing.T) {
	srv := &config.ServerConfig{Locations: []*config.LocationConfig{{Path: "/api"}}}
	_, ok := resolveLocation(srv, "/other")
	assert.False(t, ok)
}

func Test_ResolveLocation_TieBreakIsFirstOccurrence(t *testing.T) {
	srv := &config.ServerConfig{
		Locations: []*config.LocationConfig{
			{Path: "/api", Root: "/first"},
			{Path: "/api", Root: "/second"},
		},
	}
	loc, ok := resolveLocation(srv, "/api/users")
	require.True(t, ok)
	assert.Equal(t, "/first", loc.Root)
}

func Test_FullPath_StripsLocationPrefix(t *testing.T) {
	loc := &config.LocationConfig{Path: "/images", Root: "/var/www/images"}
	assert.Equal(t, "/var/www/images/a.png", fullPath(loc, "/images/a.png"))
	assert.Equal(t, "/var/www/images/", fullPath(loc, "/images"))
}

func Test_FullPath_RootLocationKeepsFullRequestPath(t *testing.T) {
	loc := &config.LocationConfig{Path: "/", Root: "/var/www"}
	assert.Equal(t, "/var/www/about.html", fullPath(loc, "/about.html"))
}
