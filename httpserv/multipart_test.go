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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ExtractBoundary(t *testing.T) {
	assert.Equal(t, "abc123", extractBoundary("multipart/form-data; boundary=abc123"))
	assert.Equal(t, "abc 123", extractBoundary(`multipart/form-data; boundary="abc 123"`))
	assert.Equal(t, "", extractBoundary("text/plain"))
}

func Test_ParseMultipart_SingleFile(t *testing.T) {
	dir := t.TempDir()
	boundary := "WEBSERVBOUNDARY"
	body := "--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"hello.txt\"\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"hello world\r\n" +
		"--" + boundary + "--\r\n"

	saved, err := parseMultipart([]byte(body), boundary, dir)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "hello.txt", saved[0])

	content, err := os.ReadFile(filepath.Join(dir, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

func Test_ParseMultipart_MultipleFiles(t *testing.T) {
	dir := t.TempDir()
	boundary := "B"
	body := "--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"a\"; filename=\"a.txt\"\r\n\r\n" +
		"AAA\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"b\"; filename=\"b.txt\"\r\n\r\n" +
		"BBB\r\n" +
		"--" + boundary + "--\r\n"

	saved, err := parseMultipart([]byte(body), boundary, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, saved)
}

func Test_ParseMultipart_NoFileParts(t *testing.T) {
	dir := t.TempDir()
	boundary := "B"
	body := "--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"field\"\r\n\r\n" +
		"just text\r\n" +
		"--" + boundary + "--\r\n"

	saved, err := parseMultipart([]byte(body), boundary, dir)
	require.NoError(t, err)
	assert.Empty(t, saved)
}
