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
	"strings"
)

// generateDirectoryListing renders the HTML directory index for dirPath,
// linked relative to uriPath, grounded on HelpersMethods.cpp's
// generateDirectoryListing: every readdir entry except "." is listed (".."
// is synthesized for every URI but "/", since os.ReadDir never yields it),
// directories carry a trailing slash, files show their byte size.
func generateDirectoryListing(dirPath, uriPath string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	fmt.Fprintf(&b, "<title>Index of %s</title></head>\n", uriPath)
	b.WriteString("<body>\n")
	fmt.Fprintf(&b, "<h1>Index of %s</h1>\n", uriPath)
	b.WriteString("<hr>\n<pre>\n")

	entries, err := os.ReadDir(dirPath)
	if err == nil {
		base := strings.TrimSuffix(uriPath, "/")
		if uriPath != "/" {
			b.WriteString("<a href=\"../\">../</a>\n")
		}
		for _, entry := range entries {
			name := entry.Name()
			if name == "." {
				continue
			}
			if entry.IsDir() {
				fmt.Fprintf(&b, "<a href=\"%s/%s/\">%s/</a>\n", base, name, name)
				continue
			}
			info, err := entry.Info()
			size := int64(0)
			if err == nil {
				size = info.Size()
			}
			fmt.Fprintf(&b, "<a href=\"%s/%s\">%s</a>    %d bytes\n", base, name, name, size)
		}
	}

	b.WriteString("</pre>\n<hr>\n</body>\n</html>\n")
	return b.String()
}
