// Copyright (c) 2019 Andy Pan
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

package errors

import "errors"

var (
	// ErrEngineShutdown occurs when the engine is closing.
	ErrEngineShutdown = errors.New("engine is going to be shut down")
	// ErrEngineInShutdown occurs when attempting to shut the engine down more than once.
	ErrEngineInShutdown = errors.New("engine is already in shutdown")
	// ErrAcceptSocket occurs when the acceptor does not accept the new connection properly.
	ErrAcceptSocket = errors.New("accept a new connection error")
	// ErrUnsupportedProtocol occurs when trying to use a protocol that is not supported.
	ErrUnsupportedProtocol = errors.New("only tcp/tcp4/tcp6 are supported")
	// ErrUnsupportedOp occurs when calling a method that has not been implemented.
	ErrUnsupportedOp = errors.New("unsupported operation")
	// ErrNegativeSize occurs when trying to pass a negative size to a buffer.
	ErrNegativeSize = errors.New("negative size is invalid")
	// ErrNoListeners occurs when Run is called with no server configs to listen on.
	ErrNoListeners = errors.New("no listeners configured")
	// ErrTooManyConnections occurs when the configured connection cap has been reached.
	ErrTooManyConnections = errors.New("too many open connections")

	// ================================================= HTTP parser errors =================================================.

	// ErrMalformedRequestLine occurs when a request line does not have exactly two SP characters.
	ErrMalformedRequestLine = errors.New("malformed request line")
	// ErrInvalidMethodName occurs when the method token is not an uppercase letter sequence.
	ErrInvalidMethodName = errors.New("invalid method name")
	// ErrURITooLong occurs when the decoded request path exceeds 1024 bytes.
	ErrURITooLong = errors.New("uri too long")
	// ErrMissingContentLength occurs when a POST request has no Content-Length header.
	ErrMissingContentLength = errors.New("missing content-length")
	// ErrInvalidContentLength occurs when the Content-Length header cannot be parsed as a non-negative integer.
	ErrInvalidContentLength = errors.New("invalid content-length")
	// ErrDuplicateHeader occurs when a singleton header (Host, Content-Length, Content-Type) repeats.
	ErrDuplicateHeader = errors.New("duplicate header")
	// ErrMalformedHeader occurs when a header line does not contain exactly one colon.
	ErrMalformedHeader = errors.New("malformed header")
)
