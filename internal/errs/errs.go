// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

// Package errs defines the error taxonomy shared by the ingestion engine and
// the HTTP API: Upstream, Storage, NotFound, BadInput, NotReady, and Fatal.
package errs

import (
	"errors"
	"net/http"
)

// Kind identifies which of the six abstract error categories an error
// belongs to. Callers should not switch on error strings; use Is/As with a
// sentinel Kind via KindOf instead.
type Kind int

const (
	// Unknown is the zero value; never intentionally returned.
	Unknown Kind = iota
	// Upstream covers network, timeout, non-2xx, or malformed NDJSON from SQD Portal.
	Upstream
	// Storage covers read/write failures against Badger or Redis.
	Storage
	// NotFound covers an unknown chain or a query with no matching block.
	NotFound
	// BadInput covers an unparseable path or query parameter.
	BadInput
	// NotReady covers the progress map being empty (startup incomplete).
	NotReady
	// Fatal covers irrecoverable startup failures (store can't open, port can't bind).
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Upstream:
		return "upstream"
	case Storage:
		return "storage"
	case NotFound:
		return "not_found"
	case BadInput:
		return "bad_input"
	case NotReady:
		return "not_ready"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// HTTPStatus maps an error Kind to the status code the API layer returns.
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case BadInput:
		return http.StatusBadRequest
	case NotReady:
		return http.StatusServiceUnavailable
	case Storage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error wraps an underlying error with a Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind for operation op, wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error. Returns Unknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
