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

package store

import (
	"fmt"
	"path/filepath"
)

// CursorStoreOptions holds the knobs needed to build any CursorStore backend.
type CursorStoreOptions struct {
	DataDir   string
	RedisAddr string
}

// BuildCursorStore constructs a CursorStore for the given backend selector.
// Supported backends:
//   - "badger" (default): durable single-process store under DataDir/cursors
//   - "redis": shared store for multi-replica deployments, using a real
//     *redis.Client when RedisAddr is set, or an in-memory stand-in otherwise
//
// This follows the same string-selector adapter-construction shape used
// elsewhere in this codebase for pluggable persistence backends.
func BuildCursorStore(backend string, opts CursorStoreOptions) (CursorStore, error) {
	switch backend {
	case "", "badger":
		return OpenBadgerCursorStore(filepath.Join(opts.DataDir, "cursors"))
	case "redis":
		var client RedisCursorClient
		if opts.RedisAddr != "" {
			client = NewGoRedisCursorClient(opts.RedisAddr)
		} else {
			client = NewLoggingRedisCursorClient()
		}
		return NewRedisCursorStore(client), nil
	default:
		return nil, fmt.Errorf("store.BuildCursorStore: unknown backend %q", backend)
	}
}
