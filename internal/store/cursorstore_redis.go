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
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"kizami/internal/errs"
)

// redisCursorKeyPrefix namespaces kizami's cursor hashes in a shared Redis
// instance.
const redisCursorKeyPrefix = "kizami:cursor:"

func redisCursorKey(slug string) string { return redisCursorKeyPrefix + slug }

// RedisCursorClient abstracts the minimal Redis surface the cursor store
// needs, over github.com/redis/go-redis/v9's Cmdable.
type RedisCursorClient interface {
	HSet(ctx context.Context, key string, values map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	ScanKeys(ctx context.Context, prefix string) ([]string, error)
}

// GoRedisCursorClient is the production adapter wrapping *redis.Client.
type GoRedisCursorClient struct{ c *redis.Client }

// NewGoRedisCursorClient builds a client against addr (e.g. "127.0.0.1:6379").
func NewGoRedisCursorClient(addr string) *GoRedisCursorClient {
	return &GoRedisCursorClient{c: redis.NewClient(&redis.Options{Addr: addr})}
}

func (g *GoRedisCursorClient) HSet(ctx context.Context, key string, values map[string]string) error {
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = v
	}
	return g.c.HSet(ctx, key, fields).Err()
}

func (g *GoRedisCursorClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return g.c.HGetAll(ctx, key).Result()
}

func (g *GoRedisCursorClient) ScanKeys(ctx context.Context, prefix string) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	for {
		keys, next, err := g.c.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		if next == 0 {
			break
		}
		cursor = next
	}
	return out, nil
}

// LoggingRedisCursorClient is a dependency-free stand-in for GoRedisCursorClient,
// used in tests and in deployments that want to exercise the redis backend's
// code path without a live Redis.
type LoggingRedisCursorClient struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

// NewLoggingRedisCursorClient returns an empty in-memory stand-in client.
func NewLoggingRedisCursorClient() *LoggingRedisCursorClient {
	return &LoggingRedisCursorClient{data: make(map[string]map[string]string)}
}

func (l *LoggingRedisCursorClient) HSet(_ context.Context, key string, values map[string]string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.data[key]
	if !ok {
		h = make(map[string]string)
		l.data[key] = h
	}
	for k, v := range values {
		h[k] = v
	}
	return nil
}

func (l *LoggingRedisCursorClient) HGetAll(_ context.Context, key string) (map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.data[key]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

func (l *LoggingRedisCursorClient) ScanKeys(_ context.Context, prefix string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for k := range l.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

// RedisCursorStore is the alternative CursorStore backend for deployments
// that run multiple kizami replicas against one shared cursor store.
type RedisCursorStore struct {
	client RedisCursorClient
}

// NewRedisCursorStore builds a CursorStore backed by client.
func NewRedisCursorStore(client RedisCursorClient) *RedisCursorStore {
	return &RedisCursorStore{client: client}
}

func (s *RedisCursorStore) Get(slug string) (Cursor, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h, err := s.client.HGetAll(ctx, redisCursorKey(slug))
	if err != nil {
		return Cursor{}, false, errs.New(errs.Storage, "store.RedisCursorStore.Get", err)
	}
	if len(h) == 0 {
		return Cursor{}, false, nil
	}
	lastBlock, err1 := strconv.ParseInt(h["last_block"], 10, 64)
	updatedAt, err2 := strconv.ParseInt(h["updated_at_secs"], 10, 64)
	if err1 != nil || err2 != nil {
		return Cursor{}, false, errs.New(errs.Storage, "store.RedisCursorStore.Get",
			fmt.Errorf("malformed cursor hash for slug %q", slug))
	}
	return Cursor{LastBlock: lastBlock, UpdatedAtSecs: updatedAt}, true, nil
}

func (s *RedisCursorStore) Put(slug string, lastBlock, updatedAtSecs int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	values := map[string]string{
		"last_block":      strconv.FormatInt(lastBlock, 10),
		"updated_at_secs": strconv.FormatInt(updatedAtSecs, 10),
	}
	if err := s.client.HSet(ctx, redisCursorKey(slug), values); err != nil {
		return errs.New(errs.Storage, "store.RedisCursorStore.Put", err)
	}
	return nil
}

func (s *RedisCursorStore) Snapshot() ([]SlugCursor, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	keys, err := s.client.ScanKeys(ctx, redisCursorKeyPrefix)
	if err != nil {
		return nil, errs.New(errs.Storage, "store.RedisCursorStore.Snapshot", err)
	}
	out := make([]SlugCursor, 0, len(keys))
	for _, key := range keys {
		slug := key[len(redisCursorKeyPrefix):]
		cursor, ok, err := s.Get(slug)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, SlugCursor{Slug: slug, Cursor: cursor})
		}
	}
	return out, nil
}

// Close is a no-op: the redis client's lifecycle is owned by the caller that
// constructed it.
func (s *RedisCursorStore) Close() error { return nil }
