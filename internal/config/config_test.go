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

package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DATA_DIR", "PORT", "INGEST_INTERVAL_SECS", "SQD_PORTAL_URL",
		"LOG_LEVEL", "CURSOR_STORE_BACKEND", "REDIS_ADDR", "METRICS_ADDR",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "./data" || cfg.Port != 8080 || cfg.LogLevel != "info" || cfg.CursorStoreBackend != "badger" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.IngestInterval != 60*time.Second {
		t.Fatalf("IngestInterval = %v, want 60s", cfg.IngestInterval)
	}
	if len(cfg.SQDPortalURLs) != 1 || cfg.SQDPortalURLs[0] != "https://portal.sqd.dev" {
		t.Fatalf("SQDPortalURLs = %v, want single default portal URL", cfg.SQDPortalURLs)
	}
}

func TestLoad_ParsesCommaSeparatedMirrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("SQD_PORTAL_URL", "https://a.example/, https://b.example/ ,https://c.example/")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"https://a.example/", "https://b.example/", "https://c.example/"}
	if len(cfg.SQDPortalURLs) != len(want) {
		t.Fatalf("SQDPortalURLs = %v, want %v", cfg.SQDPortalURLs, want)
	}
	for i := range want {
		if cfg.SQDPortalURLs[i] != want[i] {
			t.Fatalf("SQDPortalURLs[%d] = %q, want %q", i, cfg.SQDPortalURLs[i], want[i])
		}
	}
}

func TestLoad_RejectsUnparseablePort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to reject a non-numeric PORT")
	}
}

func TestLoad_RejectsEmptyPortalURLList(t *testing.T) {
	clearEnv(t)
	t.Setenv("SQD_PORTAL_URL", "   ,  ,")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to reject an all-empty SQD_PORTAL_URL")
	}
}
