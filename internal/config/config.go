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

// Package config loads kizami's environment-variable configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every knob kizami reads from the environment.
type Config struct {
	DataDir            string
	Port               int
	IngestInterval     time.Duration
	SQDPortalURLs       []string
	LogLevel           string
	CursorStoreBackend string
	RedisAddr          string
	MetricsAddr        string
}

// Load reads the environment and applies defaults for anything unset.
func Load() (Config, error) {
	cfg := Config{
		DataDir:            getString("DATA_DIR", "./data"),
		LogLevel:           getString("LOG_LEVEL", "info"),
		CursorStoreBackend: getString("CURSOR_STORE_BACKEND", "badger"),
		RedisAddr:          getString("REDIS_ADDR", ""),
		MetricsAddr:        getString("METRICS_ADDR", ""),
	}

	port, err := getInt("PORT", 8080)
	if err != nil {
		return Config{}, err
	}
	cfg.Port = port

	interval, err := getSeconds("INGEST_INTERVAL_SECS", 60)
	if err != nil {
		return Config{}, err
	}
	cfg.IngestInterval = interval

	portalURL := getString("SQD_PORTAL_URL", "https://portal.sqd.dev")
	for _, part := range strings.Split(portalURL, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			cfg.SQDPortalURLs = append(cfg.SQDPortalURLs, part)
		}
	}
	if len(cfg.SQDPortalURLs) == 0 {
		return Config{}, fmt.Errorf("SQD_PORTAL_URL must not be empty")
	}

	return cfg, nil
}

func getString(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

func getInt(name string, def int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func getSeconds(name string, defSecs int) (time.Duration, error) {
	n, err := getInt(name, defSecs)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
