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

// Package main is kizami's entry point: a block-by-timestamp lookup service
// for EVM chains, backed by an SQD Portal ingestion loop into BadgerDB.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kizami/internal/config"
	"kizami/internal/logging"
	"kizami/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load configuration: %v\n", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel))
	logger.Info("starting kizami with data_dir=%s port=%d cursor_backend=%s",
		cfg.DataDir, cfg.Port, cfg.CursorStoreBackend)

	super, err := supervisor.New(cfg, logger)
	if err != nil {
		log.Fatalf("could not initialize kizami: %v\n", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := super.Run(ctx); err != nil {
		log.Fatalf("kizami exited: %v\n", err)
	}
	logger.Info("kizami stopped")
}
