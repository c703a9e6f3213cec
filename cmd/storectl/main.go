// Package main inspects, seeds or clears the demo data held in a shared
// storage medium.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evently-demo/backend/config"
	"github.com/evently-demo/backend/internal/app"
	"github.com/evently-demo/backend/internal/clock"
	"github.com/evently-demo/backend/internal/seed"
	"github.com/evently-demo/backend/internal/store"
)

func main() {
	wipe := flag.Bool("clear", false, "remove the session and every collection")
	reseed := flag.Bool("seed", false, "write the demo dataset if the store is empty")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()

	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	backing, err := app.OpenBacking(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage", zap.Error(err))
	}
	defer backing.Close()

	adapter := store.NewAdapter(backing.Medium, cfg.Store.KeyPrefix, logger)
	if *wipe {
		if err := adapter.ClearAll(ctx); err != nil {
			logger.Error("clear failed", zap.Error(err))
			os.Exit(1)
		}
	}
	if *reseed {
		if seed.NewSeeder(adapter, clock.Real()).EnsureSeeded(ctx) {
			logger.Info("store seeded")
		} else {
			logger.Info("store already holds data, not seeding")
		}
	}

	out, _ := json.MarshalIndent(adapter.Info(ctx), "", "  ")
	fmt.Println(string(out))
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}
	logger, _ := config.Build()
	return logger
}
