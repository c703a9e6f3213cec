package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evently-demo/backend/config"
	"github.com/evently-demo/backend/internal/store"
)

func TestOpenBacking_memory(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeDemo, Store: config.StoreConfig{Medium: "memory", KeyPrefix: "demo_"}}

	b, err := OpenBacking(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()
	assert.IsType(t, &store.MemoryMedium{}, b.Medium)
	assert.Nil(t, b.Redis)
}

func TestOpenBacking_unknown(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Medium: "floppy"}}

	_, err := OpenBacking(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
