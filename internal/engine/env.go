// Package engine holds what the query and mutation builders share: the
// per-instance environment they run against and the predicate semantics.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/clock"
	"github.com/evently-demo/backend/internal/models"
	"github.com/evently-demo/backend/internal/seed"
	"github.com/evently-demo/backend/internal/store"
)

// Env is one isolated backend instance: its store, seeder and clock. Nothing
// in the engines is package-global, so tests can run many Envs side by side.
type Env struct {
	Store  *store.Adapter
	Seeder *seed.Seeder
	Clock  clock.Clock
	Logger *zap.Logger
}

// NewEnv builds an Env over adapter.
func NewEnv(adapter *store.Adapter, clk clock.Clock) *Env {
	if clk == nil {
		clk = clock.Real()
	}
	return &Env{
		Store:  adapter,
		Seeder: seed.NewSeeder(adapter, clk),
		Clock:  clk,
		Logger: adapter.Logger(),
	}
}

// Prepare seeds the store if needed. Every builder calls it before touching
// a collection.
func (e *Env) Prepare(ctx context.Context) {
	e.Seeder.EnsureSeeded(ctx)
}

// Load returns the full contents of table, falling back to the fixture when
// the stored collection is absent or corrupt.
func (e *Env) Load(ctx context.Context, table models.Table) []models.Record {
	rows := store.Read[[]models.Record](ctx, e.Store, string(table), nil)
	if rows == nil {
		rows = seed.Collections(e.Clock.Now())[table]
	}
	return rows
}

// Save writes the full contents of table. An empty table is stored as [] so
// it is never mistaken for an absent one.
func (e *Env) Save(ctx context.Context, table models.Table, rows []models.Record) store.WriteResult {
	if rows == nil {
		rows = []models.Record{}
	}
	return e.Store.Write(ctx, string(table), rows)
}

// Guard runs fn and converts a panic into a generic error result so that no
// panic crosses a builder's public boundary.
func (e *Env) Guard(op string, table string, fn func() models.Result) (res models.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("builder panicked",
				zap.String("op", op),
				zap.String("table", table),
				zap.Any("panic", r),
			)
			res = models.Fail(models.Internal(fmt.Sprint(r)))
		}
	}()
	return fn()
}
