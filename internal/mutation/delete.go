package mutation

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/engine"
	"github.com/evently-demo/backend/internal/models"
)

// Delete removes matching rows.
type Delete struct {
	env   *engine.Env
	table string
	preds []engine.Predicate
}

// NewDelete prepares a delete. Without predicates it empties the table.
func NewDelete(env *engine.Env, table string) Delete {
	return Delete{env: env, table: table}
}

// Eq restricts the delete to rows whose field equals value.
func (d Delete) Eq(field string, value any) Delete {
	d.preds = append(slices.Clip(d.preds), engine.Eq(field, value))
	return d
}

// Where adds an arbitrary predicate.
func (d Delete) Where(p engine.Predicate) Delete {
	d.preds = append(slices.Clip(d.preds), p)
	return d
}

// In restricts the delete to rows whose field equals any of values.
func (d Delete) In(field string, values ...any) Delete {
	d.preds = append(slices.Clip(d.preds), engine.In(field, slices.Clone(values)))
	return d
}

// Execute removes every match. Data is always nil, whatever was removed.
func (d Delete) Execute(ctx context.Context) models.Result {
	return d.env.Guard("delete", d.table, func() models.Result {
		return d.run(ctx)
	})
}

func (d Delete) run(ctx context.Context) models.Result {
	table, ok := models.ParseTable(d.table)
	if !ok {
		return models.Fail(models.UnknownTable(d.table))
	}
	d.env.Prepare(ctx)

	var removed int
	var persisted bool
	d.env.Store.Exclusive(func() {
		rows := d.env.Load(ctx, table)
		kept := slices.DeleteFunc(slices.Clone(rows), func(r models.Record) bool {
			return engine.MatchAll(r, d.preds)
		})
		removed = len(rows) - len(kept)
		persisted = d.env.Save(ctx, table, kept).Persisted
	})

	d.env.Logger.Debug("rows deleted",
		zap.String("table", d.table),
		zap.Int("removed", removed),
		zap.Bool("persisted", persisted),
	)
	return models.Result{Persisted: persisted}
}
