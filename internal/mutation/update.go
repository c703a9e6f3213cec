package mutation

import (
	"context"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/engine"
	"github.com/evently-demo/backend/internal/models"
)

// Update shallow-merges a set of fields into every matching row.
type Update struct {
	env       *engine.Env
	table     string
	overrides models.Record
	preds     []engine.Predicate
}

// NewUpdate prepares an update. Without predicates it touches every row.
func NewUpdate(env *engine.Env, table string, overrides models.Record) Update {
	return Update{env: env, table: table, overrides: overrides.Clone()}
}

// Eq restricts the update to rows whose field equals value.
func (u Update) Eq(field string, value any) Update {
	u.preds = append(slices.Clip(u.preds), engine.Eq(field, value))
	return u
}

// Where adds an arbitrary predicate.
func (u Update) Where(p engine.Predicate) Update {
	u.preds = append(slices.Clip(u.preds), p)
	return u
}

// In restricts the update to rows whose field equals any of values.
func (u Update) In(field string, values ...any) Update {
	u.preds = append(slices.Clip(u.preds), engine.In(field, slices.Clone(values)))
	return u
}

// Execute applies the update. Data is the updated record when exactly one
// row matched, otherwise the (possibly empty) slice of updated records.
func (u Update) Execute(ctx context.Context) models.Result {
	return u.env.Guard("update", u.table, func() models.Result {
		return u.run(ctx)
	})
}

func (u Update) run(ctx context.Context) models.Result {
	table, ok := models.ParseTable(u.table)
	if !ok {
		return models.Fail(models.UnknownTable(u.table))
	}
	u.env.Prepare(ctx)

	updated := make([]models.Record, 0)
	var persisted bool
	u.env.Store.Exclusive(func() {
		rows := u.env.Load(ctx, table)
		for i, r := range rows {
			if !engine.MatchAll(r, u.preds) {
				continue
			}
			merged := r.Clone()
			maps.Copy(merged, u.overrides)
			rows[i] = merged
			updated = append(updated, merged)
		}
		persisted = u.env.Save(ctx, table, rows).Persisted
	})

	u.env.Logger.Debug("rows updated",
		zap.String("table", u.table),
		zap.Int("matched", len(updated)),
		zap.Bool("persisted", persisted),
	)
	if len(updated) == 1 {
		return models.Result{Data: updated[0], Persisted: persisted}
	}
	return models.Result{Data: updated, Persisted: persisted}
}
