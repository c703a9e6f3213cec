// Package mutation implements the write side of the emulated backend. Every
// builder does read-entire, modify, write-entire under the adapter's lock.
package mutation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/engine"
	"github.com/evently-demo/backend/internal/models"
)

// Insert appends one record to a table.
type Insert struct {
	env   *engine.Env
	table string
	rows  []models.Record
}

// NewInsert prepares an insert. Only the first row is used.
func NewInsert(env *engine.Env, table string, rows ...models.Record) Insert {
	return Insert{env: env, table: table, rows: rows}
}

// Execute stores the row and returns it with its assigned id and created_at.
func (in Insert) Execute(ctx context.Context) models.Result {
	return in.env.Guard("insert", in.table, func() models.Result {
		return in.run(ctx)
	})
}

func (in Insert) run(ctx context.Context) models.Result {
	table, ok := models.ParseTable(in.table)
	if !ok {
		return models.Fail(models.UnknownTable(in.table))
	}
	if len(in.rows) == 0 || in.rows[0] == nil {
		return models.Fail(models.InvalidInput("insert requires a row"))
	}
	in.env.Prepare(ctx)

	now := in.env.Clock.Now()
	row := in.rows[0].Clone()
	// profile ids are the auth user ids; every other table gets a fresh one
	if table != models.TableProfiles || row.String("id") == "" {
		row["id"] = NewID(now.UnixMilli())
	}
	row["created_at"] = models.Timestamp(now)

	var res models.Result
	in.env.Store.Exclusive(func() {
		rows := in.env.Load(ctx, table)
		if err := checkUnique(table, rows, row); err != nil {
			res = models.Fail(err)
			return
		}
		w := in.env.Save(ctx, table, append(rows, row))
		res = models.Result{Data: row, Persisted: w.Persisted}
	})
	if res.Error == nil {
		in.env.Logger.Debug("row inserted",
			zap.String("table", in.table),
			zap.String("id", row.String("id")),
			zap.Bool("persisted", res.Persisted),
		)
	}
	return res
}

// NewID returns an identifier of the form mock-<millis>-<random>.
func NewID(millis int64) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("mock-%d-%s", millis, random)
}

// checkUnique enforces the constraints a real schema would carry: unique ids,
// and one registration per user and event. Fields absent from either row
// never collide.
func checkUnique(table models.Table, rows []models.Record, row models.Record) *models.Error {
	for _, r := range rows {
		if sameField(r, row, "id") {
			return models.Duplicate(string(table) + "_pkey")
		}
		if table == models.TableParticipants && sameField(r, row, "user_id") && sameField(r, row, "event_id") {
			return models.Duplicate("participants_user_id_event_id_key")
		}
	}
	return nil
}

func sameField(a, b models.Record, field string) bool {
	av, aok := a[field]
	bv, bok := b[field]
	return aok && bok && engine.Equal(av, bv)
}
