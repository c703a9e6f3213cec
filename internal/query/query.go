// Package query implements the read side of the emulated backend: an
// immutable builder that accumulates a selection and runs it on Execute.
package query

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/engine"
	"github.com/evently-demo/backend/internal/models"
)

// Join names one of the two relation expansions the engine understands.
type Join int

const (
	JoinNone Join = iota
	// JoinParticipantEvent attaches the referenced event under "events".
	JoinParticipantEvent
	// JoinEventParticipants attaches every participant of the event under
	// "participants".
	JoinEventParticipants
)

const (
	relEvents       = "events"
	relParticipants = "participants"
)

type ordering struct {
	field     string
	ascending bool
}

// Query is a read against one table. Every builder method returns a modified
// copy; the receiver is never changed, so a Query can be shared and reused.
type Query struct {
	env     *engine.Env
	table   string
	columns []string
	join    Join
	preds   []engine.Predicate
	order   *ordering
	limit   int
	single  bool
	count   bool
}

// New starts a query on table. The table name is validated on Execute.
func New(env *engine.Env, table string) Query {
	return Query{env: env, table: table}
}

// Select restricts the returned fields. No columns, or "*", means the whole
// record. Fields attached by a join are always kept.
func (q Query) Select(columns ...string) Query {
	q.columns = slices.Clone(columns)
	return q
}

// SelectString applies a PostgREST-style select string such as
// "*, events(*)".
func (q Query) SelectString(sel string) Query {
	cols, join := ParseSelect(sel)
	q.columns = cols
	q.join = join
	return q
}

// WithJoin requests a relation expansion.
func (q Query) WithJoin(j Join) Query {
	q.join = j
	return q
}

// Eq keeps rows whose field equals value.
func (q Query) Eq(field string, value any) Query {
	q.preds = append(slices.Clip(q.preds), engine.Eq(field, value))
	return q
}

// Where adds an arbitrary predicate.
func (q Query) Where(p engine.Predicate) Query {
	q.preds = append(slices.Clip(q.preds), p)
	return q
}

// In keeps rows whose field equals any of values.
func (q Query) In(field string, values ...any) Query {
	q.preds = append(slices.Clip(q.preds), engine.In(field, slices.Clone(values)))
	return q
}

// Order sorts by field. A later call replaces an earlier one.
func (q Query) Order(field string, ascending bool) Query {
	q.order = &ordering{field: field, ascending: ascending}
	return q
}

// Limit caps the number of rows. n <= 0 means no limit.
func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

// Single asks for exactly one row: Data becomes a record instead of a slice,
// and an empty result is a not-found error.
func (q Query) Single() Query {
	q.single = true
	return q
}

// Count asks for the number of matching rows, before any limit, in
// Result.Count.
func (q Query) Count() Query {
	q.count = true
	return q
}

// Table returns the table name the query targets.
func (q Query) Table() string { return q.table }

// ParseSelect splits a select string into plain columns and a join. Relation
// names other than events and participants are ignored.
func ParseSelect(sel string) ([]string, Join) {
	var (
		cols []string
		join = JoinNone
	)
	for _, tok := range strings.Split(sel, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if rel, _, ok := strings.Cut(tok, "("); ok {
			switch strings.TrimSpace(rel) {
			case relEvents:
				join = JoinParticipantEvent
			case relParticipants:
				join = JoinEventParticipants
			}
			continue
		}
		cols = append(cols, tok)
	}
	return cols, join
}

// Execute runs the query.
func (q Query) Execute(ctx context.Context) models.Result {
	return q.env.Guard("select", q.table, func() models.Result {
		return q.run(ctx)
	})
}

func (q Query) run(ctx context.Context) models.Result {
	table, ok := models.ParseTable(q.table)
	if !ok {
		return models.Fail(models.UnknownTable(q.table))
	}
	q.env.Prepare(ctx)

	rows := engine.Filter(q.env.Load(ctx, table), q.preds)
	total := len(rows)

	rows = q.expand(ctx, rows)

	if q.order != nil {
		o := *q.order
		slices.SortStableFunc(rows, func(a, b models.Record) int {
			c := engine.Compare(a[o.field], b[o.field])
			if !o.ascending {
				c = -c
			}
			return c
		})
	}

	if q.limit > 0 && len(rows) > q.limit {
		rows = rows[:q.limit]
	}
	rows = q.project(rows)

	res := models.Result{Persisted: true}
	if q.count {
		res.Count = &total
	}
	if q.single {
		if len(rows) == 0 {
			q.env.Logger.Debug("single row not found", zap.String("table", q.table))
			res.Error = models.NotFound()
			return res
		}
		res.Data = rows[0]
		return res
	}
	res.Data = rows
	return res
}

// expand attaches related records. Rows are copied so the joined fields never
// leak into what is stored.
func (q Query) expand(ctx context.Context, rows []models.Record) []models.Record {
	switch q.join {
	case JoinParticipantEvent:
		events := q.env.Load(ctx, models.TableEvents)
		out := make([]models.Record, len(rows))
		for i, r := range rows {
			c := r.Clone()
			c[relEvents] = nil
			for _, e := range events {
				if engine.Equal(e["id"], r["event_id"]) {
					c[relEvents] = e
					break
				}
			}
			out[i] = c
		}
		return out
	case JoinEventParticipants:
		participants := q.env.Load(ctx, models.TableParticipants)
		out := make([]models.Record, len(rows))
		for i, r := range rows {
			c := r.Clone()
			matched := make([]models.Record, 0)
			for _, p := range participants {
				if engine.Equal(p["event_id"], r["id"]) {
					matched = append(matched, p)
				}
			}
			c[relParticipants] = matched
			out[i] = c
		}
		return out
	default:
		return rows
	}
}

func (q Query) project(rows []models.Record) []models.Record {
	if len(q.columns) == 0 || slices.Contains(q.columns, "*") {
		return rows
	}
	keep := slices.Clone(q.columns)
	switch q.join {
	case JoinParticipantEvent:
		keep = append(keep, relEvents)
	case JoinEventParticipants:
		keep = append(keep, relParticipants)
	}
	out := make([]models.Record, len(rows))
	for i, r := range rows {
		p := make(models.Record, len(keep))
		for _, k := range keep {
			if v, ok := r[k]; ok {
				p[k] = v
			}
		}
		out[i] = p
	}
	return out
}
