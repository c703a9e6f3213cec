package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evently-demo/backend/internal/models"
)

func TestEqual(t *testing.T) {
	assert.True(t, Equal(float64(0), 0))
	assert.True(t, Equal(int64(3), json.Number("3")))
	assert.True(t, Equal("a", "a"))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal("1", 1))
	assert.False(t, Equal(nil, "x"))
	assert.False(t, Equal(true, 1))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(1, 2.5))
	assert.Equal(t, 1, Compare("b", "a"))
	assert.Equal(t, -1, Compare(false, true))
	assert.Equal(t, -1, Compare(nil, 0))
	assert.Equal(t, 1, Compare("x", nil))
	assert.Equal(t, 0, Compare("1", 1))
}

func TestPredicates(t *testing.T) {
	row := models.Record{"id": "7", "price": float64(150000), "ok": true}

	assert.True(t, MatchAll(row, nil))
	assert.True(t, MatchAll(row, []Predicate{Eq("id", "7"), Eq("price", 150000)}))
	assert.False(t, MatchAll(row, []Predicate{Eq("id", "7"), Eq("price", 1)}))
	assert.True(t, In("id", []any{"1", "7"}).Matches(row))
	assert.False(t, In("id", nil).Matches(row))

	assert.True(t, EqText("price", "150000").Matches(row))
	assert.True(t, EqText("ok", "true").Matches(row))
	assert.True(t, InText("id", []string{"3", "7"}).Matches(row))
	assert.False(t, EqText("missing", "null").Matches(row))
}

func TestPredicates_absent_field_never_matches(t *testing.T) {
	row := models.Record{"id": "7", "note": nil}

	assert.False(t, Eq("missing", nil).Matches(row))
	assert.False(t, In("missing", []any{nil}).Matches(row))
	assert.True(t, Eq("note", nil).Matches(row))
	assert.True(t, In("note", []any{nil, "x"}).Matches(row))
}
