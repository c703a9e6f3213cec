package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Table names a collection in the store.
type Table string

const (
	TableEvents       Table = "events"
	TableParticipants Table = "participants"
	TableProfiles     Table = "profiles"
	TableWishlist     Table = "wishlist"
)

// Tables lists every known collection in seeding order.
var Tables = []Table{TableEvents, TableProfiles, TableParticipants, TableWishlist}

// ParseTable returns the Table for name and whether it is known.
func ParseTable(name string) (Table, bool) {
	for _, t := range Tables {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

// Record is one untyped JSON row.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the field as a string, or "" when absent or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Decode converts a record (or any JSON-shaped value) into dst.
func Decode(src any, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	return nil
}

// ToRecord converts a typed value into a Record through its JSON form.
func ToRecord(v any) (Record, error) {
	var r Record
	if err := Decode(v, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// timestampLayout is UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t the way stored records carry timestamps.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
