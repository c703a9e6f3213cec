package models

// Result is what every query and mutation resolves to: either Data or Error
// is meaningful, never both.
type Result struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
	// Count is set when the query asked for an exact count.
	Count *int `json:"count,omitempty"`
	// Persisted is false when the change was applied but the medium rejected
	// the write. Reads always report true.
	Persisted bool `json:"-"`
}

// Fail builds an error result.
func Fail(err *Error) Result {
	return Result{Error: err, Persisted: true}
}

// OK reports whether the result carries no error.
func (r Result) OK() bool { return r.Error == nil }

// Rows returns Data as a slice of records. A single-row result is returned as
// a one-element slice; nil data as an empty slice.
func (r Result) Rows() []Record {
	switch v := r.Data.(type) {
	case []Record:
		return v
	case Record:
		return []Record{v}
	default:
		return []Record{}
	}
}

// Row returns Data as one record, or nil when Data is not a single record.
func (r Result) Row() Record {
	if v, ok := r.Data.(Record); ok {
		return v
	}
	return nil
}
