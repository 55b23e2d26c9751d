package repository

import (
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// jsonColumn scans json/jsonb columns into dst. pgx hands jsonb back as
// []byte while SQLite returns text.
type jsonColumn struct {
	dst any
}

func (c jsonColumn) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("json column: unsupported source type %T", src)
	}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, c.dst)
}

// jsonValue encodes v for a json column; nil slices are stored as empty arrays.
func jsonValue[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func strPtr(ns stdsql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func floatPtr(nf stdsql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func timePtr(nt stdsql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func now() time.Time {
	return time.Now().UTC()
}
