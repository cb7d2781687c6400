package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/odatabridge/internal/ir"
)

// Get returns the record for (entity, key).
func (s *Store) Get(ctx context.Context, entity string, key ir.IRValue) (Record, bool, error) {
	k, err := marshalKey(key)
	if err != nil {
		return Record{}, false, fmt.Errorf("get %s: %w", entity, err)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, entity, key, data FROM records
		WHERE entity = ? AND key = ?
	`, entity, k)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get %s %s: %w", entity, k, err)
	}
	return rec, true, nil
}

// QueryRecords runs a SELECT producing (seq, entity, key, data) columns.
// The query text must use ? placeholders for every value.
func (s *Store) QueryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("query records: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return out, nil
}

// QueryColumn runs a SELECT producing one column and returns its values as
// the driver reports them (int64, string, []byte or nil).
func (s *Store) QueryColumn(ctx context.Context, query string, args ...any) ([]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query column: %w", err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("query column: %w", err)
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query column: %w", err)
	}
	return out, nil
}

// QueryScalar runs a SELECT producing a single value.
func (s *Store) QueryScalar(ctx context.Context, query string, args ...any) (any, error) {
	var v any
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return nil, fmt.Errorf("query scalar: %w", err)
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	return v, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec  Record
		key  string
		data string
	)
	if err := sc.Scan(&rec.Seq, &rec.Entity, &key, &data); err != nil {
		return Record{}, err
	}

	var keyArr ir.IRArray
	if err := keyArr.UnmarshalJSON([]byte("[" + key + "]")); err != nil {
		return Record{}, fmt.Errorf("decode key %s: %w", key, err)
	}
	rec.Key = keyArr[0]

	if err := rec.Data.UnmarshalJSON([]byte(data)); err != nil {
		return Record{}, fmt.Errorf("decode data for %s %s: %w", rec.Entity, key, err)
	}
	return rec, nil
}
