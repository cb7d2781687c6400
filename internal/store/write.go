package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/odatabridge/internal/ir"
)

// Record is one stored entity instance.
type Record struct {
	Seq    int64
	Entity string
	Key    ir.IRValue
	Data   ir.IRObject
}

// Put inserts rec, or replaces the stored data for the same (entity, key).
// A replacement keeps the original seq so insertion order is stable.
// Writing identical data again is a no-op.
func (s *Store) Put(ctx context.Context, rec Record) error {
	return put(ctx, s.db, rec)
}

// PutAll writes recs in a single transaction. Either all are written or
// none are.
func (s *Store) PutAll(ctx context.Context, recs []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put all: begin: %w", err)
	}
	defer tx.Rollback()

	for i, rec := range recs {
		if err := put(ctx, tx, rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put all: commit: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func put(ctx context.Context, db execer, rec Record) error {
	key, err := marshalKey(rec.Key)
	if err != nil {
		return fmt.Errorf("put %s: %w", rec.Entity, err)
	}
	data, err := ir.MarshalCanonical(rec.Data)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", rec.Entity, key, err)
	}
	hash, err := ir.Hash(ir.DomainRecord, rec.Data)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", rec.Entity, key, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO records (entity, key, data, hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity, key) DO UPDATE
		SET data = excluded.data, hash = excluded.hash
		WHERE records.hash != excluded.hash
	`, rec.Entity, key, string(data), hash)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", rec.Entity, key, err)
	}
	return nil
}

// Delete removes the record for (entity, key). It reports whether a record
// existed.
func (s *Store) Delete(ctx context.Context, entity string, key ir.IRValue) (bool, error) {
	k, err := marshalKey(key)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", entity, err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE entity = ? AND key = ?`, entity, k)
	if err != nil {
		return false, fmt.Errorf("delete %s %s: %w", entity, k, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s %s: %w", entity, k, err)
	}
	return n > 0, nil
}

// marshalKey encodes a key value as canonical JSON so int 5 and string "5"
// stay distinct.
func marshalKey(key ir.IRValue) (string, error) {
	switch key.(type) {
	case ir.IRInt, ir.IRString:
	default:
		return "", fmt.Errorf("key must be an int or string, got %T", key)
	}
	b, err := ir.MarshalCanonical(key)
	if err != nil {
		return "", fmt.Errorf("marshal key: %w", err)
	}
	return string(b), nil
}
