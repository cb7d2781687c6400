package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/odatabridge/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestOrder creates an Order record with the given key and status.
func createTestOrder(id int64, status string, total string) Record {
	return Record{
		Entity: "Order",
		Key:    ir.IRInt(id),
		Data: ir.IRObject{
			"ID":          ir.IRInt(id),
			"OrderStatus": ir.IRString(status),
			"Total":       ir.MustIRDecimal(total),
			"Active":      ir.IRBool(true),
		},
	}
}

// mustPut writes recs or fails the test.
func mustPut(t *testing.T, s *Store, recs ...Record) {
	t.Helper()
	if err := s.PutAll(context.Background(), recs); err != nil {
		t.Fatalf("PutAll() failed: %v", err)
	}
}
