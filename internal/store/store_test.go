package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatabridge/internal/ir"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put(ctx, createTestOrder(1, "New", "10")))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	_, found, err := s2.Get(ctx, "Order", ir.IRInt(1))
	require.NoError(t, err)
	assert.True(t, found, "record should survive reopen")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_CreatesEntityIndex(t *testing.T) {
	s := createTestStore(t)

	var name string
	err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_records_entity_seq'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "idx_records_entity_seq", name)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestPutGet_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustPut(t, s, createTestOrder(7, "Shipped", "12.50"))

	rec, found, err := s.Get(ctx, "Order", ir.IRInt(7))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Order", rec.Entity)
	assert.Equal(t, ir.IRInt(7), rec.Key)
	assert.Equal(t, ir.IRString("Shipped"), rec.Data["OrderStatus"])
	// Decimals come back as strings until coerced against the schema.
	assert.Equal(t, ir.IRString("12.5"), rec.Data["Total"])
	assert.Positive(t, rec.Seq)
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, found, err := s.Get(context.Background(), "Order", ir.IRInt(1))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKeys_IntAndStringAreDistinct(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustPut(t, s,
		Record{Entity: "Customer", Key: ir.IRInt(5), Data: ir.IRObject{"n": ir.IRString("int")}},
		Record{Entity: "Customer", Key: ir.IRString("5"), Data: ir.IRObject{"n": ir.IRString("string")}},
	)

	rec, found, err := s.Get(ctx, "Customer", ir.IRString("5"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ir.IRString("string"), rec.Data["n"])
	assert.Equal(t, ir.IRString("5"), rec.Key)
}

func TestPut_RejectsNonScalarKey(t *testing.T) {
	s := createTestStore(t)

	err := s.Put(context.Background(), Record{Entity: "Order", Key: ir.IRNull{}, Data: ir.IRObject{}})
	assert.ErrorContains(t, err, "key must be an int or string")

	_, _, err = s.Get(context.Background(), "Order", ir.IRBool(true))
	assert.Error(t, err)
}

func TestPut_UpdateKeepsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustPut(t, s, createTestOrder(1, "New", "1"), createTestOrder(2, "New", "2"))
	before, _, err := s.Get(ctx, "Order", ir.IRInt(1))
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, createTestOrder(1, "Closed", "1")))

	after, _, err := s.Get(ctx, "Order", ir.IRInt(1))
	require.NoError(t, err)
	assert.Equal(t, before.Seq, after.Seq)
	assert.Equal(t, ir.IRString("Closed"), after.Data["OrderStatus"])
}

func TestPut_SameDataIsNoOp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestOrder(1, "New", "1")
	mustPut(t, s, rec)
	require.NoError(t, s.Put(ctx, rec))

	// Single connection, so changes() reports the Put above.
	var changed int
	require.NoError(t, s.db.QueryRow(`SELECT changes()`).Scan(&changed))
	assert.Equal(t, 0, changed)

	require.NoError(t, s.Put(ctx, createTestOrder(1, "Closed", "1")))
	require.NoError(t, s.db.QueryRow(`SELECT changes()`).Scan(&changed))
	assert.Equal(t, 1, changed)
}

func TestPutAll_Atomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.PutAll(ctx, []Record{
		createTestOrder(1, "New", "1"),
		{Entity: "Order", Key: ir.IRArray{}, Data: ir.IRObject{}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")

	_, found, err := s.Get(ctx, "Order", ir.IRInt(1))
	require.NoError(t, err)
	assert.False(t, found, "first record must be rolled back")
}

func TestDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustPut(t, s, createTestOrder(1, "New", "1"))

	existed, err := s.Delete(ctx, "Order", ir.IRInt(1))
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete(ctx, "Order", ir.IRInt(1))
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestQueryRecords_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustPut(t, s,
		createTestOrder(3, "New", "3"),
		createTestOrder(1, "Closed", "1"),
		createTestOrder(2, "New", "2"),
	)

	recs, err := s.QueryRecords(ctx,
		`SELECT seq, entity, key, data FROM records WHERE entity IN (?) AND json_extract(data, '$.OrderStatus') = ? ORDER BY seq ASC`,
		"Order", "New")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, ir.IRInt(3), recs[0].Key)
	assert.Equal(t, ir.IRInt(2), recs[1].Key)
}

func TestQueryRecords_Empty(t *testing.T) {
	s := createTestStore(t)

	recs, err := s.QueryRecords(context.Background(), `SELECT seq, entity, key, data FROM records`)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestQueryColumnAndScalar(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustPut(t, s, createTestOrder(1, "New", "1.5"), createTestOrder(2, "Closed", "2"))

	col, err := s.QueryColumn(ctx, `SELECT json_extract(data, '$.OrderStatus') FROM records ORDER BY seq ASC`)
	require.NoError(t, err)
	assert.Equal(t, []any{"New", "Closed"}, col)

	n, err := s.QueryScalar(ctx, `SELECT COUNT(*) FROM records WHERE entity = ?`, "Order")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	missing, err := s.QueryScalar(ctx, `SELECT json_extract(data, '$.Date') FROM records LIMIT 1`)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestQuery_BadSQL(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.QueryRecords(ctx, `SELECT nope FROM records`)
	assert.Error(t, err)
	_, err = s.QueryColumn(ctx, `SELECT FROM`)
	assert.Error(t, err)
	_, err = s.QueryScalar(ctx, `SELECT FROM`)
	assert.Error(t, err)
}

func TestConcurrentReads(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustPut(t, s, createTestOrder(1, "New", "1"))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, found, err := s.Get(ctx, "Order", ir.IRInt(1))
			if err == nil && !found {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
