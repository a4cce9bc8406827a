package db

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"slurm2sql/parse"
	"slurm2sql/registry"
)

func openMemory(t *testing.T, variant *registry.Variant) Store {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.EnsureSchema(variant); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestWatermark(t *testing.T) {
	store := openMemory(t, registry.VariantLegacy)
	if _, ok, err := store.GetLastTimestamp(); err != nil || ok {
		t.Fatalf("Fresh store should have no watermark (ok=%v, err=%v)", ok, err)
	}
	if err := store.SetLastTimestamp(13); err != nil {
		t.Fatal(err)
	}
	got, ok, err := store.GetLastTimestamp()
	if err != nil || !ok || got != 13 {
		t.Fatalf("Watermark = %d, %v, %v; want 13, true, nil", got, ok, err)
	}
	// Overwrite is unconditional.
	if err := store.SetLastTimestamp(7); err != nil {
		t.Fatal(err)
	}
	if got, _, _ := store.GetLastTimestamp(); got != 7 {
		t.Fatalf("Watermark = %d, want 7", got)
	}
}

func TestInsertIdempotent(t *testing.T) {
	variant := registry.VariantLegacy
	store := openMemory(t, variant)
	line := "999|user1|user1|acct|COMPLETED|10|10|2019-08-01T00:00:00|2019-08-01T00:01:00|" +
		"2019-08-01T00:11:00|p|n1|1|1|1Gn|1||cpu=1|1|1|1|1|1|0:0|||||||||j\n"
	rows, dropped, err := parse.Records(strings.NewReader(line), variant, time.Now(), false)
	if err != nil || dropped != 0 || len(rows) != 1 {
		t.Fatalf("rows %d dropped %d err %v", len(rows), dropped, err)
	}
	if err := store.InsertRows(variant, rows); err != nil {
		t.Fatal(err)
	}
	// A second load of the same window must not duplicate anything.
	if err := store.InsertRows(variant, rows); err != nil {
		t.Fatal(err)
	}
	s := store.(*sqliteStore)
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM slurm").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("Row count = %d, want 1", n)
	}
}

func TestSchemaShapeByVariant(t *testing.T) {
	store := openMemory(t, registry.VariantTRES)
	s := store.(*sqliteStore)
	var x sql.NullString
	if err := s.db.QueryRow("SELECT ReqTRES FROM slurm LIMIT 1").Scan(&x); err != nil &&
		err != sql.ErrNoRows {
		t.Errorf("ReqTRES should be selectable: %v", err)
	}
	err := s.db.QueryRow("SELECT ReqGRES FROM slurm LIMIT 1").Scan(&x)
	if err == nil || !strings.Contains(err.Error(), "no such column") {
		t.Errorf("ReqGRES should not exist in the tres-variant schema, got %v", err)
	}
}
