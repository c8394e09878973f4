//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"banditlab/internal/model"
)

func TestSQLiteStoreRoundTripAndReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "banditlab.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	record, err := NewRecord("k1", "simulate", model.TrialSequence{Choices: []int{0, 1}, Successes: []bool{true, false}})
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := NewSQLiteStore(dbPath)
	if err := reopened.Init(ctx); err != nil {
		t.Fatalf("reinit: %v", err)
	}
	t.Cleanup(func() {
		_ = reopened.Close()
	})

	loaded, ok, err := reopened.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%t err=%v", ok, err)
	}
	var seq model.TrialSequence
	if err := DecodeValue(loaded, &seq); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if seq.Len() != 2 || seq.Choices[1] != 1 || !seq.Successes[0] {
		t.Fatalf("unexpected sequence %+v", seq)
	}

	keys, err := reopened.Keys(ctx)
	if err != nil || len(keys) != 1 {
		t.Fatalf("unexpected keys %v err=%v", keys, err)
	}
	if err := reopened.Delete(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := reopened.Get(ctx, "k1"); ok {
		t.Fatal("expected deleted record to be gone")
	}
}

func TestSQLiteMemoAcrossStores(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore("sqlite", filepath.Join(t.TempDir(), "memo.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = CloseIfSupported(store)
	})

	calls := 0
	compute := func(context.Context) (float64, error) {
		calls++
		return 1.5, nil
	}
	for i := 0; i < 2; i++ {
		if _, err := Memo(ctx, store, "nll", []float64{0.1, 10}, compute); err != nil {
			t.Fatalf("memo: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected single compute, got %d", calls)
	}
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty path")
	}
}
