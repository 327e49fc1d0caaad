package services_test

import (
	"context"
	"errors"
	"testing"

	"seatwatch/internal/domain"
	"seatwatch/internal/services"
)

func TestReconcile_EmptyBatch(t *testing.T) {
	r := services.NewReconciler(&fakeWriter{beginErr: errors.New("must not be called")})
	out, err := r.Reconcile(context.Background(), nil)
	if err != nil || out != (domain.SyncOutcome{}) {
		t.Fatalf("empty batch: %+v, %v", out, err)
	}
}

func TestReconcile_AddsThenUpdates(t *testing.T) {
	b := newFakeBatch()
	r := services.NewReconciler(&fakeWriter{batch: b})
	batch := []domain.Section{lecture(1, "CSE110", "01"), lecture(2, "CSE110", "02")}

	out, err := r.Reconcile(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if out != (domain.SyncOutcome{Added: 2}) {
		t.Fatalf("first pass: %+v", out)
	}

	out, err = r.Reconcile(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if out != (domain.SyncOutcome{Updated: 2}) {
		t.Fatalf("second pass: %+v", out)
	}
	if !b.committed {
		t.Fatal("batch not committed")
	}
}

func TestReconcile_RecordFailureIsIsolated(t *testing.T) {
	b := newFakeBatch()
	b.failInsert[2] = true
	r := services.NewReconciler(&fakeWriter{batch: b})

	out, err := r.Reconcile(context.Background(), []domain.Section{
		lecture(1, "CSE110", "01"),
		lecture(2, "CSE110", "02"),
		lab(3, "CSE110L", "01", "LAB1"),
		lecture(4, "CSE110", "03"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != (domain.SyncOutcome{Added: 2, Failed: 2}) {
		t.Fatalf("want {2,0,2}, got %+v", out)
	}
	if _, ok := b.rows[4]; !ok {
		t.Fatal("records after a failure must still be written")
	}
	if _, ok := b.rows[3]; ok {
		t.Fatal("a lab must never be stored as its own row")
	}
}

func TestReconcile_CommitFailure(t *testing.T) {
	b := newFakeBatch()
	b.commitErr = errors.New("disk full")
	r := services.NewReconciler(&fakeWriter{batch: b})

	out, err := r.Reconcile(context.Background(), []domain.Section{lecture(1, "CSE110", "01"), lecture(2, "CSE110", "02")})
	if !errors.Is(err, domain.ErrCommitFailure) {
		t.Fatalf("want ErrCommitFailure, got %v", err)
	}
	if out != (domain.SyncOutcome{Failed: 2}) {
		t.Fatalf("want {0,0,2}, got %+v", out)
	}
	if !b.rolledBack {
		t.Fatal("failed commit should roll back")
	}

	r = services.NewReconciler(&fakeWriter{beginErr: errors.New("locked")})
	out, err = r.Reconcile(context.Background(), []domain.Section{lecture(1, "CSE110", "01")})
	if !errors.Is(err, domain.ErrCommitFailure) || out != (domain.SyncOutcome{Failed: 1}) {
		t.Fatalf("begin failure: %+v, %v", out, err)
	}
}
