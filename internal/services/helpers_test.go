package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"seatwatch/internal/domain"
	"seatwatch/internal/repos"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fakeFeed struct {
	recs []domain.RawRecord
	err  error
}

func (f *fakeFeed) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	return f.recs, f.err
}

// rec builds a feed record the way the upstream JSON decodes.
func rec(id int64, code, typ string, capacity, consumed int, extra ...any) domain.RawRecord {
	r := domain.RawRecord{
		"sectionId":    float64(id),
		"courseCode":   code,
		"sectionType":  typ,
		"capacity":     float64(capacity),
		"consumedSeat": float64(consumed),
	}
	for i := 0; i+1 < len(extra); i += 2 {
		r[extra[i].(string)] = extra[i+1]
	}
	return r
}

type sentMail struct {
	mu   sync.Mutex
	sent []domain.SeatAlert
}

// fakeSender fails for recipients listed in failFor and panics for panicFor.
type fakeSender struct {
	sentMail
	failFor  map[string]bool
	panicFor map[string]bool
}

func (s *fakeSender) SendSeatAlert(ctx context.Context, a domain.SeatAlert) error {
	if s.panicFor[a.Recipient] {
		panic("smtp client exploded")
	}
	if s.failFor[a.Recipient] {
		return errors.New("550 mailbox unavailable")
	}
	s.mu.Lock()
	s.sent = append(s.sent, a)
	s.mu.Unlock()
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// fakeBatch is an in-memory CatalogBatch.
type fakeBatch struct {
	rows       map[int64]domain.Section
	failInsert map[int64]bool
	commitErr  error
	committed  bool
	rolledBack bool
}

func (b *fakeBatch) Get(ctx context.Context, id int64) (domain.Section, bool, error) {
	s, ok := b.rows[id]
	return s, ok, nil
}

func (b *fakeBatch) Insert(ctx context.Context, s domain.Section) error {
	if b.failInsert[s.SectionID] {
		return errors.New("constraint failed")
	}
	b.rows[s.SectionID] = s
	return nil
}

func (b *fakeBatch) Update(ctx context.Context, s domain.Section) error {
	b.rows[s.SectionID] = s
	return nil
}

func (b *fakeBatch) Isolate(ctx context.Context, fn func() error) error { return fn() }
func (b *fakeBatch) Commit() error {
	if b.commitErr != nil {
		return b.commitErr
	}
	b.committed = true
	return nil
}
func (b *fakeBatch) Rollback() error { b.rolledBack = true; return nil }

type fakeWriter struct {
	batch    *fakeBatch
	beginErr error
}

func (w *fakeWriter) BeginBatch(ctx context.Context) (repos.CatalogBatch, error) {
	if w.beginErr != nil {
		return nil, w.beginErr
	}
	return w.batch, nil
}

func newFakeBatch() *fakeBatch {
	return &fakeBatch{rows: map[int64]domain.Section{}, failInsert: map[int64]bool{}}
}
