package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"seatwatch/internal/domain"
	applog "seatwatch/internal/log"
	"seatwatch/internal/repos"
)

// FeedFetcher reads the upstream schedule feed.
type FeedFetcher interface {
	Fetch(ctx context.Context) ([]domain.RawRecord, error)
}

// SyncService runs reconciliation passes: fetch, normalize, merge labs,
// upsert. Passes are serialized within the process.
type SyncService struct {
	Feed       FeedFetcher
	Merger     *LabMerger
	Reconciler *Reconciler
	Sections   *repos.SectionRepo
	Now        func() time.Time

	mu sync.Mutex
}

func NewSyncService(feed FeedFetcher, sections *repos.SectionRepo) *SyncService {
	return &SyncService{
		Feed:       feed,
		Merger:     NewLabMerger(sections),
		Reconciler: NewReconciler(sections),
		Sections:   sections,
		Now:        time.Now,
	}
}

// Sync performs one reconciliation pass. Domain failures come back as counts;
// the only error returned is *domain.InternalError.
func (s *SyncService) Sync(ctx context.Context) (out domain.SyncOutcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, pass := applog.StartPass(ctx, "sync")
	defer func() {
		if p := recover(); p != nil {
			out = domain.SyncOutcome{}
			err = &domain.InternalError{Op: "sync", Err: fmt.Errorf("panic: %v", p)}
			pass.Error("sync.panic", err, nil)
		}
	}()

	raw, ferr := s.Feed.Fetch(ctx)
	if ferr != nil {
		pass.Warn("sync.fetch.fail", ferr, nil)
		return domain.SyncOutcome{}, nil
	}
	if len(raw) == 0 {
		pass.Done("sync.empty", nil)
		return domain.SyncOutcome{}, nil
	}

	now := s.Now()
	batch := make([]domain.Section, 0, len(raw))
	malformed := 0
	for i, rec := range raw {
		sec, nerr := NormalizeRecord(rec, now)
		if nerr != nil {
			malformed++
			pass.Warn("sync.record.malformed", nerr, map[string]any{"index": i})
			continue
		}
		batch = append(batch, sec)
	}

	merged := s.Merger.Merge(ctx, batch)
	for _, o := range merged.Orphans {
		pass.Warn("sync.lab.orphan", o.Err, map[string]any{
			"section_id":  o.Lab.SectionID,
			"course_code": o.Lab.CourseCode,
		})
	}

	out, rerr := s.Reconciler.Reconcile(ctx, merged.Sections)
	if rerr != nil {
		if errors.Is(rerr, domain.ErrCommitFailure) {
			pass.Error("sync.commit.fail", rerr, map[string]any{"records": len(raw)})
			return domain.SyncOutcome{Failed: len(raw)}, nil
		}
		return domain.SyncOutcome{}, &domain.InternalError{Op: "sync", Err: rerr}
	}
	out.Failed += malformed

	pass.Done("sync.done", map[string]any{
		"records": len(raw),
		"added":   out.Added,
		"updated": out.Updated,
		"failed":  out.Failed,
		"orphans": len(merged.Orphans),
	})
	return out, nil
}

func (s *SyncService) Status(ctx context.Context) (domain.SyncStatus, error) {
	total, _, err := s.Sections.Counts(ctx)
	if err != nil {
		return domain.SyncStatus{}, err
	}
	last, err := s.Sections.LastFetched(ctx)
	if err != nil {
		return domain.SyncStatus{}, err
	}
	return domain.SyncStatus{TotalCourses: total, LastSync: last, SyncEnabled: s.Feed != nil}, nil
}
