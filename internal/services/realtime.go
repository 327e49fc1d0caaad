package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"seatwatch/internal/domain"
)

// MinSearchLen is the shortest accepted live search query.
const MinSearchLen = 2

var ErrSearchTooShort = errors.New("search query must be at least 2 characters")

// LiveSnapshot is one normalized read of the upstream feed. Skipped counts
// malformed records and labs with no parent in the same read.
type LiveSnapshot struct {
	Sections  []domain.Section `json:"courses"`
	Total     int              `json:"total"`
	Skipped   int              `json:"skipped"`
	FetchedAt time.Time        `json:"timestamp"`
}

type LiveStats struct {
	domain.CatalogStats
	FetchedAt time.Time `json:"timestamp"`
}

// feedOnly has no persisted parents; live reads never touch the store.
type feedOnly struct{}

func (feedOnly) ParentCandidates(context.Context, string) ([]domain.Section, error) { return nil, nil }

// RealtimeService serves catalog reads straight from the feed. Records go
// through the same normalization and lab merge as a sync pass, but nothing
// is written. A snapshot is reused for MaxAge so bursts of reads cost one
// upstream fetch.
type RealtimeService struct {
	Feed   FeedFetcher
	Merger *LabMerger
	MaxAge time.Duration
	Now    func() time.Time

	mu   sync.Mutex
	last *LiveSnapshot
}

func NewRealtimeService(feed FeedFetcher, maxAge time.Duration) *RealtimeService {
	return &RealtimeService{Feed: feed, Merger: NewLabMerger(feedOnly{}), MaxAge: maxAge, Now: time.Now}
}

// Snapshot returns the current feed as sections, or a wrapped
// domain.ErrFetchFailure.
func (s *RealtimeService) Snapshot(ctx context.Context) (LiveSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	if s.last != nil && s.MaxAge > 0 && now.Sub(s.last.FetchedAt) < s.MaxAge {
		return *s.last, nil
	}

	raw, err := s.Feed.Fetch(ctx)
	if err != nil {
		return LiveSnapshot{}, err
	}
	snap := LiveSnapshot{FetchedAt: now.UTC()}
	batch := make([]domain.Section, 0, len(raw))
	for _, rec := range raw {
		sec, err := NormalizeRecord(rec, now)
		if err != nil {
			snap.Skipped++
			continue
		}
		batch = append(batch, sec)
	}
	merged := s.Merger.Merge(ctx, batch)
	snap.Sections = merged.Sections
	snap.Skipped += len(merged.Orphans)
	snap.Total = len(snap.Sections)
	if snap.Sections == nil {
		snap.Sections = []domain.Section{}
	}

	s.last = &snap
	return snap, nil
}

// ByCode returns every live section of a course, case-insensitively.
func (s *RealtimeService) ByCode(ctx context.Context, code string) ([]domain.Section, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Section
	for _, sec := range snap.Sections {
		if strings.EqualFold(sec.CourseCode, code) {
			out = append(out, sec)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

// Search matches q as a case-insensitive substring of the course code or
// section name.
func (s *RealtimeService) Search(ctx context.Context, q string) ([]domain.Section, error) {
	q = strings.ToUpper(strings.TrimSpace(q))
	if len(q) < MinSearchLen {
		return nil, ErrSearchTooShort
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.Section{}
	for _, sec := range snap.Sections {
		if strings.Contains(strings.ToUpper(sec.CourseCode), q) || strings.Contains(strings.ToUpper(sec.SectionName), q) {
			out = append(out, sec)
		}
	}
	return out, nil
}

func (s *RealtimeService) Stats(ctx context.Context) (LiveStats, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return LiveStats{}, err
	}
	available := 0
	for _, sec := range snap.Sections {
		if sec.HasSeats() {
			available++
		}
	}
	return LiveStats{CatalogStats: catalogStats(snap.Total, available), FetchedAt: snap.FetchedAt}, nil
}
