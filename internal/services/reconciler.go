package services

import (
	"context"
	"fmt"

	"seatwatch/internal/domain"
	applog "seatwatch/internal/log"
	"seatwatch/internal/repos"
)

// CatalogWriter opens the atomic write unit for one reconciliation pass.
type CatalogWriter interface {
	BeginBatch(ctx context.Context) (repos.CatalogBatch, error)
}

type Reconciler struct {
	Store CatalogWriter
}

func NewReconciler(store CatalogWriter) *Reconciler { return &Reconciler{Store: store} }

// Reconcile upserts a merged batch keyed by section id. A record that fails
// is counted and rolled back on its own; the batch commits as one unit. When
// the batch cannot be opened or committed nothing took effect, the outcome
// is {0, 0, len(batch)} and the error wraps domain.ErrCommitFailure.
func (r *Reconciler) Reconcile(ctx context.Context, batch []domain.Section) (domain.SyncOutcome, error) {
	var out domain.SyncOutcome
	if len(batch) == 0 {
		return out, nil
	}
	allFailed := domain.SyncOutcome{Failed: len(batch)}

	b, err := r.Store.BeginBatch(ctx)
	if err != nil {
		return allFailed, fmt.Errorf("%w: begin: %v", domain.ErrCommitFailure, err)
	}

	for _, rec := range batch {
		added, err := r.apply(ctx, b, rec)
		if err != nil {
			out.Failed++
			applog.PassFrom(ctx).Error("sync.record.fail", err, map[string]any{
				"section_id":  rec.SectionID,
				"course_code": rec.CourseCode,
			})
			continue
		}
		if added {
			out.Added++
		} else {
			out.Updated++
		}
	}

	if err := b.Commit(); err != nil {
		_ = b.Rollback()
		return allFailed, fmt.Errorf("%w: %v", domain.ErrCommitFailure, err)
	}
	return out, nil
}

func (r *Reconciler) apply(ctx context.Context, b repos.CatalogBatch, rec domain.Section) (added bool, err error) {
	if rec.IsLab() {
		return false, fmt.Errorf("%w: lab section %d cannot be stored", domain.ErrPersistence, rec.SectionID)
	}
	err = b.Isolate(ctx, func() error {
		_, found, err := b.Get(ctx, rec.SectionID)
		if err != nil {
			return err
		}
		if found {
			return b.Update(ctx, rec)
		}
		added = true
		return b.Insert(ctx, rec)
	})
	if err != nil {
		return false, fmt.Errorf("%w: section %d: %v", domain.ErrPersistence, rec.SectionID, err)
	}
	return added, nil
}
