package services

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"seatwatch/internal/domain"
	"seatwatch/internal/repos"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

type CatalogService struct {
	Sections *repos.SectionRepo
}

func NewCatalogService(sections *repos.SectionRepo) *CatalogService {
	return &CatalogService{Sections: sections}
}

func (s *CatalogService) List(ctx context.Context, f repos.SectionFilter) ([]domain.Section, error) {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return s.Sections.List(ctx, f)
}

func (s *CatalogService) Get(ctx context.Context, sectionID int64) (domain.Section, error) {
	sec, err := s.Sections.Get(ctx, sectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Section{}, domain.ErrNotFound
	}
	return sec, err
}

func (s *CatalogService) ByCode(ctx context.Context, code string) ([]domain.Section, error) {
	list, err := s.Sections.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.ErrNotFound
	}
	return list, nil
}

func (s *CatalogService) Stats(ctx context.Context) (domain.CatalogStats, error) {
	total, available, err := s.Sections.Counts(ctx)
	if err != nil {
		return domain.CatalogStats{}, err
	}
	return catalogStats(total, available), nil
}

// catalogStats rounds the availability rate to two decimals.
func catalogStats(total, available int) domain.CatalogStats {
	st := domain.CatalogStats{TotalCourses: total, AvailableCourses: available, FullCourses: total - available}
	if total > 0 {
		st.AvailabilityRate = math.Round(float64(available)/float64(total)*10000) / 100
	}
	return st
}
