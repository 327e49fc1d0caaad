package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"seatwatch/internal/domain"
	"seatwatch/internal/repos"
)

var ErrInvalidInterval = fmt.Errorf("notification interval must be between %d and %d minutes",
	domain.MinIntervalMinutes, domain.MaxIntervalMinutes)

// AlertService is the subscription CRUD surface. The notify pass reads and
// writes cooldown state through AlertRepo directly.
type AlertService struct {
	Alerts   *repos.AlertRepo
	Users    *repos.UserRepo
	Sections *repos.SectionRepo
	Now      func() time.Time
}

func NewAlertService(alerts *repos.AlertRepo, users *repos.UserRepo, sections *repos.SectionRepo) *AlertService {
	return &AlertService{Alerts: alerts, Users: users, Sections: sections, Now: time.Now}
}

func validInterval(n int) bool {
	return n >= domain.MinIntervalMinutes && n <= domain.MaxIntervalMinutes
}

// Create subscribes a user to a section. interval 0 means the default.
func (s *AlertService) Create(ctx context.Context, userID string, sectionID int64, interval int) (*domain.AlertView, error) {
	if interval == 0 {
		interval = domain.DefaultIntervalMinutes
	}
	if !validInterval(interval) {
		return nil, ErrInvalidInterval
	}
	if _, err := s.Users.ByID(ctx, userID); err != nil {
		return nil, notFound(err)
	}
	if _, err := s.Sections.Get(ctx, sectionID); err != nil {
		return nil, notFound(err)
	}
	exists, err := s.Alerts.Exists(ctx, userID, sectionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrAlertExists
	}

	a := domain.Alert{
		ID:                          uuid.NewString(),
		UserID:                      userID,
		SectionID:                   sectionID,
		NotificationIntervalMinutes: interval,
		IsActive:                    true,
		CreatedAt:                   s.Now().UTC(),
	}
	if err := s.Alerts.Create(ctx, a); err != nil {
		return nil, err
	}
	return s.Get(ctx, a.ID)
}

func (s *AlertService) Get(ctx context.Context, id string) (*domain.AlertView, error) {
	a, err := s.Alerts.Get(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return s.view(ctx, a)
}

// List returns every alert, optionally only the active ones.
func (s *AlertService) List(ctx context.Context, activeOnly bool) ([]domain.AlertView, error) {
	return s.list(ctx, "", activeOnly)
}

func (s *AlertService) ForUser(ctx context.Context, userID string, activeOnly bool) ([]domain.AlertView, error) {
	if _, err := s.Users.ByID(ctx, userID); err != nil {
		return nil, notFound(err)
	}
	return s.list(ctx, userID, activeOnly)
}

func (s *AlertService) list(ctx context.Context, userID string, activeOnly bool) ([]domain.AlertView, error) {
	alerts, err := s.Alerts.List(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AlertView, 0, len(alerts))
	for _, a := range alerts {
		v, err := s.view(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s *AlertService) Update(ctx context.Context, id string, u domain.AlertUpdate) (*domain.AlertView, error) {
	if u.NotificationIntervalMinutes != nil && !validInterval(*u.NotificationIntervalMinutes) {
		return nil, ErrInvalidInterval
	}
	if _, err := s.Alerts.Get(ctx, id); err != nil {
		return nil, notFound(err)
	}
	if err := s.Alerts.Update(ctx, id, u, s.Now()); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *AlertService) Delete(ctx context.Context, id string) error {
	ok, err := s.Alerts.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// view decorates an alert with its user, its section and whether the next
// notify pass would pick it up.
func (s *AlertService) view(ctx context.Context, a domain.Alert) (*domain.AlertView, error) {
	v := &domain.AlertView{Alert: a}
	u, err := s.Users.ByID(ctx, a.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	v.User = u
	sec, err := s.Sections.Get(ctx, a.SectionID)
	switch {
	case err == nil:
		v.Course = &sec
		v.CourseHasSeats = sec.HasSeats()
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}
	if u != nil && v.Course != nil {
		c := domain.AlertCandidate{Alert: a, UserEmail: u.Email, NotificationsEnabled: u.EmailNotificationsEnabled, Section: sec}
		v.ShouldNotify = Evaluate(c, s.Now()) == AlertEligible
	}
	return v, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
