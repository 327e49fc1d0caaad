package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"seatwatch/internal/domain"
	applog "seatwatch/internal/log"
)

// SubscriptionStore is the notification-state side of the alert store.
type SubscriptionStore interface {
	Candidates(ctx context.Context) ([]domain.AlertCandidate, error)
	MarkNotified(ctx context.Context, alertIDs []string, at time.Time) (int, error)
}

// AlertState is evaluated per pass and never persisted; only the cooldown
// fields behind it are.
type AlertState int

const (
	AlertDormant AlertState = iota
	AlertEligible
	AlertNotified
)

func (s AlertState) String() string {
	switch s {
	case AlertEligible:
		return "ELIGIBLE"
	case AlertNotified:
		return "NOTIFIED"
	}
	return "DORMANT"
}

// Evaluate decides DORMANT or ELIGIBLE for one alert at now.
func Evaluate(c domain.AlertCandidate, now time.Time) AlertState {
	if !c.IsActive || !c.NotificationsEnabled {
		return AlertDormant
	}
	if !c.Section.HasSeats() || !c.CooldownElapsed(now) {
		return AlertDormant
	}
	return AlertEligible
}

// Notifier is the eligibility engine: it picks the eligible alerts, hands
// them to the dispatcher and records NOTIFIED only for successful sends.
type Notifier struct {
	Alerts     SubscriptionStore
	Dispatcher *Dispatcher
	Now        func() time.Time

	mu sync.Mutex
}

func NewNotifier(alerts SubscriptionStore, d *Dispatcher) *Notifier {
	return &Notifier{Alerts: alerts, Dispatcher: d, Now: time.Now}
}

func seatAlertFor(c domain.AlertCandidate) domain.SeatAlert {
	return domain.SeatAlert{
		AlertID:        c.ID,
		Recipient:      c.UserEmail,
		CourseCode:     c.Section.CourseCode,
		SectionName:    c.Section.SectionName,
		AvailableSeats: c.Section.AvailableSeats,
		Capacity:       c.Section.Capacity,
		RoomName:       c.Section.RoomName,
		Faculties:      c.Section.Faculties,
		Schedule:       c.Section.Schedule,
	}
}

// Run performs one eligibility pass. Cooldown state is written only after
// dispatch completes and only for alerts whose send succeeded. The result is
// always returned; err is non-nil only for *domain.InternalError.
func (n *Notifier) Run(ctx context.Context) (res domain.DispatchResult, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ctx, pass := applog.StartPass(ctx, "notify")
	defer func() {
		if p := recover(); p != nil {
			err = &domain.InternalError{Op: "notify", Err: fmt.Errorf("panic: %v", p)}
			pass.Error("notify.panic", err, nil)
		}
	}()

	candidates, err := n.Alerts.Candidates(ctx)
	if err != nil {
		return res, &domain.InternalError{Op: "notify.candidates", Err: err}
	}

	evalAt := n.Now()
	var eligible []domain.SeatAlert
	for _, c := range candidates {
		if Evaluate(c, evalAt) == AlertEligible {
			eligible = append(eligible, seatAlertFor(c))
		}
	}
	if len(eligible) == 0 {
		pass.Done("notify.none", map[string]any{"candidates": len(candidates)})
		return res, nil
	}

	rep := n.Dispatcher.Dispatch(ctx, eligible)
	res = rep.DispatchResult
	for id, derr := range rep.Errors {
		pass.Warn("notify.send.fail", derr, map[string]any{"alert_id": id})
	}

	// ELIGIBLE -> NOTIFIED; failed sends keep their cooldown untouched.
	marked, err := n.Alerts.MarkNotified(ctx, rep.Delivered, n.Now())
	if err != nil {
		pass.Error("notify.mark.fail", err, map[string]any{"delivered": len(rep.Delivered)})
		return res, &domain.InternalError{Op: "notify.mark", Err: err}
	}

	pass.Done("notify.done", map[string]any{
		"candidates": len(candidates),
		"eligible":   len(eligible),
		"sent":       res.Sent,
		"failed":     res.Failed,
		"marked":     marked,
	})
	return res, nil
}
