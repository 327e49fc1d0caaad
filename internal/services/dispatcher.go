package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"seatwatch/internal/domain"
)

// EmailSender delivers one seat alert. Rendering is the sender's concern.
type EmailSender interface {
	SendSeatAlert(ctx context.Context, a domain.SeatAlert) error
}

const (
	DefaultGroupSize  = 10
	DefaultGroupDelay = time.Second
)

// DispatchReport carries the aggregate counts plus per-alert outcomes.
type DispatchReport struct {
	domain.DispatchResult
	Delivered []string         // alert ids whose send succeeded
	Errors    map[string]error // alert id -> failure
}

// Dispatcher sends alerts in fixed-size groups. Sends within a group run
// concurrently; groups run one after another with a pause in between.
type Dispatcher struct {
	Sender     EmailSender
	GroupSize  int
	GroupDelay time.Duration
	// Sleep waits between groups; nil means a ctx-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(sender EmailSender, groupSize int, groupDelay time.Duration) *Dispatcher {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}
	if groupDelay < 0 {
		groupDelay = 0
	}
	return &Dispatcher{Sender: sender, GroupSize: groupSize, GroupDelay: groupDelay, Sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, alerts []domain.SeatAlert) DispatchReport {
	rep := DispatchReport{Errors: map[string]error{}}
	size := d.GroupSize
	if size <= 0 {
		size = DefaultGroupSize
	}
	sleep := d.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for start := 0; start < len(alerts); start += size {
		if start > 0 {
			if err := sleep(ctx, d.GroupDelay); err != nil {
				for _, a := range alerts[start:] {
					rep.fail(a.AlertID, fmt.Errorf("%w: %v", domain.ErrDispatchFailure, err))
				}
				break
			}
		}
		end := start + size
		if end > len(alerts) {
			end = len(alerts)
		}
		group := alerts[start:end]
		errs := make([]error, len(group))

		var wg sync.WaitGroup
		for i := range group {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = d.send(ctx, group[i])
			}(i)
		}
		wg.Wait()

		for i, a := range group {
			if errs[i] != nil {
				rep.fail(a.AlertID, errs[i])
				continue
			}
			rep.Sent++
			rep.Delivered = append(rep.Delivered, a.AlertID)
		}
	}
	return rep
}

// send turns transport errors and panics alike into a per-item failure.
func (d *Dispatcher) send(ctx context.Context, a domain.SeatAlert) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrDispatchFailure, p)
		}
	}()
	if a.Recipient == "" {
		return fmt.Errorf("%w: no recipient", domain.ErrDispatchFailure)
	}
	if err := d.Sender.SendSeatAlert(ctx, a); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDispatchFailure, err)
	}
	return nil
}

func (r *DispatchReport) fail(alertID string, err error) {
	r.Failed++
	r.Errors[alertID] = err
}
