package services

import (
	"context"
	"sync"
	"time"

	applog "seatwatch/internal/log"
)

// Scheduler drives the sync and notify passes on their own tickers. A zero
// interval leaves that loop off.
type Scheduler struct {
	Sync           *SyncService
	Notify         *Notifier
	SyncInterval   time.Duration
	NotifyInterval time.Duration

	wg sync.WaitGroup
}

func NewScheduler(s *SyncService, n *Notifier, syncEvery, notifyEvery time.Duration) *Scheduler {
	return &Scheduler{Sync: s, Notify: n, SyncInterval: syncEvery, NotifyInterval: notifyEvery}
}

// Start launches the loops; they stop when ctx is cancelled. Wait blocks
// until both have returned.
func (s *Scheduler) Start(ctx context.Context) {
	if s.SyncInterval > 0 && s.Sync != nil {
		s.loop(ctx, "sync", s.SyncInterval, func(ctx context.Context) error {
			_, err := s.Sync.Sync(ctx)
			return err
		})
	}
	if s.NotifyInterval > 0 && s.Notify != nil {
		s.loop(ctx, "notify", s.NotifyInterval, func(ctx context.Context) error {
			_, err := s.Notify.Run(ctx)
			return err
		})
	}
}

func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) loop(ctx context.Context, name string, every time.Duration, pass func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		applog.Info(nil, "scheduler.start", map[string]any{"loop": name, "every": every.String()})
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				applog.Info(nil, "scheduler.stop", map[string]any{"loop": name})
				return
			case <-t.C:
				if err := pass(ctx); err != nil {
					applog.Error(nil, "scheduler.pass.fail", err, map[string]any{"loop": name})
				}
			}
		}
	}()
}
