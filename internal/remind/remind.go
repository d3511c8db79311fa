// Package remind runs a cron-scheduled sweep over upcoming occurrences
// and reports reminders whose fire time falls inside the horizon. The
// sweep only logs; delivering notifications is somebody else's job.
package remind

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	appLog "calbridge/internal/log"
	"calbridge/internal/store"
	"calbridge/internal/usecase"
)

const sweepTimeout = 30 * time.Second

// Sweeper periodically expands the near future and logs due reminders.
type Sweeper struct {
	svc     *usecase.Service
	cron    *cron.Cron
	horizon time.Duration
	loc     *time.Location
}

// New builds a sweeper on the given cron spec (standard 5-field syntax).
func New(svc *usecase.Service, spec string, horizon time.Duration, loc *time.Location) (*Sweeper, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Sweeper{
		svc:     svc,
		cron:    cron.New(),
		horizon: horizon,
		loc:     loc,
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	appLog.Info("reminder sweeper started", "horizon", s.horizon.String())
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	now := time.Now().In(s.loc)
	windowEnd := now.Add(s.horizon)

	cals, err := s.svc.RetrieveCalendars(ctx)
	if err != nil {
		appLog.Error("reminder sweep: calendar listing failed", err)
		return
	}

	due := 0
	for _, cal := range cals {
		events, err := s.svc.RetrieveEvents(ctx, cal.ID, store.EventFilter{
			Start: &now,
			End:   &windowEnd,
		})
		if err != nil {
			appLog.Error("reminder sweep: event listing failed", err, "calendar_id", cal.ID)
			continue
		}
		for _, ev := range events {
			if ev.Start == nil {
				continue
			}
			for _, r := range ev.Reminders {
				fire := ev.Start.Add(-time.Duration(r.Minutes) * time.Minute)
				if fire.Before(now) || !fire.Before(windowEnd) {
					continue
				}
				due++
				appLog.Info("reminder due",
					"calendar_id", cal.ID,
					"event_id", ev.ID,
					"title", ev.Title,
					"fires_at", fire.Format(time.RFC3339),
					"event_start", ev.Start.Format(time.RFC3339),
					"minutes_before", r.Minutes,
				)
			}
		}
	}
	appLog.Debug("reminder sweep completed", "calendars", len(cals), "due", due)
}
