// Package monitor periodically sweeps the pipeline and raises alerts for
// RFPs close to their deadline and for validation items waiting on review.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kalambet/rfpdesk/internal/analytics"
	"github.com/kalambet/rfpdesk/internal/model"
)

const (
	DefaultSchedule     = "@every 1m"
	DefaultDeadlineDays = analytics.NearDeadlineDays

	pendingAlertID = "ALT-VALIDATION-PENDING"
)

// AlertStore is the live record set the monitor reads and writes.
// Implemented by fixture.Store.
type AlertStore interface {
	RFPs() []model.RFP
	ValidationItems() []model.ValidationItem
	UpsertAlert(alert model.Alert) bool
	ResolveAlert(id, title, description string) bool
}

// Observer counts sweeps and newly raised alerts.
type Observer interface {
	ObserveAlert(typ model.AlertType)
	ObserveSweep()
}

type Options struct {
	Schedule     string
	DeadlineDays int
	Observer     Observer
	Now          func() time.Time
	Logger       *slog.Logger
}

type Monitor struct {
	store        AlertStore
	schedule     string
	deadlineDays int
	observer     Observer
	now          func() time.Time
	logger       *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func New(store AlertStore, opts Options) *Monitor {
	m := &Monitor{
		store:        store,
		schedule:     opts.Schedule,
		deadlineDays: opts.DeadlineDays,
		observer:     opts.Observer,
		now:          opts.Now,
		logger:       opts.Logger,
	}
	if m.schedule == "" {
		m.schedule = DefaultSchedule
	}
	if m.deadlineDays <= 0 {
		m.deadlineDays = DefaultDeadlineDays
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Start runs one sweep immediately and then schedules further sweeps.
// Sweeps stop when ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		return fmt.Errorf("monitor already started")
	}

	c := cron.New()
	if _, err := c.AddFunc(m.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := m.RunOnce(ctx); err != nil {
			m.logger.Error("monitor sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("parsing schedule %q: %w", m.schedule, err)
	}

	if _, err := m.RunOnce(ctx); err != nil {
		m.logger.Error("monitor sweep failed", "error", err)
	}

	m.cron = c
	c.Start()
	m.logger.Info("deadline monitor started", "schedule", m.schedule, "deadline_days", m.deadlineDays)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	m.logger.Info("deadline monitor stopped")
}

// RunOnce performs a single sweep and returns the number of alerts that
// were newly raised.
func (m *Monitor) RunOnce(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := m.now()
	raised := 0

	for _, r := range m.store.RFPs() {
		id := deadlineAlertID(r.ID)
		days := analytics.DaysUntil(r.Deadline, now)
		if r.CurrentStage == model.StageSubmitted || r.Deadline.Before(now) || days > m.deadlineDays {
			if m.store.ResolveAlert(id, "Deadline Cleared", deadlineResolution(r, days, now)) {
				m.logger.Info("alert resolved", "alert_id", id, "rfp_id", r.ID)
			}
			continue
		}
		alert := model.Alert{
			ID:          id,
			Type:        model.AlertError,
			Title:       "Deadline Critical",
			Description: fmt.Sprintf("%s deadline in %s - %s pending", r.ID, dayCount(days), r.CurrentStage.Label()),
			RFPID:       r.ID,
			CreatedAt:   now,
		}
		if m.store.UpsertAlert(alert) {
			raised++
			m.observeAlert(alert.Type)
			m.logger.Info("alert raised", "alert_id", alert.ID, "rfp_id", r.ID, "days", days)
		}
	}

	pending := analytics.ApprovalPendingCount(m.store.ValidationItems())
	if pending == 0 {
		if m.store.ResolveAlert(pendingAlertID, "Validation Complete", "No items awaiting validation approval") {
			m.logger.Info("alert resolved", "alert_id", pendingAlertID)
		}
	} else {
		alert := model.Alert{
			ID:          pendingAlertID,
			Type:        model.AlertWarning,
			Title:       "Validation Required",
			Description: fmt.Sprintf("%d %s awaiting validation approval", pending, plural(pending, "item", "items")),
			CreatedAt:   now,
		}
		if m.store.UpsertAlert(alert) {
			raised++
			m.observeAlert(alert.Type)
			m.logger.Info("alert raised", "alert_id", alert.ID, "pending", pending)
		}
	}

	if m.observer != nil {
		m.observer.ObserveSweep()
	}
	m.logger.Debug("monitor sweep complete", "raised", raised)
	return raised, nil
}

func (m *Monitor) observeAlert(typ model.AlertType) {
	if m.observer != nil {
		m.observer.ObserveAlert(typ)
	}
}

func deadlineAlertID(rfpID string) string {
	return "ALT-DEADLINE-" + rfpID
}

func deadlineResolution(r model.RFP, days int, now time.Time) string {
	switch {
	case r.CurrentStage == model.StageSubmitted:
		return r.ID + " has been submitted"
	case r.Deadline.Before(now):
		return r.ID + " deadline has passed"
	}
	return fmt.Sprintf("%s deadline in %s", r.ID, dayCount(days))
}

func dayCount(n int) string {
	return fmt.Sprintf("%d %s", n, plural(n, "day", "days"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
