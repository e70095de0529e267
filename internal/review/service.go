// Package review implements the human validation workflow: items flagged by
// the agents wait in a queue until a reviewer approves or rejects them.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/rfpdesk/internal/fixture"
	"github.com/kalambet/rfpdesk/internal/model"
	"github.com/kalambet/rfpdesk/internal/notify"
	"github.com/kalambet/rfpdesk/internal/storage"
)

// ItemStore holds the current validation items. Implemented by fixture.Store.
type ItemStore interface {
	ValidationItems() []model.ValidationItem
	ValidationItem(id string) (model.ValidationItem, error)
	ApplyValidation(id string, fn func(model.ValidationItem) (model.ValidationItem, error)) (model.ValidationItem, error)
	AppendActivity(entry model.ActivityLog)
}

// DecisionLog is the durable audit trail. Implemented by storage.Store.
type DecisionLog interface {
	SaveDecision(d storage.ReviewDecision) error
	ListDecisions(limit, offset int) ([]storage.ReviewDecision, error)
	DecisionsForItem(itemID string) ([]storage.ReviewDecision, error)
}

type Notifier interface {
	Notify(ctx context.Context, m notify.Message) (storage.Notification, error)
}

// Observer is told about every completed decision.
type Observer interface {
	ObserveDecision(status model.ValidationStatus)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Deps are the collaborators of a Service. Items and Decisions are required.
type Deps struct {
	Items     ItemStore
	Decisions DecisionLog
	Notifier  Notifier
	Observer  Observer
	Clock     Clock
	Logger    *slog.Logger
}

type Service struct {
	items     ItemStore
	decisions DecisionLog
	notifier  Notifier
	observer  Observer
	clock     Clock
	logger    *slog.Logger
}

func NewService(deps Deps) *Service {
	s := &Service{
		items:     deps.Items,
		decisions: deps.Decisions,
		notifier:  deps.Notifier,
		observer:  deps.Observer,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Approve moves a pending item to approved.
func (s *Service) Approve(ctx context.Context, id, reviewer string) (model.ValidationItem, error) {
	return s.decide(ctx, id, model.ValidationApproved, "", reviewer)
}

// Reject moves a pending item to rejected. reason must not be blank.
func (s *Service) Reject(ctx context.Context, id, reason, reviewer string) (model.ValidationItem, error) {
	return s.decide(ctx, id, model.ValidationRejected, reason, reviewer)
}

func (s *Service) decide(ctx context.Context, id string, target model.ValidationStatus, reason, reviewer string) (model.ValidationItem, error) {
	if err := ctx.Err(); err != nil {
		return model.ValidationItem{}, err
	}
	reason = strings.TrimSpace(reason)
	reviewer = strings.TrimSpace(reviewer)
	decidedAt := s.clock.Now().UTC()

	var decision storage.ReviewDecision
	item, err := s.items.ApplyValidation(id, func(cur model.ValidationItem) (model.ValidationItem, error) {
		if !cur.Status.CanTransition(target) {
			return cur, &InvalidStateError{ID: cur.ID, Status: cur.Status, Target: target}
		}
		if target == model.ValidationRejected && reason == "" {
			return cur, &ValidationError{Field: "reason", Message: "a rejection reason is required"}
		}
		decision = storage.ReviewDecision{
			ID:        uuid.New().String(),
			ItemID:    cur.ID,
			RFPID:     cur.RFPID,
			Decision:  string(target),
			Reason:    reason,
			Reviewer:  reviewer,
			DecidedAt: decidedAt,
		}
		if err := s.decisions.SaveDecision(decision); err != nil {
			return cur, fmt.Errorf("recording decision for %s: %w", cur.ID, err)
		}
		return cur.WithStatus(target), nil
	})
	if errors.Is(err, fixture.ErrNotFound) {
		return model.ValidationItem{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return model.ValidationItem{}, err
	}

	actor := reviewer
	if actor == "" {
		actor = "Reviewer"
	}
	details := item.Description
	if reason != "" {
		details = reason
	}
	s.items.AppendActivity(model.ActivityLog{
		ID:        uuid.New().String(),
		RFPID:     item.RFPID,
		Action:    "Validation item " + string(target),
		Actor:     actor,
		Timestamp: decidedAt,
		Details:   details,
	})

	if s.observer != nil {
		s.observer.ObserveDecision(target)
	}
	s.logger.Info("validation decision", "item_id", item.ID, "rfp_id", item.RFPID, "decision", target, "decision_id", decision.ID)
	s.announce(ctx, item, target)

	return item, nil
}

func (s *Service) announce(ctx context.Context, item model.ValidationItem, target model.ValidationStatus) {
	if s.notifier == nil {
		return
	}
	msg := notify.Message{
		Title: "Item Approved",
		Body:  item.Description + " has been approved.",
	}
	if target == model.ValidationRejected {
		msg = notify.Message{
			Title:   "Item Rejected",
			Body:    item.Description + " has been rejected.",
			Variant: notify.VariantDestructive,
		}
	}
	if _, err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Warn("notification failed", "item_id", item.ID, "error", err)
	}
}

// Restore replays the recorded decisions onto the item store, so a restarted
// process shows the same queue it had before. Items without a recorded
// decision are left as they are. It returns the number of items restored.
func (s *Service) Restore(ctx context.Context) (int, error) {
	restored := 0
	for _, it := range s.items.ValidationItems() {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		hist, err := s.decisions.DecisionsForItem(it.ID)
		if err != nil {
			return restored, fmt.Errorf("loading decisions for %s: %w", it.ID, err)
		}
		if len(hist) == 0 {
			continue
		}
		last := model.ValidationStatus(hist[len(hist)-1].Decision)
		if last == it.Status {
			continue
		}
		if _, err := s.items.ApplyValidation(it.ID, func(cur model.ValidationItem) (model.ValidationItem, error) {
			return cur.WithStatus(last), nil
		}); err != nil {
			return restored, fmt.Errorf("restoring %s: %w", it.ID, err)
		}
		restored++
	}
	if restored > 0 {
		s.logger.Info("restored validation decisions", "items", restored)
	}
	return restored, nil
}

// Queue is the validation queue split by status.
type Queue struct {
	Pending  []model.ValidationItem `json:"pending"`
	Approved []model.ValidationItem `json:"approved"`
	Rejected []model.ValidationItem `json:"rejected"`
}

type Summary struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

func (q Queue) Summary() Summary {
	return Summary{Pending: len(q.Pending), Approved: len(q.Approved), Rejected: len(q.Rejected)}
}

// Partition splits items by status, keeping their order. Every list is
// non-nil.
func Partition(items []model.ValidationItem) Queue {
	q := Queue{
		Pending:  []model.ValidationItem{},
		Approved: []model.ValidationItem{},
		Rejected: []model.ValidationItem{},
	}
	for _, it := range items {
		switch it.Status {
		case model.ValidationPending:
			q.Pending = append(q.Pending, it)
		case model.ValidationApproved:
			q.Approved = append(q.Approved, it)
		case model.ValidationRejected:
			q.Rejected = append(q.Rejected, it)
		}
	}
	return q
}

// Queue returns the current partition of all validation items.
func (s *Service) Queue(ctx context.Context) (Queue, error) {
	if err := ctx.Err(); err != nil {
		return Queue{}, err
	}
	return Partition(s.items.ValidationItems()), nil
}

// History returns the decisions recorded for one item, oldest first.
func (s *Service) History(ctx context.Context, id string) ([]storage.ReviewDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.items.ValidationItem(id); err != nil {
		if errors.Is(err, fixture.ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, err
	}
	out, err := s.decisions.DecisionsForItem(id)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", id, err)
	}
	if out == nil {
		out = []storage.ReviewDecision{}
	}
	return out, nil
}

// Decisions pages through the audit trail, newest first.
func (s *Service) Decisions(ctx context.Context, limit, offset int) ([]storage.ReviewDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	out, err := s.decisions.ListDecisions(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	if out == nil {
		out = []storage.ReviewDecision{}
	}
	return out, nil
}
