// Package notify delivers user-facing notifications: it logs each one and
// keeps it in the notification feed served by the API.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/rfpdesk/internal/storage"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Message is a short title/body pair shown to the user.
type Message struct {
	Title   string
	Body    string
	Variant Variant
}

// Sink persists notifications. Implemented by storage.Store.
type Sink interface {
	SaveNotification(n storage.Notification) error
}

// Notifier writes messages to the log and to a Sink.
type Notifier struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Notifier. A nil sink only logs.
func New(sink Sink, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sink: sink, logger: logger, now: time.Now}
}

// Notify records m. It returns the stored notification.
func (n *Notifier) Notify(ctx context.Context, m Message) (storage.Notification, error) {
	if err := ctx.Err(); err != nil {
		return storage.Notification{}, err
	}
	if m.Variant == "" {
		m.Variant = VariantDefault
	}

	rec := storage.Notification{
		ID:        uuid.New().String(),
		Title:     m.Title,
		Message:   m.Body,
		Variant:   string(m.Variant),
		CreatedAt: n.now().UTC(),
	}

	level := slog.LevelInfo
	if m.Variant == VariantDestructive {
		level = slog.LevelWarn
	}
	n.logger.Log(ctx, level, "notification", "title", m.Title, "message", m.Body)

	if n.sink == nil {
		return rec, nil
	}
	if err := n.sink.SaveNotification(rec); err != nil {
		return rec, fmt.Errorf("saving notification: %w", err)
	}
	return rec, nil
}
