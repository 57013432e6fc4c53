// Package notify delivers reminder and system notifications to the shop
// owner through one or more sinks.
package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

// Message is a single notification addressed to an owner.
type Message struct {
	OwnerID uuid.UUID
	Type    enums.NotificationType
	Title   string
	Body    string
	Link    string
	// RecipientPhone is used by the SMS sink; empty skips SMS delivery.
	RecipientPhone string
}

func (m Message) validate() error {
	if m.OwnerID == uuid.Nil {
		return errors.New("notification owner id required")
	}
	if !m.Type.IsValid() {
		return errors.New("notification type invalid")
	}
	if strings.TrimSpace(m.Title) == "" || strings.TrimSpace(m.Body) == "" {
		return errors.New("notification title and body required")
	}
	return nil
}

// Notifier emits a message on one channel.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Fanout delivers to a primary sink and then to best-effort secondaries.
// A primary failure is returned so the caller can retry; secondary failures
// are combined and logged only.
type Fanout struct {
	primary     Notifier
	secondaries []Notifier
	logg        *logger.Logger
}

func NewFanout(logg *logger.Logger, primary Notifier, secondaries ...Notifier) (*Fanout, error) {
	if primary == nil {
		return nil, errors.New("primary notifier required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	filtered := make([]Notifier, 0, len(secondaries))
	for _, n := range secondaries {
		if n != nil {
			filtered = append(filtered, n)
		}
	}
	return &Fanout{primary: primary, secondaries: filtered, logg: logg}, nil
}

func (f *Fanout) Notify(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if err := f.primary.Notify(ctx, msg); err != nil {
		return err
	}

	var errs error
	for _, n := range f.secondaries {
		errs = multierr.Append(errs, n.Notify(ctx, msg))
	}
	if errs != nil {
		logCtx := f.logg.WithFields(ctx, map[string]any{
			"owner_id":          msg.OwnerID.String(),
			"notification_type": string(msg.Type),
			"failed_sinks":      len(multierr.Errors(errs)),
		})
		f.logg.Warn(logCtx, "secondary notification delivery failed: "+errs.Error())
	}
	return nil
}
