package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
)

type notificationCreator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// StoreSink persists the message as an in-app notification row.
type StoreSink struct {
	repo notificationCreator
}

func NewStoreSink(repo notificationCreator) (*StoreSink, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	return &StoreSink{repo: repo}, nil
}

func (s *StoreSink) Notify(ctx context.Context, msg Message) error {
	row := &models.Notification{
		OwnerID:   msg.OwnerID,
		Type:      msg.Type,
		Title:     strings.TrimSpace(msg.Title),
		Message:   strings.TrimSpace(msg.Body),
		CreatedAt: time.Now().UTC(),
	}
	if link := strings.TrimSpace(msg.Link); link != "" {
		row.Link = &link
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}
