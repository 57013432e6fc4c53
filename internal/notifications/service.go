// Package notifications serves the in-app inbox that reminder and stock
// alerts are written to.
package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
	"github.com/repairdesk/repairdesk-backend/pkg/pagination"
)

type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, ownerID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, ownerID uuid.UUID) (int64, error)
	Dismiss(ctx context.Context, ownerID, notificationID uuid.UUID) error
}

type ListParams struct {
	OwnerID    uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
	// Type narrows the page to one kind; empty means all.
	Type enums.NotificationType
}

// ListResult carries the owner's unread total alongside the page so the
// app can badge the inbox without a second call.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
	Unread int64                 `json:"unread"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

var errOwnerRequired = pkgerrors.New(pkgerrors.CodeValidation, "owner id required")

func checkIDs(ownerID, notificationID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return errOwnerRequired
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	return nil
}

func (s *service) List(ctx context.Context, p ListParams) (*ListResult, error) {
	if p.OwnerID == uuid.Nil {
		return nil, errOwnerRequired
	}
	if p.Type != "" && !p.Type.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown notification type %q", p.Type)
	}
	cursor, err := pagination.ParseCursor(p.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, listQuery{
		OwnerID:    p.OwnerID,
		Limit:      p.Limit,
		Cursor:     cursor,
		UnreadOnly: p.UnreadOnly,
		Type:       p.Type,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, p.OwnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	out := &ListResult{Items: rows, Unread: unread}
	if out.Items == nil {
		out.Items = []models.Notification{}
	}
	if next != nil {
		out.Cursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

func (s *service) MarkRead(ctx context.Context, ownerID, notificationID uuid.UUID) error {
	if err := checkIDs(ownerID, notificationID); err != nil {
		return err
	}
	found, err := s.repo.MarkRead(ctx, ownerID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	if ownerID == uuid.Nil {
		return 0, errOwnerRequired
	}
	n, err := s.repo.MarkAllRead(ctx, ownerID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return n, nil
}

// Dismiss removes one notification from the owner's inbox.
func (s *service) Dismiss(ctx context.Context, ownerID, notificationID uuid.UUID) error {
	if err := checkIDs(ownerID, notificationID); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, ownerID, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dismiss notification")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}
