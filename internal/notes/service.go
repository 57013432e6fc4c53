// Package notes is the shop's pinned-card notebook.
package notes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	dbtypes "github.com/repairdesk/repairdesk-backend/pkg/db/types"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
)

const maxTags = 20

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input NoteInput) (*models.Note, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, input NoteInput) (*models.Note, error)
	SetPinned(ctx context.Context, ownerID, id uuid.UUID, pinned bool) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Note, error)
	List(ctx context.Context, ownerID uuid.UUID, tag string) ([]models.Note, error)
}

type NoteInput struct {
	Title  string          `json:"title" validate:"required,max=200"`
	Body   string          `json:"body" validate:"max=10000"`
	Pinned bool            `json:"pinned"`
	Color  enums.NoteColor `json:"color"`
	Tags   []string        `json:"tags" validate:"max=20,dive,max=40"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notes repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input NoteInput) (*models.Note, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	now := s.now().UTC()
	note := &models.Note{OwnerID: ownerID, CreatedAt: now}
	if err := apply(note, input, now); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create note")
	}
	return note, nil
}

func (s *service) Update(ctx context.Context, ownerID, id uuid.UUID, input NoteInput) (*models.Note, error) {
	note, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(note, input, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, note); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update note")
	}
	return note, nil
}

func (s *service) SetPinned(ctx context.Context, ownerID, id uuid.UUID, pinned bool) error {
	ok, err := s.repo.SetPinned(ctx, ownerID, id, pinned, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pin note")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "note not found")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	ok, err := s.repo.Delete(ctx, ownerID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete note")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "note not found")
	}
	return nil
}

func (s *service) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Note, error) {
	note, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load note")
	}
	if note == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "note not found")
	}
	return note, nil
}

// List returns the owner's notes, optionally only those carrying tag.
func (s *service) List(ctx context.Context, ownerID uuid.UUID, tag string) ([]models.Note, error) {
	if ownerID == uuid.Nil {
		return []models.Note{}, nil
	}
	all, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notes")
	}
	if strings.TrimSpace(tag) == "" {
		return all, nil
	}
	out := make([]models.Note, 0, len(all))
	for _, n := range all {
		if n.Tags.Contains(tag) {
			out = append(out, n)
		}
	}
	return out, nil
}

func apply(note *models.Note, input NoteInput, now time.Time) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	color := input.Color
	if color == "" {
		color = enums.NoteColorDefault
	}
	if !color.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid note color %q", string(color))
	}
	tags := normalizeTags(input.Tags)
	if len(tags) > maxTags {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d tags", maxTags)
	}
	note.Title = title
	note.Body = input.Body
	note.Pinned = input.Pinned
	note.Color = color
	note.Tags = tags
	note.UpdatedAt = now
	return nil
}

// normalizeTags trims, lower-cases and dedups tags, keeping first-seen order.
func normalizeTags(raw []string) dbtypes.StringArray {
	out := dbtypes.StringArray{}
	seen := map[string]struct{}{}
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
