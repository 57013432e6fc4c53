package storeinfo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

// DeliveryScheduler re-arms the owner's daily delivery check.
type DeliveryScheduler interface {
	ScheduleDailyDeliveryCheck(ctx context.Context, ownerID uuid.UUID, hour, minute int) error
}

// Service reads and writes the shop profile.
type Service interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*models.StoreInfo, error)
	Upsert(ctx context.Context, ownerID uuid.UUID, input UpsertInput) (*models.StoreInfo, error)
}

// UpsertInput carries the editable profile fields. Nil check-time fields keep
// the current (or default) schedule.
type UpsertInput struct {
	ShopName            string `json:"shop_name" validate:"required,max=120"`
	OwnerName           string `json:"owner_name" validate:"max=120"`
	Phone               string `json:"phone" validate:"max=32"`
	Email               string `json:"email" validate:"omitempty,email"`
	Address             string `json:"address" validate:"max=500"`
	LogoURL             string `json:"logo_url" validate:"omitempty,url"`
	InvoicePrefix       string `json:"invoice_prefix" validate:"max=16"`
	DeliveryCheckHour   *int   `json:"delivery_check_hour" validate:"omitempty,min=0,max=23"`
	DeliveryCheckMinute *int   `json:"delivery_check_minute" validate:"omitempty,min=0,max=59"`
}

// ServiceParams wires the store info service.
type ServiceParams struct {
	Repo          Repository
	Scheduler     DeliveryScheduler
	Logger        *logger.Logger
	DefaultHour   int
	DefaultMinute int
}

type service struct {
	repo          Repository
	scheduler     DeliveryScheduler
	logg          *logger.Logger
	defaultHour   int
	defaultMinute int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "store info repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:          params.Repo,
		scheduler:     params.Scheduler,
		logg:          params.Logger,
		defaultHour:   params.DefaultHour,
		defaultMinute: params.DefaultMinute,
	}, nil
}

func (s *service) defaults(ownerID uuid.UUID) *models.StoreInfo {
	return &models.StoreInfo{
		OwnerID:             ownerID,
		InvoicePrefix:       models.DefaultInvoicePrefix,
		DeliveryCheckHour:   s.defaultHour,
		DeliveryCheckMinute: s.defaultMinute,
	}
}

// Get returns the stored profile, or defaults when none exists.
func (s *service) Get(ctx context.Context, ownerID uuid.UUID) (*models.StoreInfo, error) {
	if ownerID == uuid.Nil {
		return s.defaults(ownerID), nil
	}
	info, err := s.repo.Get(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store info")
	}
	if info == nil {
		return s.defaults(ownerID), nil
	}
	if strings.TrimSpace(info.InvoicePrefix) == "" {
		info.InvoicePrefix = models.DefaultInvoicePrefix
	}
	return info, nil
}

func (s *service) Upsert(ctx context.Context, ownerID uuid.UUID, input UpsertInput) (*models.StoreInfo, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	current, err := s.repo.Get(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store info")
	}
	existed := current != nil
	if current == nil {
		current = s.defaults(ownerID)
	}

	next := *current
	next.ShopName = strings.TrimSpace(input.ShopName)
	next.OwnerName = strings.TrimSpace(input.OwnerName)
	next.Phone = strings.TrimSpace(input.Phone)
	next.Email = strings.TrimSpace(input.Email)
	next.Address = strings.TrimSpace(input.Address)
	next.LogoURL = strings.TrimSpace(input.LogoURL)
	next.InvoicePrefix = strings.ToUpper(strings.TrimSpace(input.InvoicePrefix))
	if next.InvoicePrefix == "" {
		next.InvoicePrefix = models.DefaultInvoicePrefix
	}
	if input.DeliveryCheckHour != nil {
		next.DeliveryCheckHour = *input.DeliveryCheckHour
	}
	if input.DeliveryCheckMinute != nil {
		next.DeliveryCheckMinute = *input.DeliveryCheckMinute
	}
	if next.DeliveryCheckHour < 0 || next.DeliveryCheckHour > 23 || next.DeliveryCheckMinute < 0 || next.DeliveryCheckMinute > 59 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery check time out of range")
	}

	next.UpdatedAt = time.Now().UTC()
	if err := s.repo.Upsert(ctx, &next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save store info")
	}

	timeChanged := next.DeliveryCheckHour != current.DeliveryCheckHour || next.DeliveryCheckMinute != current.DeliveryCheckMinute
	if s.scheduler != nil && (!existed || timeChanged) {
		if err := s.scheduler.ScheduleDailyDeliveryCheck(ctx, ownerID, next.DeliveryCheckHour, next.DeliveryCheckMinute); err != nil {
			// The profile is saved; the worker's periodic delivery sweep arms a
			// check for owners with none pending.
			s.logg.Error(s.logg.WithOwnerID(ctx, ownerID.String()), "failed to re-arm delivery check", err)
		}
	}
	return &next, nil
}
