package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/repairdesk/repairdesk-backend/pkg/calendar"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
	"github.com/repairdesk/repairdesk-backend/pkg/pagination"
)

const (
	invoiceSeqWidth     = 4
	maxInvoiceAttempts  = 5
	invoiceUniqueConstr = "idx_customers_owner_invoice"
)

// StoreLookup resolves the owner's shop profile (invoice prefix).
type StoreLookup interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*models.StoreInfo, error)
}

// Service manages repair intake records.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Customer, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	ListAll(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, updates ...FieldUpdate) (*models.Customer, error)
	Search(ctx context.Context, ownerID uuid.UUID, query string) SearchResult
	SearchLocal(ctx context.Context, ownerID uuid.UUID, query string) SearchResult
}

// CreateInput is the intake form.
type CreateInput struct {
	InvoiceNumber string               `json:"invoice_number" validate:"max=32"`
	Name          string               `json:"name" validate:"required,max=120"`
	Phone         string               `json:"phone" validate:"required,max=32,phone"`
	AltPhone      string               `json:"alt_phone" validate:"max=32"`
	Address       string               `json:"address" validate:"max=500"`
	DeviceBrand   string               `json:"device_brand" validate:"max=80"`
	DeviceModel   string               `json:"device_model" validate:"max=80"`
	IMEI          string               `json:"imei" validate:"max=32"`
	Problem       string               `json:"problem" validate:"max=1000"`
	SecurityType  enums.SecurityType   `json:"security_type"`
	Password      string               `json:"password"`
	Pattern       string               `json:"pattern"`
	Accessories   models.Accessories   `json:"accessories"`
	Total         string               `json:"total"`
	Advance       string               `json:"advance"`
	Status        enums.CustomerStatus `json:"status"`
	DeliveryDate  string               `json:"delivery_date"`
	Date          string               `json:"date"`
}

// ListParams configures cursor pagination.
type ListParams struct {
	OwnerID uuid.UUID
	Limit   int
	Cursor  string
}

// ListResult is one page of customers, newest first.
type ListResult struct {
	Items  []models.Customer `json:"items"`
	Cursor string            `json:"cursor"`
}

// ServiceParams wires the customer service.
type ServiceParams struct {
	Repo     Repository
	Store    StoreLookup
	Calendar calendar.Calendar
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	store    StoreLookup
	cal      calendar.Calendar
	logg     *logger.Logger
	searcher *Searcher
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "customer repository required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "store info lookup required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		store:    params.Store,
		cal:      params.Calendar,
		logg:     params.Logger,
		searcher: NewSearcher(params.Repo, params.Logger),
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Customer, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	customer, err := s.buildCustomer(ownerID, input)
	if err != nil {
		return nil, err
	}

	if customer.InvoiceNumber != "" {
		if err := s.repo.Create(ctx, customer); err != nil {
			if isInvoiceConflict(err) {
				return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "invoice number %s already used", customer.InvoiceNumber)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
		}
		return customer, nil
	}

	prefix, err := s.invoicePrefix(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.Count(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customers")
	}
	seq := count + 1
	for attempt := 0; attempt < maxInvoiceAttempts; attempt++ {
		invoice := FormatInvoice(prefix, seq)
		exists, err := s.repo.InvoiceExists(ctx, ownerID, invoice)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check invoice number")
		}
		if exists {
			seq++
			continue
		}
		customer.ID = uuid.Nil
		customer.InvoiceNumber = invoice
		err = s.repo.Create(ctx, customer)
		if err == nil {
			return customer, nil
		}
		if !isInvoiceConflict(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
		}
		seq++
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate an invoice number, retry")
}

func (s *service) buildCustomer(ownerID uuid.UUID, input CreateInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	if name == "" || phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and phone required")
	}
	securityType := input.SecurityType
	if securityType == "" {
		securityType = enums.SecurityTypeNone
	}
	password, pattern, err := normalizeSecurity(securityType, input.Password, input.Pattern)
	if err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = enums.CustomerStatusPending
	}
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", string(status))
	}
	date := strings.TrimSpace(input.Date)
	if date == "" {
		date = s.cal.Today(s.now())
	}
	return &models.Customer{
		OwnerID:       ownerID,
		InvoiceNumber: strings.ToUpper(strings.TrimSpace(input.InvoiceNumber)),
		Name:          name,
		Phone:         phone,
		AltPhone:      strings.TrimSpace(input.AltPhone),
		Address:       strings.TrimSpace(input.Address),
		DeviceBrand:   strings.TrimSpace(input.DeviceBrand),
		DeviceModel:   strings.TrimSpace(input.DeviceModel),
		IMEI:          strings.TrimSpace(input.IMEI),
		Problem:       strings.TrimSpace(input.Problem),
		SecurityType:  securityType,
		Password:      password,
		Pattern:       pattern,
		Accessories:   input.Accessories,
		Total:         strings.TrimSpace(input.Total),
		Advance:       strings.TrimSpace(input.Advance),
		Status:        status,
		DeliveryDate:  strings.TrimSpace(input.DeliveryDate),
		Date:          date,
	}, nil
}

// FormatInvoice renders prefix plus a zero-padded sequence, e.g. INV-0007.
func FormatInvoice(prefix string, seq int64) string {
	return fmt.Sprintf("%s%0*d", prefix, invoiceSeqWidth, seq)
}

func isInvoiceConflict(err error) bool {
	return pkgerrors.IsUniqueViolation(err, invoiceUniqueConstr) || errors.Is(err, gorm.ErrDuplicatedKey)
}

func (s *service) invoicePrefix(ctx context.Context, ownerID uuid.UUID) (string, error) {
	info, err := s.store.Get(ctx, ownerID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store info")
	}
	if info == nil || strings.TrimSpace(info.InvoicePrefix) == "" {
		return models.DefaultInvoicePrefix, nil
	}
	return info.InvoicePrefix, nil
}

func (s *service) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Customer, error) {
	if ownerID == uuid.Nil || id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id and customer id required")
	}
	customer, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return customer, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.OwnerID == uuid.Nil {
		return &ListResult{Items: []models.Customer{}}, nil
	}
	query := listParams{OwnerID: params.OwnerID, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// ListAll returns every customer of the owner; an unknown owner yields none.
func (s *service) ListAll(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error) {
	if ownerID == uuid.Nil {
		return []models.Customer{}, nil
	}
	rows, err := s.repo.ListAll(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	return rows, nil
}

func (s *service) Update(ctx context.Context, ownerID, id uuid.UUID, updates ...FieldUpdate) (*models.Customer, error) {
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	customer, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	columns := make([]string, 0, len(updates))
	for _, u := range updates {
		if err := u.apply(customer); err != nil {
			return nil, err
		}
		for _, col := range u.columns() {
			if _, ok := seen[col]; ok {
				continue
			}
			seen[col] = struct{}{}
			columns = append(columns, col)
		}
	}
	if err := s.repo.UpdateColumns(ctx, customer, columns); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
	}
	return customer, nil
}

func (s *service) Search(ctx context.Context, ownerID uuid.UUID, query string) SearchResult {
	return s.searcher.Search(ctx, ownerID, query)
}

// SearchLocal scans the owner's full customer list in memory.
func (s *service) SearchLocal(ctx context.Context, ownerID uuid.UUID, query string) SearchResult {
	if ownerID == uuid.Nil || strings.TrimSpace(query) == "" {
		return SearchResult{Items: []models.Customer{}}
	}
	rows, err := s.repo.ListAll(ctx, ownerID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(s.logg.WithOwnerID(ctx, ownerID.String()), "reason", err.Error()), "local customer search fetch failed")
		return SearchResult{Items: []models.Customer{}, Degraded: true}
	}
	prefix, err := s.invoicePrefix(ctx, ownerID)
	if err != nil {
		prefix = models.DefaultInvoicePrefix
	}
	return SearchResult{Items: FilterLocal(rows, query, prefix)}
}
