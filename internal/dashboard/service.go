// Package dashboard computes the home screen summary for one shop.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/repairdesk/repairdesk-backend/internal/ledger"
	"github.com/repairdesk/repairdesk-backend/internal/transactions"
	"github.com/repairdesk/repairdesk-backend/pkg/calendar"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

type customerSource interface {
	ListAll(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error)
}

type lowStockCounter interface {
	CountLowStock(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type ledgerTotals interface {
	Totals(ctx context.Context, ownerID uuid.UUID) (ledger.Totals, error)
}

type transactionTotals interface {
	Totals(ctx context.Context, ownerID uuid.UUID, since time.Time) (map[enums.TransactionType]transactions.Totals, error)
}

// Summary is the dashboard payload.
type Summary struct {
	Today          string                                        `json:"today"`
	Tomorrow       string                                        `json:"tomorrow"`
	TotalCustomers int                                           `json:"total_customers"`
	TodayIntake    int                                           `json:"today_intake"`
	Pending        int                                           `json:"pending"`
	DueToday       []models.Customer                             `json:"due_today"`
	DueTomorrow    []models.Customer                             `json:"due_tomorrow"`
	LowStock       int64                                         `json:"low_stock"`
	Ledger         ledger.Totals                                 `json:"ledger"`
	TodaySales     map[enums.TransactionType]transactions.Totals `json:"today_transactions"`
	// Degraded lists the secondary figures that could not be loaded.
	Degraded []string `json:"degraded,omitempty"`
}

type ServiceParams struct {
	Customers    customerSource
	Products     lowStockCounter
	Ledger       ledgerTotals
	Transactions transactionTotals
	Calendar     calendar.Calendar
	Logger       *logger.Logger
	Now          func() time.Time
}

type Service struct {
	customers    customerSource
	products     lowStockCounter
	ledger       ledgerTotals
	transactions transactionTotals
	cal          calendar.Calendar
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Customers == nil {
		return nil, fmt.Errorf("customer source required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		customers:    params.Customers,
		products:     params.Products,
		ledger:       params.Ledger,
		transactions: params.Transactions,
		cal:          params.Calendar,
		logg:         params.Logger,
		now:          now,
	}, nil
}

// Summarize does one full customer fetch and filters in memory. Failure of
// that fetch fails the call; the secondary figures degrade individually.
func (s *Service) Summarize(ctx context.Context, ownerID uuid.UUID) (*Summary, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	now := s.now()
	summary := &Summary{
		Today:       s.cal.Today(now),
		Tomorrow:    s.cal.Tomorrow(now),
		DueToday:    []models.Customer{},
		DueTomorrow: []models.Customer{},
		Ledger:      ledger.Totals{},
		TodaySales:  map[enums.TransactionType]transactions.Totals{},
	}

	var (
		customers []models.Customer
		lowStock  int64
		ledgerSum ledger.Totals
		sales     map[enums.TransactionType]transactions.Totals
		degraded  [3]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.customers.ListAll(gctx, ownerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
		}
		customers = rows
		return nil
	})
	if s.products != nil {
		g.Go(func() error {
			n, err := s.products.CountLowStock(gctx, ownerID)
			if err != nil {
				degraded[0] = true
				s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "low stock count unavailable")
				return nil
			}
			lowStock = n
			return nil
		})
	}
	if s.ledger != nil {
		g.Go(func() error {
			totals, err := s.ledger.Totals(gctx, ownerID)
			if err != nil {
				degraded[1] = true
				s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "ledger totals unavailable")
				return nil
			}
			ledgerSum = totals
			return nil
		})
	}
	if s.transactions != nil {
		g.Go(func() error {
			totals, err := s.transactions.Totals(gctx, ownerID, s.startOfDay(now))
			if err != nil {
				degraded[2] = true
				s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "transaction totals unavailable")
				return nil
			}
			sales = totals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	Tally(summary, customers)
	summary.LowStock = lowStock
	summary.Ledger = ledgerSum
	if sales != nil {
		summary.TodaySales = sales
	}
	for i, name := range []string{"low_stock", "ledger", "today_transactions"} {
		if degraded[i] {
			summary.Degraded = append(summary.Degraded, name)
		}
	}
	return summary, nil
}

// Tally fills the customer counts and delivery buckets from rows, matching
// dates against summary.Today and summary.Tomorrow.
func Tally(summary *Summary, rows []models.Customer) {
	summary.TotalCustomers = len(rows)
	for _, c := range rows {
		if strings.TrimSpace(c.Date) == summary.Today {
			summary.TodayIntake++
		}
		if c.Status == enums.CustomerStatusPending {
			summary.Pending++
		}
		switch strings.TrimSpace(c.DeliveryDate) {
		case summary.Today:
			summary.DueToday = append(summary.DueToday, c)
		case summary.Tomorrow:
			summary.DueTomorrow = append(summary.DueTomorrow, c)
		}
	}
}

func (s *Service) startOfDay(now time.Time) time.Time {
	local := now.In(s.cal.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cal.Location()).UTC()
}
