package customers

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

const (
	minQueryLength     = 2
	namePhoneLimit     = 15
	invoiceExactLimit  = 5
	invoicePrefixLimit = 10
)

// SearchResult carries merged matches. Degraded is set when at least one
// lookup failed and its branch contributed nothing.
type SearchResult struct {
	Items    []models.Customer `json:"items"`
	Degraded bool              `json:"degraded"`
}

// Searcher runs the three-branch indexed search.
type Searcher struct {
	lookup Lookup
	logg   *logger.Logger
}

func NewSearcher(lookup Lookup, logg *logger.Logger) *Searcher {
	return &Searcher{lookup: lookup, logg: logg}
}

// Search looks up customers by name prefix, phone prefix and invoice number
// concurrently, then merges them in that order, drops repeated ids and sorts
// by name. Queries shorter than two characters return nothing.
func (s *Searcher) Search(ctx context.Context, ownerID uuid.UUID, query string) SearchResult {
	query = strings.TrimSpace(query)
	if ownerID == uuid.Nil || utf8.RuneCountInString(query) < minQueryLength {
		return SearchResult{Items: []models.Customer{}}
	}

	var (
		byName, byPhone, byInvoice []models.Customer
		failed                     [3]bool
	)
	// Branch errors are absorbed so every branch runs to completion.
	var g errgroup.Group
	g.Go(func() error {
		byName, failed[0] = s.guard(ctx, "name", func() ([]models.Customer, error) {
			return s.lookup.NamePrefix(ctx, ownerID, query, namePhoneLimit)
		})
		return nil
	})
	g.Go(func() error {
		byPhone, failed[1] = s.guard(ctx, "phone", func() ([]models.Customer, error) {
			return s.lookup.PhonePrefix(ctx, ownerID, query, namePhoneLimit)
		})
		return nil
	})
	g.Go(func() error {
		byInvoice, failed[2] = s.guard(ctx, "invoice", func() ([]models.Customer, error) {
			return s.invoiceLookup(ctx, ownerID, query)
		})
		return nil
	})
	_ = g.Wait()

	merged := mergeByID(byName, byPhone, byInvoice)
	sortByName(merged)
	return SearchResult{
		Items:    merged,
		Degraded: failed[0] || failed[1] || failed[2],
	}
}

// invoiceLookup tries an exact upper-cased match and only falls back to a
// prefix range when nothing matched exactly.
func (s *Searcher) invoiceLookup(ctx context.Context, ownerID uuid.UUID, query string) ([]models.Customer, error) {
	normalized := strings.ToUpper(query)
	exact, err := s.lookup.InvoiceExact(ctx, ownerID, normalized, invoiceExactLimit)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return exact, nil
	}
	return s.lookup.InvoicePrefix(ctx, ownerID, normalized, invoicePrefixLimit)
}

func (s *Searcher) guard(ctx context.Context, branch string, fn func() ([]models.Customer, error)) ([]models.Customer, bool) {
	rows, err := fn()
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"branch": branch, "reason": err.Error()}), "customer search lookup failed")
		}
		return nil, true
	}
	return rows, false
}

// mergeByID concatenates groups in order; the first occurrence of an id wins.
func mergeByID(groups ...[]models.Customer) []models.Customer {
	seen := make(map[uuid.UUID]struct{})
	out := make([]models.Customer, 0)
	for _, group := range groups {
		for _, c := range group {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func sortByName(rows []models.Customer) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Name < rows[j].Name
	})
}
