package customers

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
)

var folder = cases.Fold()

func fold(s string) string {
	return folder.String(s)
}

// FilterLocal matches rows whose name, phone or invoice number contains the
// query, ignoring case. An all-digit query also matches invoices whose
// number, with invoicePrefix removed, has the same numeric value
// ("7" matches "INV-0007").
func FilterLocal(rows []models.Customer, query, invoicePrefix string) []models.Customer {
	query = strings.TrimSpace(query)
	out := make([]models.Customer, 0)
	if query == "" {
		return out
	}
	q := fold(query)
	digits := isDigits(query)
	prefix := fold(invoicePrefix)

	for _, c := range rows {
		invoice := fold(c.InvoiceNumber)
		if strings.Contains(fold(c.Name), q) ||
			strings.Contains(fold(c.Phone), q) ||
			strings.Contains(invoice, q) {
			out = append(out, c)
			continue
		}
		if digits && prefix != "" && strings.HasPrefix(invoice, prefix) {
			number := strings.TrimPrefix(invoice, prefix)
			if trimZeros(number) == trimZeros(query) {
				out = append(out, c)
			}
		}
	}
	sortByName(out)
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func trimZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" && s != "" {
		return "0"
	}
	return t
}
