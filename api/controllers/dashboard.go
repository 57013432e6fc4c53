package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/repairdesk/repairdesk-backend/api/responses"
	"github.com/repairdesk/repairdesk-backend/internal/dashboard"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

// DashboardSummarizer builds the home-screen summary.
type DashboardSummarizer interface {
	Summarize(ctx context.Context, ownerID uuid.UUID) (*dashboard.Summary, error)
}

// DashboardSummary returns the home-screen counts and delivery buckets.
func DashboardSummary(svc DashboardSummarizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "dashboard")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		summary, err := svc.Summarize(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
