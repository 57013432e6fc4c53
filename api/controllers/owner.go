package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/repairdesk/repairdesk-backend/api/middleware"
	"github.com/repairdesk/repairdesk-backend/api/responses"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

// requireOwner writes 401 and reports false when the request carries no owner.
func requireOwner(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	ownerID := middleware.OwnerIDFromContext(r.Context())
	if ownerID == uuid.Nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner context missing"))
		return uuid.Nil, false
	}
	return ownerID, true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeInternal, "%s service unavailable", name))
}
