package controllers

import (
	"net/http"

	"github.com/repairdesk/repairdesk-backend/api/responses"
	"github.com/repairdesk/repairdesk-backend/api/validators"
	"github.com/repairdesk/repairdesk-backend/internal/ledger"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

// CreateLedgerEntry records a Talikhata entry and arms its reminder.
func CreateLedgerEntry(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "ledger")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		var payload ledger.EntryInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Create(r.Context(), ownerID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// UpdateLedgerEntry replaces an entry and reschedules its reminder.
func UpdateLedgerEntry(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "ledger")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ledger.EntryInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Update(r.Context(), ownerID, id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

func DeleteLedgerEntry(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "ledger")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), ownerID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func GetLedgerEntry(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "ledger")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Get(r.Context(), ownerID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// ListLedgerEntries returns entries by due date with the payable and
// receivable totals. payable=true|false narrows the list.
func ListLedgerEntries(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "ledger")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		payable, err := validators.ParseQueryBool(r, "payable")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.List(r.Context(), ownerID, payable)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		totals, err := svc.Totals(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "totals": totals})
	}
}
