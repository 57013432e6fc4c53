package controllers

import (
	"net/http"
	"strings"

	"github.com/repairdesk/repairdesk-backend/api/responses"
	"github.com/repairdesk/repairdesk-backend/api/validators"
	"github.com/repairdesk/repairdesk-backend/internal/notes"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

func CreateNote(svc notes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notes")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		var payload notes.NoteInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		note, err := svc.Create(r.Context(), ownerID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, note)
	}
}

func UpdateNote(svc notes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notes")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "noteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload notes.NoteInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		note, err := svc.Update(r.Context(), ownerID, id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, note)
	}
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

// PinNote pins or unpins a note.
func PinNote(svc notes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notes")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "noteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload pinRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetPinned(r.Context(), ownerID, id, payload.Pinned); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"pinned": payload.Pinned})
	}
}

func DeleteNote(svc notes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notes")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "noteId")
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

func GetNote(svc notes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notes")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "noteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		note, err := svc.Get(r.Context(), ownerID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, note)
	}
}

// ListNotes returns pinned notes first, then most recently edited.
func ListNotes(svc notes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notes")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		items, err := svc.List(r.Context(), ownerID, strings.TrimSpace(r.URL.Query().Get("tag")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
