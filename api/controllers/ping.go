package controllers

import (
	"net/http"

	"github.com/repairdesk/repairdesk-backend/api/middleware"
	"github.com/repairdesk/repairdesk-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"scope":    "private",
			"status":   "ok",
			"owner_id": middleware.OwnerIDFromContext(r.Context()).String(),
		})
	}
}
