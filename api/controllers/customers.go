package controllers

import (
	"net/http"
	"strings"

	"github.com/repairdesk/repairdesk-backend/api/responses"
	"github.com/repairdesk/repairdesk-backend/api/validators"
	"github.com/repairdesk/repairdesk-backend/internal/customers"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
	"github.com/repairdesk/repairdesk-backend/pkg/pagination"
)

// CreateCustomer records a repair intake.
func CreateCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "customers")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		var payload customers.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.Create(r.Context(), ownerID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

// GetCustomer returns a single intake record.
func GetCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "customers")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.Get(r.Context(), ownerID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// ListCustomers pages through intake records, newest first.
func ListCustomers(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "customers")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), customers.ListParams{
			OwnerID: ownerID,
			Limit:   limit,
			Cursor:  strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// SearchCustomers runs the indexed search, or the in-memory substring match
// when mode=local.
func SearchCustomers(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "customers")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		query := validators.TrimQuery(r.URL.Query().Get("q"), 120)
		var result customers.SearchResult
		switch mode := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mode"))); mode {
		case "", "indexed":
			result = svc.Search(r.Context(), ownerID, query)
		case "local":
			result = svc.SearchLocal(r.Context(), ownerID, query)
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown search mode %q", mode))
			return
		}
		if result.Items == nil {
			result.Items = []models.Customer{}
		}
		responses.WriteSuccess(w, result)
	}
}

type deviceRequest struct {
	Brand string `json:"brand" validate:"max=80"`
	Model string `json:"model" validate:"max=80"`
	IMEI  string `json:"imei" validate:"max=32"`
}

type securityRequest struct {
	Type     enums.SecurityType `json:"type" validate:"required"`
	Password string             `json:"password"`
	Pattern  string             `json:"pattern"`
}

type amountsRequest struct {
	Total   string `json:"total"`
	Advance string `json:"advance"`
}

// updateCustomerRequest lists the editable groups. Absent groups are left
// untouched.
type updateCustomerRequest struct {
	Name         *string               `json:"name" validate:"omitempty,max=120"`
	Phone        *string               `json:"phone" validate:"omitempty,max=32"`
	AltPhone     *string               `json:"alt_phone" validate:"omitempty,max=32"`
	Address      *string               `json:"address" validate:"omitempty,max=500"`
	Problem      *string               `json:"problem" validate:"omitempty,max=1000"`
	DeliveryDate *string               `json:"delivery_date"`
	Device       *deviceRequest        `json:"device"`
	Security     *securityRequest      `json:"security"`
	Accessories  *models.Accessories   `json:"accessories"`
	Amounts      *amountsRequest       `json:"amounts"`
	Status       *enums.CustomerStatus `json:"status"`
}

func (req updateCustomerRequest) toUpdates() []customers.FieldUpdate {
	var updates []customers.FieldUpdate
	if req.Name != nil {
		updates = append(updates, customers.SetName(*req.Name))
	}
	if req.Phone != nil {
		updates = append(updates, customers.SetPhone(*req.Phone))
	}
	if req.AltPhone != nil {
		updates = append(updates, customers.SetAltPhone(*req.AltPhone))
	}
	if req.Address != nil {
		updates = append(updates, customers.SetAddress(*req.Address))
	}
	if req.Problem != nil {
		updates = append(updates, customers.SetProblem(*req.Problem))
	}
	if req.DeliveryDate != nil {
		updates = append(updates, customers.SetDeliveryDate(*req.DeliveryDate))
	}
	if req.Device != nil {
		updates = append(updates, customers.SetDevice{Brand: req.Device.Brand, Model: req.Device.Model, IMEI: req.Device.IMEI})
	}
	if req.Security != nil {
		updates = append(updates, customers.SetSecurity{Type: req.Security.Type, Password: req.Security.Password, Pattern: req.Security.Pattern})
	}
	if req.Accessories != nil {
		updates = append(updates, customers.SetAccessories(*req.Accessories))
	}
	if req.Amounts != nil {
		updates = append(updates, customers.SetAmounts{Total: req.Amounts.Total, Advance: req.Amounts.Advance})
	}
	if req.Status != nil {
		updates = append(updates, customers.SetStatus(*req.Status))
	}
	return updates
}

// UpdateCustomer applies a partial edit to an intake record.
func UpdateCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "customers")
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Update(r.Context(), ownerID, id, payload.toUpdates()...)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}
