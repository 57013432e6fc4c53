package customers

import (
	"strings"

	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
)

// FieldUpdate is one edit to a customer record. Each update names the
// columns it writes.
type FieldUpdate interface {
	apply(c *models.Customer) error
	columns() []string
}

type SetName string

func (v SetName) apply(c *models.Customer) error {
	name := strings.TrimSpace(string(v))
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	c.Name = name
	return nil
}
func (SetName) columns() []string { return []string{"name"} }

type SetPhone string

func (v SetPhone) apply(c *models.Customer) error {
	phone := strings.TrimSpace(string(v))
	if phone == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone required")
	}
	c.Phone = phone
	return nil
}
func (SetPhone) columns() []string { return []string{"phone"} }

type SetAltPhone string

func (v SetAltPhone) apply(c *models.Customer) error {
	c.AltPhone = strings.TrimSpace(string(v))
	return nil
}
func (SetAltPhone) columns() []string { return []string{"alt_phone"} }

type SetAddress string

func (v SetAddress) apply(c *models.Customer) error {
	c.Address = strings.TrimSpace(string(v))
	return nil
}
func (SetAddress) columns() []string { return []string{"address"} }

type SetProblem string

func (v SetProblem) apply(c *models.Customer) error {
	c.Problem = strings.TrimSpace(string(v))
	return nil
}
func (SetProblem) columns() []string { return []string{"problem"} }

type SetDeliveryDate string

func (v SetDeliveryDate) apply(c *models.Customer) error {
	c.DeliveryDate = strings.TrimSpace(string(v))
	return nil
}
func (SetDeliveryDate) columns() []string { return []string{"delivery_date"} }

// SetDevice replaces brand, model and IMEI together.
type SetDevice struct {
	Brand string
	Model string
	IMEI  string
}

func (v SetDevice) apply(c *models.Customer) error {
	c.DeviceBrand = strings.TrimSpace(v.Brand)
	c.DeviceModel = strings.TrimSpace(v.Model)
	c.IMEI = strings.TrimSpace(v.IMEI)
	return nil
}
func (SetDevice) columns() []string { return []string{"device_brand", "device_model", "imei"} }

// SetSecurity switches the lock credential. Only the credential matching
// Type is kept; the other one is cleared.
type SetSecurity struct {
	Type     enums.SecurityType
	Password string
	Pattern  string
}

func (v SetSecurity) apply(c *models.Customer) error {
	password, pattern, err := normalizeSecurity(v.Type, v.Password, v.Pattern)
	if err != nil {
		return err
	}
	c.SecurityType = v.Type
	c.Password = password
	c.Pattern = pattern
	return nil
}
func (SetSecurity) columns() []string { return []string{"security_type", "password", "pattern"} }

type SetAccessories models.Accessories

func (v SetAccessories) apply(c *models.Customer) error {
	c.Accessories = models.Accessories(v)
	return nil
}
func (SetAccessories) columns() []string {
	return []string{"acc_battery", "acc_sim", "acc_memory_card", "acc_back_cover", "acc_charger", "acc_sim_tray"}
}

// SetAmounts sets the display strings for total and advance.
type SetAmounts struct {
	Total   string
	Advance string
}

func (v SetAmounts) apply(c *models.Customer) error {
	c.Total = strings.TrimSpace(v.Total)
	c.Advance = strings.TrimSpace(v.Advance)
	return nil
}
func (SetAmounts) columns() []string { return []string{"total", "advance"} }

type SetStatus enums.CustomerStatus

func (v SetStatus) apply(c *models.Customer) error {
	status := enums.CustomerStatus(v)
	if !status.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", string(v))
	}
	c.Status = status
	return nil
}
func (SetStatus) columns() []string { return []string{"status"} }

func normalizeSecurity(kind enums.SecurityType, password, pattern string) (string, string, error) {
	password = strings.TrimSpace(password)
	pattern = strings.TrimSpace(pattern)
	switch kind {
	case enums.SecurityTypeNone:
		return "", "", nil
	case enums.SecurityTypePassword:
		if password == "" {
			return "", "", pkgerrors.New(pkgerrors.CodeValidation, "password required for password security")
		}
		return password, "", nil
	case enums.SecurityTypePattern:
		if pattern == "" {
			return "", "", pkgerrors.New(pkgerrors.CodeValidation, "pattern required for pattern security")
		}
		return "", pattern, nil
	default:
		return "", "", pkgerrors.Newf(pkgerrors.CodeValidation, "invalid security type %q", string(kind))
	}
}
