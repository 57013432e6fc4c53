package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
)

func queryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func badQuery(key, msg string, err error, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, key+" "+msg).WithDetails(details)
}

// ParseQueryInt returns def when key is absent, otherwise an int within
// [min, max].
func ParseQueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := queryParam(r, key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badQuery(key, "must be numeric", err, nil)
	}
	if v < min || v > max {
		return 0, badQuery(key, "out of range", nil, map[string]any{"min": min, "max": max})
	}
	return v, nil
}

// ParseQueryBool returns nil when key is absent.
func ParseQueryBool(r *http.Request, key string) (*bool, error) {
	raw := queryParam(r, key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, badQuery(key, "must be a boolean", err, nil)
	}
	return &v, nil
}

// ParseQueryTime reads an RFC 3339 instant, returning def when key is absent.
func ParseQueryTime(r *http.Request, key string, def time.Time) (time.Time, error) {
	raw := queryParam(r, key)
	if raw == "" {
		return def, nil
	}
	v, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, badQuery(key, "must be RFC 3339", err, nil)
	}
	return v, nil
}
