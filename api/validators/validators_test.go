package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
)

type noteBody struct {
	Title string `json:"title" validate:"required,max=8"`
	Color string `json:"color" validate:"omitempty,oneof=red blue"`
}

func TestDecodeJSONBodyValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"","color":"pink"}`))
	var body noteBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
	}
	if details["title"] != "is required" {
		t.Fatalf("unexpected title detail %q", details["title"])
	}
	if details["color"] != "must be one of [red blue]" {
		t.Fatalf("unexpected color detail %q", details["color"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"a","extra":1}`))
	var body noteBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 20, 1, 100); err == nil {
		t.Fatal("expected out of range error")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	v, err := ParseQueryInt(req, "limit", 20, 1, 100)
	if err != nil || v != 20 {
		t.Fatalf("expected default 20, got %d %v", v, err)
	}
}

func TestParseQueryBool(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?payable=true", nil)
	v, err := ParseQueryBool(req, "payable")
	if err != nil || v == nil || !*v {
		t.Fatalf("expected true, got %v %v", v, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if v, err := ParseQueryBool(req, "payable"); err != nil || v != nil {
		t.Fatalf("expected nil, got %v %v", v, err)
	}
}

func TestPathUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	if _, err := PathUUID(req, "id"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
}

type contactBody struct {
	Phone string `json:"phone" validate:"required,phone"`
}

func TestDecodeJSONBodyPhone(t *testing.T) {
	for raw, ok := range map[string]bool{
		"+880 1711-000111": true,
		"(02) 955 1234":    true,
		"0171":             false,
		"call me":          false,
		"01711+000":        false,
	} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"`+raw+`"}`))
		var body contactBody
		err := DecodeJSONBody(req, &body)
		if ok && err != nil {
			t.Fatalf("%q rejected: %v", raw, err)
		}
		if !ok && !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%q accepted", raw)
		}
	}
}

func TestDecodeJSONBodyEmptyAndTrailing(t *testing.T) {
	for _, raw := range []string{"", `{"phone":"01711000111"} {}`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		var body contactBody
		if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%q: expected validation error got %v", raw, err)
		}
	}
}

func TestTrimQuery(t *testing.T) {
	if got := TrimQuery("  করিম ভাই  ", 4); got != "করিম" {
		t.Fatalf("unexpected %q", got)
	}
	if got := TrimQuery(" kar ", 0); got != "kar" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestParseQueryTime(t *testing.T) {
	def := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	req := httptest.NewRequest(http.MethodGet, "/?since=2026-04-01T06:00:00%2B06:00", nil)
	v, err := ParseQueryTime(req, "since", def)
	if err != nil || !v.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected %s %v", v, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/?since=yesterday", nil)
	if _, err := ParseQueryTime(req, "since", def); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if v, err := ParseQueryTime(req, "since", def); err != nil || !v.Equal(def) {
		t.Fatalf("expected default, got %s %v", v, err)
	}
}
