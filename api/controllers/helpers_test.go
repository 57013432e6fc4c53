package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repairdesk-backend/api/middleware"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

// call runs h against a request for owner (uuid.Nil means anonymous) with the
// given chi path params.
func call(h http.HandlerFunc, method, target string, owner uuid.UUID, params map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	ctx := req.Context()
	if owner != uuid.Nil {
		ctx = middleware.WithOwnerID(ctx, owner)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	resp := httptest.NewRecorder()
	h(resp, req.WithContext(ctx))
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, into any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: into}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
}

// addRouteParam attaches a chi path param to req.
func addRouteParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
