package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
)

type memoryStore struct {
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("test:%s:%s", scope, id)
}

var required = IdempotencyPolicy{TTL: time.Hour, Required: true}

func post(owner uuid.UUID, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req.WithContext(WithOwnerID(req.Context(), owner))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func created(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"n":1}}`))
	})
}

func TestIdempotentRequiredKey(t *testing.T) {
	var calls int
	h := Idempotent(newMemoryStore(), nil, required)(created(&calls))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, post(uuid.New(), "", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, calls)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, post(uuid.New(), strings.Repeat("k", 129), `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotentOptionalKeyPassesThrough(t *testing.T) {
	var calls int
	h := Idempotent(newMemoryStore(), nil, IdempotencyPolicy{})(created(&calls))
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, post(uuid.New(), "", `{}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotentReplaysStoredResponse(t *testing.T) {
	var calls int
	h := Idempotent(newMemoryStore(), nil, required)(created(&calls))
	owner := uuid.New()

	first := httptest.NewRecorder()
	h.ServeHTTP(first, post(owner, "abc", `{"type":"sale"}`))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(ReplayedHeader))

	again := httptest.NewRecorder()
	h.ServeHTTP(again, post(owner, "abc", `{"type":"sale"}`))
	assert.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, "application/json", again.Header().Get("Content-Type"))
	assert.Equal(t, "true", again.Header().Get(ReplayedHeader))
	assert.Equal(t, `{"data":{"n":1}}`, again.Body.String())
	assert.Equal(t, 1, calls)

	// another owner with the same key is independent
	other := httptest.NewRecorder()
	h.ServeHTTP(other, post(uuid.New(), "abc", `{"type":"sale"}`))
	assert.Equal(t, http.StatusCreated, other.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotentRejectsChangedBody(t *testing.T) {
	var calls int
	h := Idempotent(newMemoryStore(), nil, required)(created(&calls))
	owner := uuid.New()

	h.ServeHTTP(httptest.NewRecorder(), post(owner, "xyz", `{"total":"10"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, post(owner, "xyz", `{"total":"20"}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, rec))
	assert.Equal(t, 1, calls)
}

func TestIdempotentRejectsConcurrentDuplicate(t *testing.T) {
	store := newMemoryStore()
	owner := uuid.New()
	var inner *httptest.ResponseRecorder
	var h http.Handler
	h = Idempotent(store, nil, required)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// a retry arriving while the original is still running
		inner = httptest.NewRecorder()
		h.ServeHTTP(inner, post(owner, "dup", `{}`))
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, post(owner, "dup", `{}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, inner)
	assert.Equal(t, http.StatusConflict, inner.Code)
}

func TestIdempotentReleasesKeyOnServerError(t *testing.T) {
	store := newMemoryStore()
	status := http.StatusServiceUnavailable
	var calls int
	h := Idempotent(store, nil, required)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))
	owner := uuid.New()

	h.ServeHTTP(httptest.NewRecorder(), post(owner, "k", `{}`))
	assert.Empty(t, store.data)

	status = http.StatusCreated
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, post(owner, "k", `{}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotentWithoutStoreIsNoop(t *testing.T) {
	var calls int
	h := Idempotent(nil, nil, required)(created(&calls))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, post(uuid.New(), "", `{}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
}
