package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repairdesk-backend/internal/ledger"
	"github.com/repairdesk/repairdesk-backend/internal/notes"
	"github.com/repairdesk/repairdesk-backend/internal/reminders"
	"github.com/repairdesk/repairdesk-backend/pkg/auth"
	"github.com/repairdesk/repairdesk-backend/pkg/calendar"
	"github.com/repairdesk/repairdesk-backend/pkg/config"
	"github.com/repairdesk/repairdesk-backend/pkg/db/dbtest"
	"github.com/repairdesk/repairdesk-backend/pkg/jobs"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	handler http.Handler
	cfg     *config.Config
	queue   *jobs.MemoryQueue
}

func newTestEnv(t *testing.T, opts ...func(*config.Config)) testEnv {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "repairdesk", ExpirationMinutes: 60},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	now := func() time.Time { return fixedNow }

	db := dbtest.Open(t)
	queue := jobs.NewMemoryQueue()
	scheduler, err := reminders.NewScheduler(reminders.SchedulerParams{
		Queue:    queue,
		Calendar: calendar.New(time.UTC, ""),
		Logger:   logg,
		Now:      now,
	})
	require.NoError(t, err)

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		Repo:      ledger.NewRepository(db),
		Reminders: scheduler,
		Logger:    logg,
		Now:       now,
	})
	require.NoError(t, err)

	notesSvc, err := notes.NewService(notes.NewRepository(db), now)
	require.NoError(t, err)

	handler := NewRouter(RouterParams{
		Config: cfg,
		Logger: logg,
		Ledger: ledgerSvc,
		Notes:  notesSvc,
		Now:    now,
	})
	return testEnv{handler: handler, cfg: cfg, queue: queue}
}

func (e testEnv) token(t *testing.T, owner uuid.UUID) string {
	t.Helper()
	// minted against the wall clock so the parser accepts it
	token, err := auth.MintAccessToken(e.cfg.JWT, time.Now(), auth.AccessTokenPayload{OwnerID: owner})
	require.NoError(t, err)
	return token
}

func (e testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func TestPublicRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", rec.Header().Get("X-RepairDesk-Env"))

	rec = env.do(t, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/public/ping", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/ping", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	owner := uuid.New()
	rec = env.do(t, http.MethodGet, "/api/v1/ping", env.token(t, owner), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeData(t, rec, &body)
	require.Equal(t, owner.String(), body["owner_id"])
}

func TestUnwiredServiceReturnsError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/dashboard", env.token(t, uuid.New()), "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLedgerCreateArmsReminder(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, uuid.New())

	due := fixedNow.Add(72 * time.Hour).Format(time.RFC3339)
	rec := env.do(t, http.MethodPost, "/api/v1/ledger", token,
		`{"name":"Rahim","phone":"01700000000","amount":"1500","due_date":"`+due+`","payable":false}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var entry struct {
		ID uuid.UUID `json:"id"`
	}
	decodeData(t, rec, &entry)
	require.NotEqual(t, uuid.Nil, entry.ID)

	job, err := env.queue.Get(context.Background(), reminders.LedgerKey(entry.ID))
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, reminders.KindLedgerReminder, job.Kind)
	require.True(t, job.RunAt.Equal(fixedNow.Add(48*time.Hour)))

	rec = env.do(t, http.MethodDelete, "/api/v1/ledger/"+entry.ID.String(), token, "")
	require.Less(t, rec.Code, 300, rec.Body.String())

	job, err = env.queue.Get(context.Background(), reminders.LedgerKey(entry.ID))
	require.NoError(t, err)
	require.Nil(t, job)
}

type noteList struct {
	Items []map[string]any `json:"items"`
}

func TestNotesAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, uuid.New())
	other := env.token(t, uuid.New())

	rec := env.do(t, http.MethodPost, "/api/v1/notes", owner, `{"title":"Order screens","tags":["supplier"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/notes", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mine noteList
	decodeData(t, rec, &mine)
	require.Len(t, mine.Items, 1)

	rec = env.do(t, http.MethodGet, "/api/v1/notes", other, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var theirs noteList
	decodeData(t, rec, &theirs)
	require.Empty(t, theirs.Items)
}

func TestInvalidJSONIsRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/notes", env.token(t, uuid.New()), `{"title":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicRoutesAreRateLimitedWithoutRedis(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{Window: time.Minute, IPLimit: 1, OwnerLimit: 1}
	})

	rec := env.do(t, http.MethodGet, "/api/public/ping", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/public/ping", "", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
