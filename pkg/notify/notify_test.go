package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/repairdesk/repairdesk-backend/pkg/config"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

func testMessage() Message {
	return Message{
		OwnerID:        uuid.New(),
		Type:           enums.NotificationTypeLedgerReminder,
		Title:          "Payment reminder",
		Body:           "Tomorrow you will pay 500 to Rahim",
		Link:           "/ledger/1",
		RecipientPhone: "01711000111",
	}
}

type recordingRepo struct {
	rows []*models.Notification
	err  error
}

func (r *recordingRepo) Create(_ context.Context, n *models.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, n)
	return nil
}

func TestStoreSinkPersistsNotification(t *testing.T) {
	repo := &recordingRepo{}
	sink, err := NewStoreSink(repo)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	msg := testMessage()
	if err := sink.Notify(context.Background(), msg); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(repo.rows))
	}
	row := repo.rows[0]
	if row.OwnerID != msg.OwnerID || row.Message != msg.Body || row.Link == nil || *row.Link != "/ledger/1" {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestFanoutPrimaryFailureIsReturned(t *testing.T) {
	secondaryCalls := 0
	f, err := NewFanout(logger.Nop(),
		NotifierFunc(func(context.Context, Message) error { return errors.New("db down") }),
		NotifierFunc(func(context.Context, Message) error { secondaryCalls++; return nil }),
	)
	if err != nil {
		t.Fatalf("new fanout: %v", err)
	}
	if err := f.Notify(context.Background(), testMessage()); err == nil {
		t.Fatal("expected primary error")
	}
	if secondaryCalls != 0 {
		t.Fatal("secondaries must not run when the primary fails")
	}
}

func TestFanoutSecondaryFailuresAreSwallowed(t *testing.T) {
	calls := 0
	failing := NotifierFunc(func(context.Context, Message) error { calls++; return errors.New("offline") })
	f, err := NewFanout(logger.Nop(),
		NotifierFunc(func(context.Context, Message) error { return nil }),
		failing, nil, failing,
	)
	if err != nil {
		t.Fatalf("new fanout: %v", err)
	}
	if err := f.Notify(context.Background(), testMessage()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both secondaries attempted, got %d", calls)
	}
}

func TestFanoutRejectsInvalidMessage(t *testing.T) {
	f, _ := NewFanout(logger.Nop(), NotifierFunc(func(context.Context, Message) error { return nil }))
	msg := testMessage()
	msg.Body = " "
	if err := f.Notify(context.Background(), msg); err == nil {
		t.Fatal("expected validation error")
	}
}

type stubPublisher struct {
	msgs []*gcppubsub.Message
	err  error
}

type stubResult struct{ err error }

func (r stubResult) Get(context.Context) (string, error) { return "msg-1", r.err }

func (p *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.msgs = append(p.msgs, msg)
	return stubResult{err: p.err}
}

func TestPubSubSinkPublishesPayload(t *testing.T) {
	pub := &stubPublisher{}
	sink := newPubSubSink(pub)
	sink.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	msg := testMessage()
	if err := sink.Notify(context.Background(), msg); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.msgs))
	}
	sent := pub.msgs[0]
	if sent.Attributes["owner_id"] != msg.OwnerID.String() {
		t.Fatalf("missing owner attribute: %v", sent.Attributes)
	}
	var payload PushPayload
	if err := json.Unmarshal(sent.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Title != msg.Title || payload.SentAt != "2026-03-14T09:00:00Z" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	pub.err = errors.New("unavailable")
	if err := sink.Notify(context.Background(), msg); err == nil {
		t.Fatal("expected publish error")
	}
}

type stubTwilio struct {
	params []*twilioApi.CreateMessageParams
}

func (s *stubTwilio) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	s.params = append(s.params, p)
	return &twilioApi.ApiV2010Message{}, nil
}

func TestSMSSinkSendsToNormalizedNumber(t *testing.T) {
	api := &stubTwilio{}
	sink := newSMSSink(api, "+15005550006", "+880")

	if err := sink.Notify(context.Background(), testMessage()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(api.params) != 1 {
		t.Fatalf("expected one sms, got %d", len(api.params))
	}
	if got := *api.params[0].To; got != "+8801711000111" {
		t.Fatalf("unexpected recipient %q", got)
	}
	if got := *api.params[0].From; got != "+15005550006" {
		t.Fatalf("unexpected sender %q", got)
	}
}

func TestSMSSinkSkipsMissingPhone(t *testing.T) {
	api := &stubTwilio{}
	sink := newSMSSink(api, "+15005550006", "+880")
	msg := testMessage()
	msg.RecipientPhone = ""
	if err := sink.Notify(context.Background(), msg); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(api.params) != 0 {
		t.Fatal("expected no sms without a phone number")
	}
}

func TestSMSNormalize(t *testing.T) {
	sink := newSMSSink(&stubTwilio{}, "", "+880")
	cases := map[string]string{
		"017-1100-0111":  "+8801711000111",
		"+8801711000111": "+8801711000111",
		"8801711000111":  "+8801711000111",
		"  ":             "",
	}
	for in, want := range cases {
		if got := sink.normalize(in); got != want {
			t.Fatalf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewFromConfigStoreOnly(t *testing.T) {
	repo := &recordingRepo{}
	fanout, err := NewFromConfig(logger.Nop(), repo, nil, config.TwilioConfig{})
	if err != nil {
		t.Fatalf("build notifier: %v", err)
	}
	if len(fanout.secondaries) != 0 {
		t.Fatalf("expected no secondaries, got %d", len(fanout.secondaries))
	}
	if err := fanout.Notify(context.Background(), testMessage()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected one stored row, got %d", len(repo.rows))
	}
}

func TestNewFromConfigAttachesSMS(t *testing.T) {
	fanout, err := NewFromConfig(logger.Nop(), &recordingRepo{}, nil, config.TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+15005550006",
	})
	if err != nil {
		t.Fatalf("build notifier: %v", err)
	}
	if len(fanout.secondaries) != 1 {
		t.Fatalf("expected sms secondary, got %d", len(fanout.secondaries))
	}
	if _, ok := fanout.secondaries[0].(*SMSSink); !ok {
		t.Fatalf("expected *SMSSink, got %T", fanout.secondaries[0])
	}
}
