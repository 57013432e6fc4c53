package reminders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repairdesk-backend/pkg/calendar"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	"github.com/repairdesk/repairdesk-backend/pkg/jobs"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
	"github.com/repairdesk/repairdesk-backend/pkg/notify"
)

var dhaka = time.FixedZone("BDT", 6*60*60)

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (r *recorder) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) all() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

type fakeCustomers struct {
	listFn func(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error)
}

func (f fakeCustomers) ListAll(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error) {
	return f.listFn(ctx, ownerID)
}

type fakeStores struct {
	infos []models.StoreInfo
}

func (f fakeStores) Get(_ context.Context, ownerID uuid.UUID) (*models.StoreInfo, error) {
	for _, info := range f.infos {
		if info.OwnerID == ownerID {
			out := info
			return &out, nil
		}
	}
	return nil, nil
}

func (f fakeStores) ListAll(context.Context) ([]models.StoreInfo, error) {
	return f.infos, nil
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type harness struct {
	queue      *jobs.MemoryQueue
	scheduler  *Scheduler
	dispatcher *jobs.Dispatcher
	notes      *recorder
	clock      *time.Time
	offline    *bool
}

func newHarness(t *testing.T, start time.Time, customers CustomerSource, stores StoreSource) harness {
	t.Helper()
	clock := start
	offline := false
	now := func() time.Time { return clock }
	q := jobs.NewMemoryQueue()
	notes := &recorder{}

	s, err := NewScheduler(SchedulerParams{
		Queue:     q,
		Customers: customers,
		Stores:    stores,
		Notifier:  notes,
		Pinger: pingerFunc(func(context.Context) error {
			if offline {
				return errors.New("no route to host")
			}
			return nil
		}),
		Calendar: calendar.New(dhaka, "02-01-2006"),
		Logger:   logger.Nop(),
		Now:      now,
	})
	require.NoError(t, err)

	d, err := jobs.NewDispatcher(jobs.DispatcherParams{
		Queue:       q,
		Logger:      logger.Nop(),
		MaxAttempts: 3,
		BaseBackoff: time.Minute,
		MaxBackoff:  time.Hour,
		Now:         now,
	})
	require.NoError(t, err)
	require.NoError(t, s.Register(d))

	return harness{queue: q, scheduler: s, dispatcher: d, notes: notes, clock: &clock, offline: &offline}
}

func (h harness) runAt(t *testing.T, at time.Time) int {
	t.Helper()
	*h.clock = at
	n, err := h.dispatcher.RunOnce(context.Background())
	require.NoError(t, err)
	return n
}

func noCustomers() CustomerSource {
	return fakeCustomers{listFn: func(context.Context, uuid.UUID) ([]models.Customer, error) { return nil, nil }}
}

func TestLedgerReminderEditReplacesPendingJob(t *testing.T) {
	start := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	owner := uuid.New()
	h := newHarness(t, start, noCustomers(), fakeStores{infos: []models.StoreInfo{{OwnerID: owner, Phone: "01711000111"}}})
	ctx := context.Background()

	entryID := uuid.New()
	due := time.Date(2026, 3, 20, 4, 0, 0, 0, time.UTC)
	fireAt := due.Add(-24 * time.Hour)
	payload := EntryPayload{OwnerID: owner, Name: "Rahim", Phone: "01800000000", Amount: decimal.NewFromInt(500), Payable: true, DueDate: due}
	require.NoError(t, h.scheduler.ScheduleEntryReminder(ctx, entryID, fireAt, payload))

	payload.Amount = decimal.NewFromInt(750)
	require.NoError(t, h.scheduler.ScheduleEntryReminder(ctx, entryID, fireAt, payload))
	assert.Equal(t, 1, h.queue.Len())

	assert.Equal(t, 0, h.runAt(t, fireAt.Add(-time.Minute)))
	assert.Equal(t, 1, h.runAt(t, fireAt))
	assert.Equal(t, 0, h.runAt(t, fireAt.Add(time.Hour)))

	msgs := h.notes.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, enums.NotificationTypeLedgerReminder, msgs[0].Type)
	assert.Contains(t, msgs[0].Body, "you will pay 750.00 to Rahim")
	assert.Contains(t, msgs[0].Body, "20-03-2026")
	assert.Equal(t, "01711000111", msgs[0].RecipientPhone)
	assert.Equal(t, 0, h.queue.Len())
}

func TestLedgerReminderMovedDueDateDoesNotFireAtOldTime(t *testing.T) {
	start := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	h := newHarness(t, start, noCustomers(), nil)
	ctx := context.Background()
	entryID := uuid.New()
	owner := uuid.New()

	first := start.Add(time.Hour)
	require.NoError(t, h.scheduler.ScheduleEntryReminder(ctx, entryID, first, EntryPayload{OwnerID: owner, Name: "Karim", Amount: decimal.NewFromInt(10)}))
	require.NoError(t, h.scheduler.ScheduleEntryReminder(ctx, entryID, first.Add(48*time.Hour), EntryPayload{OwnerID: owner, Name: "Karim", Amount: decimal.NewFromInt(10)}))

	assert.Equal(t, 0, h.runAt(t, first))
	assert.Empty(t, h.notes.all())
	assert.Equal(t, 1, h.runAt(t, first.Add(48*time.Hour)))
	msgs := h.notes.all()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, "you will receive 10.00 from Karim")
}

func TestCancelEntryReminder(t *testing.T) {
	start := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	h := newHarness(t, start, noCustomers(), nil)
	ctx := context.Background()
	entryID := uuid.New()

	require.NoError(t, h.scheduler.CancelEntryReminder(ctx, entryID), "cancel of an unscheduled entry is a no-op")
	require.NoError(t, h.scheduler.ScheduleEntryReminder(ctx, entryID, start, EntryPayload{OwnerID: uuid.New(), Name: "x", Amount: decimal.NewFromInt(1)}))
	require.NoError(t, h.scheduler.CancelEntryReminder(ctx, entryID))
	assert.Equal(t, 0, h.runAt(t, start.Add(time.Hour)))
	assert.Empty(t, h.notes.all())
}

func TestFireReminderRetriesWhileOffline(t *testing.T) {
	start := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	h := newHarness(t, start, noCustomers(), nil)
	ctx := context.Background()
	entryID := uuid.New()
	require.NoError(t, h.scheduler.ScheduleEntryReminder(ctx, entryID, start, EntryPayload{OwnerID: uuid.New(), Name: "x", Amount: decimal.NewFromInt(1)}))

	*h.offline = true
	assert.Equal(t, 1, h.runAt(t, start))
	pending, err := h.queue.Get(ctx, LedgerKey(entryID))
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, 1, pending.Attempt)
	assert.Empty(t, h.notes.all())

	*h.offline = false
	assert.Equal(t, 1, h.runAt(t, start.Add(time.Minute)))
	assert.Len(t, h.notes.all(), 1)
}

func deliveryCustomers(owner uuid.UUID) CustomerSource {
	return fakeCustomers{listFn: func(_ context.Context, ownerID uuid.UUID) ([]models.Customer, error) {
		if ownerID != owner {
			return nil, nil
		}
		return []models.Customer{
			{InvoiceNumber: "INV-0001", Name: "Karim", Phone: "01711", DeviceBrand: "Samsung", DeviceModel: "A52", DeliveryDate: "14-03-2026"},
			{InvoiceNumber: "INV-0002", Name: "Rahim", Phone: "01812", DeliveryDate: "15-03-2026"},
			{InvoiceNumber: "INV-0003", Name: "Salma", Phone: "01913", DeviceBrand: "Xiaomi", DeliveryDate: "14-03-2026"},
		}, nil
	}}
}

func TestDailyDeliveryCheckAggregatesAndReArms(t *testing.T) {
	owner := uuid.New()
	// 08:00 shop time
	start := time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC)
	h := newHarness(t, start, deliveryCustomers(owner), nil)
	ctx := context.Background()

	require.NoError(t, h.scheduler.ScheduleDailyDeliveryCheck(ctx, owner, 9, 0))
	pending, err := h.queue.Get(ctx, DeliveryKey(owner))
	require.NoError(t, err)
	require.NotNil(t, pending)
	firstRun := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	assert.True(t, pending.RunAt.Equal(firstRun), "got %s", pending.RunAt)

	require.NoError(t, h.scheduler.ScheduleDailyDeliveryCheck(ctx, owner, 9, 0))
	assert.Equal(t, 1, h.queue.Len(), "re-scheduling replaces instead of duplicating")

	assert.Equal(t, 1, h.runAt(t, firstRun))
	msgs := h.notes.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, enums.NotificationTypeDeliveryReminder, msgs[0].Type)
	assert.Equal(t, "2 deliveries due 14-03-2026", msgs[0].Title)
	assert.Equal(t, 2, strings.Count(msgs[0].Body, "\n")+1)
	assert.Contains(t, msgs[0].Body, "INV-0001 Karim (01711) Samsung A52")
	assert.Contains(t, msgs[0].Body, "INV-0003 Salma")

	pending, err = h.queue.Get(ctx, DeliveryKey(owner))
	require.NoError(t, err)
	require.NotNil(t, pending, "the next day's check must be armed")
	assert.True(t, pending.RunAt.Equal(firstRun.Add(24*time.Hour)), "got %s", pending.RunAt)
}

func TestDailyDeliveryCheckWithNothingDueStillReArms(t *testing.T) {
	owner := uuid.New()
	start := time.Date(2026, 3, 14, 4, 0, 0, 0, time.UTC)
	h := newHarness(t, start, noCustomers(), nil)
	ctx := context.Background()

	// 10:00 shop time is past 09:00, so the first run is tomorrow.
	require.NoError(t, h.scheduler.ScheduleDailyDeliveryCheck(ctx, owner, 9, 0))
	tomorrow := time.Date(2026, 3, 15, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, h.runAt(t, start.Add(time.Hour)))
	assert.Equal(t, 1, h.runAt(t, tomorrow))
	assert.Empty(t, h.notes.all())

	pending, err := h.queue.Get(ctx, DeliveryKey(owner))
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.True(t, pending.RunAt.Equal(tomorrow.Add(24*time.Hour)))
}

func TestDailyDeliveryCheckOfflineRetriesSameDay(t *testing.T) {
	owner := uuid.New()
	start := time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC)
	h := newHarness(t, start, deliveryCustomers(owner), nil)
	ctx := context.Background()
	require.NoError(t, h.scheduler.ScheduleDailyDeliveryCheck(ctx, owner, 9, 0))

	firstRun := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	*h.offline = true
	assert.Equal(t, 1, h.runAt(t, firstRun))
	assert.Empty(t, h.notes.all())

	pending, err := h.queue.Get(ctx, DeliveryKey(owner))
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.True(t, pending.RunAt.Equal(firstRun.Add(defaultOfflineRetry)), "got %s", pending.RunAt)
	var pinned DeliveryPayload
	require.NoError(t, pending.Decode(&pinned))
	assert.Equal(t, "14-03-2026", pinned.Day)

	*h.offline = false
	assert.Equal(t, 1, h.runAt(t, firstRun.Add(defaultOfflineRetry)))
	msgs := h.notes.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "2 deliveries due 14-03-2026", msgs[0].Title)

	pending, err = h.queue.Get(ctx, DeliveryKey(owner))
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.True(t, pending.RunAt.Equal(firstRun.Add(24*time.Hour)), "got %s", pending.RunAt)
	var rearmed DeliveryPayload
	require.NoError(t, pending.Decode(&rearmed))
	assert.Empty(t, rearmed.Day)
}

func flakyCustomers(owner uuid.UUID, failures *int) CustomerSource {
	inner := deliveryCustomers(owner).(fakeCustomers)
	return fakeCustomers{listFn: func(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error) {
		if *failures > 0 {
			*failures--
			return nil, errors.New("connection reset by peer")
		}
		return inner.listFn(ctx, ownerID)
	}}
}

func TestDailyDeliveryCheckRetriesSameDayAfterFailures(t *testing.T) {
	firstRun := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		setup func(h harness, failures *int)
	}{
		{name: "customer list fails", setup: func(_ harness, failures *int) { *failures = 1 }},
		{name: "notifier fails", setup: func(h harness, _ *int) { h.notes.err = errors.New("sink unavailable") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			owner := uuid.New()
			failures := 0
			h := newHarness(t, firstRun.Add(-time.Hour), flakyCustomers(owner, &failures), nil)
			ctx := context.Background()
			require.NoError(t, h.scheduler.ScheduleDailyDeliveryCheck(ctx, owner, 9, 0))

			tc.setup(h, &failures)
			assert.Equal(t, 1, h.runAt(t, firstRun))
			assert.Empty(t, h.notes.all())

			pending, err := h.queue.Get(ctx, DeliveryKey(owner))
			require.NoError(t, err)
			require.NotNil(t, pending)
			retryAt := firstRun.Add(defaultOfflineRetry)
			assert.True(t, pending.RunAt.Equal(retryAt), "got %s", pending.RunAt)
			var pinned DeliveryPayload
			require.NoError(t, pending.Decode(&pinned))
			assert.Equal(t, "14-03-2026", pinned.Day)

			h.notes.err = nil
			assert.Equal(t, 1, h.runAt(t, retryAt))
			msgs := h.notes.all()
			require.Len(t, msgs, 1)
			assert.Equal(t, "2 deliveries due 14-03-2026", msgs[0].Title)

			pending, err = h.queue.Get(ctx, DeliveryKey(owner))
			require.NoError(t, err)
			require.NotNil(t, pending)
			assert.True(t, pending.RunAt.Equal(firstRun.Add(24*time.Hour)), "got %s", pending.RunAt)
		})
	}
}

func TestArmAllSkipsOwnersWithPendingChecks(t *testing.T) {
	armed, pendingOwner := uuid.New(), uuid.New()
	start := time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC)
	stores := fakeStores{infos: []models.StoreInfo{
		{OwnerID: armed, DeliveryCheckHour: 20, DeliveryCheckMinute: 30},
		{OwnerID: pendingOwner, DeliveryCheckHour: 9},
	}}
	h := newHarness(t, start, noCustomers(), stores)
	ctx := context.Background()

	_, err := jobs.Submit(ctx, h.queue, start, KindDeliveryCheck, DeliveryKey(pendingOwner), start, DeliveryPayload{OwnerID: pendingOwner, Hour: 9})
	require.NoError(t, err)

	n, err := h.scheduler.ArmAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := h.queue.Get(ctx, DeliveryKey(armed))
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.True(t, job.RunAt.Equal(time.Date(2026, 3, 14, 14, 30, 0, 0, time.UTC)), "got %s", job.RunAt)

	job, err = h.queue.Get(ctx, DeliveryKey(pendingOwner))
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.True(t, job.RunAt.Equal(start), "an already due check keeps its time")
}

func TestRegisterRequiresNotifier(t *testing.T) {
	s, err := NewScheduler(SchedulerParams{Queue: jobs.NewMemoryQueue(), Calendar: calendar.New(dhaka, ""), Logger: logger.Nop()})
	require.NoError(t, err)
	d, err := jobs.NewDispatcher(jobs.DispatcherParams{Queue: jobs.NewMemoryQueue(), Logger: logger.Nop()})
	require.NoError(t, err)
	assert.Error(t, s.Register(d))
}

type markerCalls struct {
	mu      sync.Mutex
	cleared []uuid.UUID
}

func (m *markerCalls) SetReminderScheduled(_ context.Context, _, id uuid.UUID, scheduled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !scheduled {
		m.cleared = append(m.cleared, id)
	}
	return nil
}

func TestFireReminderClearsScheduledFlagUnlessSuperseded(t *testing.T) {
	start := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	h := newHarness(t, start, noCustomers(), nil)
	marker := &markerCalls{}
	h.scheduler.entries = marker
	ctx := context.Background()

	entryID := uuid.New()
	payload := EntryPayload{OwnerID: uuid.New(), Name: "Karim", Amount: decimal.NewFromInt(10)}
	require.NoError(t, h.scheduler.ScheduleEntryReminder(ctx, entryID, start, payload))
	stale, err := h.queue.Get(ctx, LedgerKey(entryID))
	require.NoError(t, err)
	require.NotNil(t, stale)

	// an edit queues a newer reminder while the old one is running
	require.NoError(t, h.scheduler.ScheduleEntryReminder(ctx, entryID, start.Add(time.Hour), payload))
	result, err := h.scheduler.FireReminder(ctx, *stale)
	require.NoError(t, err)
	assert.Equal(t, jobs.Success, result)
	assert.Empty(t, marker.cleared)

	assert.Equal(t, 1, h.runAt(t, start.Add(time.Hour)))
	assert.Equal(t, []uuid.UUID{entryID}, marker.cleared)
}
