package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairdesk/repairdesk-backend/pkg/db/dbtest"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestServiceListPagesWithUnreadCount(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"a", "b", "c"} {
		seed(t, repo, owner, base.Add(time.Duration(i)*time.Minute), title)
	}

	first, err := svc.List(ctx, ListParams{OwnerID: owner, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.EqualValues(t, 3, first.Unread)
	assert.NotEmpty(t, first.Cursor)

	second, err := svc.List(ctx, ListParams{OwnerID: owner, Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "a", second.Items[0].Title)
	assert.Empty(t, second.Cursor)

	empty, err := svc.List(ctx, ListParams{OwnerID: uuid.New()})
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func TestServiceListFiltersByType(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	seed(t, repo, owner, time.Now(), "system")

	out, err := svc.List(ctx, ListParams{OwnerID: owner, Type: enums.NotificationTypeLowStock})
	require.NoError(t, err)
	assert.Empty(t, out.Items)

	out, err = svc.List(ctx, ListParams{OwnerID: owner, Type: enums.NotificationTypeSystem})
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)

	_, err = svc.List(ctx, ListParams{OwnerID: owner, Type: "sms"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceListRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.List(context.Background(), ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.List(context.Background(), ListParams{OwnerID: uuid.New(), Cursor: "bad"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceReadAndDismiss(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	n := seed(t, repo, owner, time.Now(), "due")
	seed(t, repo, owner, time.Now(), "other")

	require.NoError(t, svc.MarkRead(ctx, owner, n.ID))
	require.NoError(t, svc.MarkRead(ctx, owner, n.ID), "reading twice is fine")
	err := svc.MarkRead(ctx, uuid.New(), n.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	updated, err := svc.MarkAllRead(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)

	require.NoError(t, svc.Dismiss(ctx, owner, n.ID))
	err = svc.Dismiss(ctx, owner, n.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	err = svc.Dismiss(ctx, owner, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
