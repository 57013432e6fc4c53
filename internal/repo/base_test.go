package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/repairdesk/repairdesk-backend/pkg/db/dbtest"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
)

func TestNewBaseStoresConnection(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	if base.db != db || base.Raw() != db {
		t.Fatalf("expected base db to match provided connection")
	}
}

func TestBaseDB_BindsContext(t *testing.T) {
	base := NewBase(dbtest.Open(t))

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)

	if withCtx == nil || withCtx.Statement == nil {
		t.Fatalf("expected statement created after WithContext")
	}
	if withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}

	if base.DB(nil) != base.db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseOwnedScopesRows(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)
	mine, theirs := uuid.New(), uuid.New()

	for _, owner := range []uuid.UUID{mine, mine, theirs} {
		note := &models.Note{OwnerID: owner, Title: "n", Color: enums.NoteColorDefault}
		if err := db.Create(note).Error; err != nil {
			t.Fatalf("seed note: %v", err)
		}
	}

	var count int64
	if err := base.Owned(context.Background(), mine, &models.Note{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 owned notes, got %d", count)
	}
}
