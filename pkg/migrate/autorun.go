package migrate

import (
	"context"
	"fmt"

	"github.com/repairdesk/repairdesk-backend/pkg/config"
	"github.com/repairdesk/repairdesk-backend/pkg/db"
	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

// MaybeRunDev brings a local schema up to date at boot. The SQL files are
// written for Postgres, so sqlite is built from the models instead. Postgres
// only migrates itself in dev with the auto-migrate flag on.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	flags := cfg.FeatureFlags
	switch {
	case flags.UseSQLite:
		logg.Info(logg.WithField(ctx, "path", flags.SQLitePath), "building sqlite schema from models")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
		return nil
	case !cfg.App.IsDev() || !flags.AutoMigrate:
		return nil
	}

	handle, err := client.SQLDB()
	if err != nil {
		return err
	}
	m, err := NewMigrator(handle, client.Dialect())
	if err != nil {
		return err
	}
	applied, err := m.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "dev migrations complete")
	return nil
}
