package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	"github.com/angelmondragon/geonmarket-backend/pkg/db"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
)

// Models lists every table the service owns, parents first.
func Models() []any {
	return []any{
		&models.User{},
		&models.Profile{},
		&models.UserAccount{},
		&models.Listing{},
		&models.ListingImage{},
		&models.Order{},
		&models.Payment{},
		&models.TokenTransaction{},
	}
}

// MaybeRunDev brings the schema up to date at startup when running in dev
// with auto-migrate enabled. SQLite is built from the models because the SQL
// migrations are written for Postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": client.Driver()})

	if client.Driver() == db.DriverSQLite {
		if err := AutoMigrateModels(ctx, client); err != nil {
			return err
		}
		logg.Info(ctx, "schema created from models")
		return nil
	}

	pool, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	if err := Run(ctx, pool, "", "up"); err != nil {
		return err
	}
	logg.Info(ctx, "embedded migrations applied")
	return nil
}

// AutoMigrateModels creates or widens the tables in Models.
func AutoMigrateModels(ctx context.Context, client *db.Client) error {
	if err := client.DB().WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate models: %w", err)
	}
	return nil
}
