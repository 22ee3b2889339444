package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	"github.com/angelmondragon/geonmarket-backend/pkg/db"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	"github.com/angelmondragon/geonmarket-backend/pkg/migrate"
)

func sqliteClient(t *testing.T) *db.Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	return db.NewFromGorm(conn)
}

func TestMaybeRunDevBuildsSQLiteSchema(t *testing.T) {
	client := sqliteClient(t)
	cfg := &config.Config{}
	cfg.App.Env = config.AppEnvDev
	cfg.FeatureFlags.AutoMigrate = true

	require.NoError(t, migrate.MaybeRunDev(context.Background(), cfg, nil, client))
	for _, model := range migrate.Models() {
		require.True(t, client.DB().Migrator().HasTable(model), "missing table for %T", model)
	}
}

func TestMaybeRunDevSkipsOutsideDev(t *testing.T) {
	client := sqliteClient(t)
	for _, cfg := range []*config.Config{
		{App: config.AppConfig{Env: "prod"}, FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true}},
		{App: config.AppConfig{Env: config.AppEnvDev}},
	} {
		require.NoError(t, migrate.MaybeRunDev(context.Background(), cfg, nil, client))
	}
	require.False(t, client.DB().Migrator().HasTable(&models.Listing{}))
}
