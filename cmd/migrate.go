package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/frahmantamala/asset-management/db"
	"github.com/frahmantamala/asset-management/internal/core/datamodel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the embedded db/migrations files, or AutoMigrate on mysql and sqlite",
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "", "sql migrations directory on disk; empty uses the embedded files")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	// The SQL files target postgres. The other drivers follow the models.
	if cfg.Database.Driver != "postgres" {
		if migrateRollback {
			return fmt.Errorf("rollback is only supported on postgres")
		}
		gdb, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to open DB: %v", err)
		}
		if err := gdb.AutoMigrate(datamodel.All()...); err != nil {
			log.Fatalf("auto migrate: %v", err)
		}
		log.Printf("auto migrate on %s done", cfg.Database.Driver)
		return nil
	}

	sqlDB, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		log.Fatalf("goose: failed to open DB: %v\n", err)
	}
	defer sqlDB.Close()
	goose.SetTableName("schema_migrations")

	dir := migrateDir
	if dir == "" {
		goose.SetBaseFS(db.Migrations)
		dir = db.MigrationsDir
	}

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, sqlDB, dir); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}

	return nil
}
