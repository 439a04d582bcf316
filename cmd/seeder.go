package cmd

import (
	"context"
	"log"
	"os"

	"github.com/frahmantamala/asset-management/internal/seed"
	"github.com/frahmantamala/asset-management/internal/site"
	sitePostgres "github.com/frahmantamala/asset-management/internal/site/postgres"
	"github.com/frahmantamala/asset-management/pkg/logger"
	"github.com/spf13/cobra"
)

var fixturesPath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed permissions, the default site and starter catalog rows",
	Long:  `Install the permission catalog, create the default site and load the fixture file. Running it twice changes nothing.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		lg := logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		seeder := seed.New(db, lg)
		if _, err := seeder.Permissions(ctx); err != nil {
			log.Fatalf("%v", err)
		}

		sites := site.NewService(sitePostgres.NewSiteRepository(db), site.Defaults{
			Domain:   cfg.Site.Domain,
			Name:     cfg.Site.Name,
			Timezone: cfg.Site.Timezone,
		}, nil, nil, lg)
		if _, err := sites.DefaultSite(ctx); err != nil {
			log.Fatalf("failed to create default site: %v", err)
		}

		if fixturesPath == "" {
			lg.Info("Seed: done")
			return
		}
		f, err := os.Open(fixturesPath)
		if err != nil {
			log.Fatalf("failed to open fixtures: %v", err)
		}
		defer f.Close()
		fixtures, err := seed.Load(f)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if err := seeder.Fixtures(ctx, fixtures); err != nil {
			log.Fatalf("%v", err)
		}
		lg.Info("Seed: done", "fixtures", fixturesPath)
	},
}

func init() {
	seedCmd.Flags().StringVarP(&fixturesPath, "fixtures", "f", "fixtures/catalog.yml", "YAML fixture file; empty skips catalog rows")
}
