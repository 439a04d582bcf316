package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/frahmantamala/asset-management/internal/session"
	sessionPostgres "github.com/frahmantamala/asset-management/internal/session/postgres"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"github.com/frahmantamala/asset-management/pkg/logger"
	"github.com/spf13/cobra"
)

// The server purges expired sessions hourly. This runs the same purge once,
// for deployments that schedule it externally.
var clearSessionsCmd = &cobra.Command{
	Use:   "clearsessions",
	Short: "Delete expired sessions",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		lg := logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		db, err := initDB(cfg.Database)
		if err != nil {
			lg.Error("failed to init db", "error", err)
			os.Exit(1)
		}
		sessions := session.NewManager(sessionPostgres.NewSessionRepository(db), session.Options{
			CookieName: cfg.Security.SessionCookie,
			TTL:        cfg.Security.SessionTTL,
			Secure:     cfg.Security.SecureCookies,
		}, clock.Real(), lg)

		n, err := sessions.Cleanup(context.Background())
		if err != nil {
			lg.Error("failed to clear sessions", "error", err)
			os.Exit(1)
		}
		lg.Info("expired sessions cleared", "deleted", n)
	},
}

func init() {
	rootCmd.AddCommand(clearSessionsCmd)
}
