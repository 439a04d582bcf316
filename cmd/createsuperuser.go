package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/frahmantamala/asset-management/internal/auth"
	authPostgres "github.com/frahmantamala/asset-management/internal/auth/postgres"
	"github.com/frahmantamala/asset-management/internal/seed"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"github.com/frahmantamala/asset-management/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	superuserEmail    string
	superuserPassword string
	superuserName     string
)

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create an active staff superuser",
	Long:  `Create the first administrator. Email and password fall back to SUPERUSER_EMAIL and SUPERUSER_PASSWORD.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		lg := logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		email := firstNonEmpty(superuserEmail, os.Getenv("SUPERUSER_EMAIL"))
		password := firstNonEmpty(superuserPassword, os.Getenv("SUPERUSER_PASSWORD"))
		if email == "" || password == "" {
			return errors.New("email and password are required")
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}

		authService := auth.NewService(authPostgres.NewAuthRepository(db), auth.Options{
			BcryptCost:  cfg.Security.BCryptCost,
			ResetSecret: cfg.Security.ResetTokenSecret,
			ResetTTL:    cfg.Security.ResetTokenTTL,
		}, clock.Real(), lg)
		hash, err := authService.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		u, err := seed.New(db, lg).Superuser(ctx, email, superuserName, hash)
		if err != nil {
			return err
		}
		fmt.Printf("superuser %s created (%s)\n", u.Email, u.ID)
		return nil
	},
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	createSuperuserCmd.Flags().StringVar(&superuserEmail, "email", "", "superuser email")
	createSuperuserCmd.Flags().StringVar(&superuserPassword, "password", "", "superuser password")
	createSuperuserCmd.Flags().StringVar(&superuserName, "name", "Administrator", "display name")
}
