package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/core/events"
	"github.com/frahmantamala/asset-management/pkg/logger"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit stream commands",
}

var tailGroup string

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print audit entries as they are streamed to Kafka",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !cfg.AuditStream.Enabled {
			return errors.New("audit_stream is disabled in config")
		}
		lg := logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reader := audit.NewKafkaReader(cfg.AuditStream.Brokers, cfg.AuditStream.Topic, tailGroup)
		defer reader.Close()

		lg.Info("tailing audit stream", "topic", cfg.AuditStream.Topic, "group", tailGroup)
		return audit.Tail(ctx, reader, lg, func(e *events.AuditRecordedEvent) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d\t%s\n",
				e.OccurredAt().Format("2006-01-02 15:04:05"), e.ActorID, e.Entity, e.Action, e.Message)
			return err
		})
	},
}

func init() {
	auditTailCmd.Flags().StringVar(&tailGroup, "group", "", "consumer group; empty reads without committing offsets")

	auditCmd.AddCommand(auditTailCmd)
	rootCmd.AddCommand(auditCmd)
}
