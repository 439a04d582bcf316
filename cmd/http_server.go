package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/asset"
	"github.com/frahmantamala/asset-management/internal/assetdash"
	"github.com/frahmantamala/asset-management/internal/audit"
	auditPostgres "github.com/frahmantamala/asset-management/internal/audit/postgres"
	"github.com/frahmantamala/asset-management/internal/auth"
	authPostgres "github.com/frahmantamala/asset-management/internal/auth/postgres"
	"github.com/frahmantamala/asset-management/internal/catalog"
	"github.com/frahmantamala/asset-management/internal/core/datamodel"
	assetDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/internal/core/events"
	"github.com/frahmantamala/asset-management/internal/crud"
	"github.com/frahmantamala/asset-management/internal/dashboard"
	dashboardPostgres "github.com/frahmantamala/asset-management/internal/dashboard/postgres"
	"github.com/frahmantamala/asset-management/internal/designation"
	"github.com/frahmantamala/asset-management/internal/group"
	"github.com/frahmantamala/asset-management/internal/mail"
	"github.com/frahmantamala/asset-management/internal/session"
	sessionPostgres "github.com/frahmantamala/asset-management/internal/session/postgres"
	"github.com/frahmantamala/asset-management/internal/site"
	sitePostgres "github.com/frahmantamala/asset-management/internal/site/postgres"
	"github.com/frahmantamala/asset-management/internal/storage"
	"github.com/frahmantamala/asset-management/internal/token"
	tokenPostgres "github.com/frahmantamala/asset-management/internal/token/postgres"
	"github.com/frahmantamala/asset-management/internal/transport"
	"github.com/frahmantamala/asset-management/internal/transport/rest"
	"github.com/frahmantamala/asset-management/internal/transport/swagger"
	"github.com/frahmantamala/asset-management/internal/transport/web"
	"github.com/frahmantamala/asset-management/internal/user"
	userPostgres "github.com/frahmantamala/asset-management/internal/user/postgres"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"github.com/frahmantamala/asset-management/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// sessionCleanupInterval is how often expired sessions are purged while the
// server runs.
const sessionCleanupInterval = time.Hour

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server serving the asset management site`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *gorm.DB
	SQL      *sql.DB
	Router   *chi.Mux
	Logger   *slog.Logger
	Sessions *session.Manager
	Bus      *events.EventBus
	Stream   *audit.Stream
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := deps.Logger

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	lg.Info("Starting HTTP server", "address", addr, "driver", deps.Config.Database.Driver)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go purgeSessions(cleanupCtx, deps.Sessions, lg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			lg.Error("Server shutdown error", "error", err)
		}
		stopCleanup()
		if err := deps.Bus.Drain(ctx); err != nil {
			lg.Warn("event bus drain timed out", "error", err)
		}
		if deps.Stream != nil {
			if err := deps.Stream.Close(); err != nil {
				lg.Error("audit stream close error", "error", err)
			}
		}
		if err := deps.SQL.Close(); err != nil {
			lg.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	lg.Info("Server stopped")
}

func purgeSessions(ctx context.Context, sessions *session.Manager, lg *slog.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Cleanup(ctx)
			if err != nil {
				lg.Error("purgeSessions: cleanup failed", "error", err)
				continue
			}
			lg.Debug("purgeSessions: expired sessions removed", "count", n)
		}
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)

	if _, err := swagger.Load(context.Background()); err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if config.Database.AutoMigrate {
		if err := db.AutoMigrate(datamodel.All()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	clk := clock.Real()
	bus := events.NewEventBus(lg)
	var stream *audit.Stream
	if config.AuditStream.Enabled {
		stream = audit.NewStream(audit.NewKafkaWriter(config.AuditStream.Brokers, config.AuditStream.Topic), lg)
		bus.Subscribe(events.EventTypeAuditRecorded, stream.Handle)
	}

	files, media, err := initStorage(config.Storage, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var mailer mail.Mailer = mail.NewLogMailer(lg)
	if config.Mail.Provider == "smtp" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     config.Mail.Host,
			Port:     config.Mail.Port,
			Username: config.Mail.Username,
			Password: config.Mail.Password,
			From:     config.Mail.From,
			FromName: config.Mail.FromName,
		}, lg)
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	base := transport.NewBaseHandler(lg, renderer)

	recorder := audit.NewRecorder(auditPostgres.NewLogRepository(db), bus, clk, lg)
	authRepo := authPostgres.NewAuthRepository(db)
	authService := auth.NewService(authRepo, auth.Options{
		BcryptCost:  config.Security.BCryptCost,
		ResetSecret: config.Security.ResetTokenSecret,
		ResetTTL:    config.Security.ResetTokenTTL,
	}, clk, lg)
	sessions := session.NewManager(sessionPostgres.NewSessionRepository(db), session.Options{
		CookieName: config.Security.SessionCookie,
		TTL:        config.Security.SessionTTL,
		Secure:     config.Security.SecureCookies,
	}, clk, lg)
	tokens := token.NewService(tokenPostgres.NewTokenRepository(db), token.Options{
		Attempts:  config.Security.TokenAttempts,
		InviteTTL: config.Security.InviteTokenTTL,
	}, clk, lg)

	sites := site.NewService(sitePostgres.NewSiteRepository(db), site.Defaults{
		Domain:   config.Site.Domain,
		Name:     config.Site.Name,
		Timezone: config.Site.Timezone,
	}, recorder, files, lg)

	groups := group.NewGroups(db, authRepo)
	designations := designation.NewDesignations(db)
	users := user.NewUsers(db, groups, designations, authRepo, authService, files)
	userService := user.NewService(db, userPostgres.NewUserRepository(), users, tokens, recorder, lg)

	categories := catalog.NewCategories(db)
	departments := catalog.NewDepartments(db)
	suppliers := catalog.NewSuppliers(db)
	statuses := catalog.NewStatuses(db)
	assets := asset.NewAssets(db, categories, departments, suppliers, statuses, files)
	requests := asset.NewRequests(db, assets, clk)
	issues := asset.NewIssues(db, assets, statuses)

	readDB := sqlx.NewDb(sqlDB, sqlxDriver(config.Database.Driver))
	dashboardService := dashboard.NewService(dashboardPostgres.NewDashboardRepository(readDB), clk, lg)
	portal := assetdash.NewService(db, requests, recorder, clk, lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Base:      base,
		Health:    rest.NewHealthHandler(sqlDB, config.Database.Driver),
		Sessions:  sessions,
		Principal: authService,
		Sites:     sites,
		Auth:      auth.NewHandler(base, authService, sessions, mailer, config.Server.BaseURL),
		Users:     user.NewHandler(base, userService, sessions, mailer, config.Server.BaseURL),
		Audit:     audit.NewHandler(base, recorder),
		Settings:  site.NewHandler(base, sites),
		Dashboard: dashboard.NewHandler(base, dashboardService),
		Portal:    assetdash.NewHandler(base, portal),
		Entities: []rest.Mounter{
			mount[identity.Group](base, db, groups, recorder, lg),
			mount[identity.Designation](base, db, designations, recorder, lg),
			mount[assetDatamodel.Category](base, db, categories, recorder, lg),
			mount[assetDatamodel.Department](base, db, departments, recorder, lg),
			mount[assetDatamodel.Supplier](base, db, suppliers, recorder, lg),
			mount[assetDatamodel.Status](base, db, statuses, recorder, lg),
			mount[assetDatamodel.Asset](base, db, assets, recorder, lg),
			mount[assetDatamodel.Request](base, db, requests, recorder, lg),
			mount[assetDatamodel.Issue](base, db, issues, recorder, lg),
		},
		Media: media,
	}, lg)

	return &Dependencies{
		Config:   config,
		DB:       db,
		SQL:      sqlDB,
		Router:   router,
		Logger:   lg,
		Sessions: sessions,
		Bus:      bus,
		Stream:   stream,
	}, nil
}

// mount serves resource through the shared list, create, update and delete pages.
func mount[T any](base *transport.BaseHandler, db *gorm.DB, resource crud.Resource[T], recorder *audit.Recorder, lg *slog.Logger) rest.Mounter {
	handler := crud.NewHandler[T](base, resource, crud.NewService[T](db, resource, recorder, lg))
	return func(r chi.Router, gate *auth.Gate) {
		crud.Mount[T](r, gate, handler)
	}
}

func initStorage(cfg internal.StorageConfig, lg *slog.Logger) (storage.Storage, http.Handler, error) {
	if cfg.Provider == "cloudinary" {
		files, err := storage.NewCloudinary(cfg.CloudinaryURL)
		return files, nil, err
	}
	local := storage.NewLocal(cfg.Dir, cfg.MediaURL, lg)
	return local, http.FileServer(http.Dir(local.Dir())), nil
}

// initDB opens gorm on the configured driver and applies the pool limits.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.GetDSN())
	case "mysql":
		dialector = mysql.Open(cfg.GetDSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == "sqlite" {
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(min(cfg.MaxIdleConns, maxOpen))
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// sqlxDriver names the driver sqlx uses to pick the bind variable style.
func sqlxDriver(driver string) string {
	switch driver {
	case "postgres":
		return "pgx"
	case "sqlite":
		return "sqlite3"
	default:
		return driver
	}
}
