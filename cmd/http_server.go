package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/auth"
	authPostgres "github.com/frahmantamala/permit-management/internal/auth/postgres"
	"github.com/frahmantamala/permit-management/internal/authz"
	"github.com/frahmantamala/permit-management/internal/core/events"
	"github.com/frahmantamala/permit-management/internal/department"
	departmentPostgres "github.com/frahmantamala/permit-management/internal/department/postgres"
	"github.com/frahmantamala/permit-management/internal/permit"
	permitPostgres "github.com/frahmantamala/permit-management/internal/permit/postgres"
	"github.com/frahmantamala/permit-management/internal/role"
	rolePostgres "github.com/frahmantamala/permit-management/internal/role/postgres"
	"github.com/frahmantamala/permit-management/internal/store"
	"github.com/frahmantamala/permit-management/internal/store/gormstore"
	"github.com/frahmantamala/permit-management/internal/telemetry"
	"github.com/frahmantamala/permit-management/internal/transport"
	"github.com/frahmantamala/permit-management/internal/transport/middleware"
	"github.com/frahmantamala/permit-management/internal/transport/rest"
	"github.com/frahmantamala/permit-management/internal/user"
	userPostgres "github.com/frahmantamala/permit-management/internal/user/postgres"
	"github.com/frahmantamala/permit-management/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startHTTPServer(); err != nil {
			fmt.Fprintf(os.Stderr, "server: %v\n", err)
			os.Exit(1)
		}
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Store    store.Store
	Router   *chi.Mux
	Bus      *events.EventBus
	Logger   *slog.Logger
	Shutdown telemetry.ShutdownFunc
}

func startHTTPServer() error {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.DB.Close()

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		deps.Logger.Info("starting HTTP server", "address", addr)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		deps.Logger.Error("server shutdown error", "error", err)
	}
	if err := deps.Bus.Wait(ctx); err != nil {
		deps.Logger.Warn("event handlers still running at shutdown", "error", err)
	}
	if err := deps.Shutdown(ctx); err != nil {
		deps.Logger.Error("tracer shutdown error", "error", err)
	}

	deps.Logger.Info("server stopped")
	return nil
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.Setup(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	catalog := authz.DefaultCatalog()
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("role catalog: %w", err)
	}

	shutdown, err := telemetry.InitTracing(ctx, cfg.Observability.Tracing, lg)
	if err != nil {
		return nil, err
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	st, err := openStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bus := events.NewEventBus(lg)
	events.SubscribeAudit(bus, lg)

	resolver := authz.NewResolver(st, lg)
	guard := authz.NewGuard(resolver, lg, authz.NewMetrics(reg))

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(st), tokens, cfg.Security.BCryptCost, lg)

	departmentRepo := departmentPostgres.NewDepartmentRepository(st)
	departmentService := department.NewService(departmentRepo, guard, lg)
	permitService := permit.NewService(permitPostgres.NewPermitRepository(st), guard, departmentRepo, bus, cfg.Permits.MaxValidity, lg)
	userService := user.NewService(userPostgres.NewRepository(st), resolver, guard, lg)
	roleService := role.NewService(rolePostgres.NewRoleRepository(st), guard, lg)

	router := chi.NewRouter()
	opts := rest.RouterOptions{AllowedOrigins: cfg.Server.AllowedOrigins}
	if cfg.Observability.Metrics.Enabled {
		opts.MetricsPath = cfg.Observability.Metrics.Path
		opts.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		opts.HTTPMetrics = middleware.NewHTTPMetrics(reg)
	}
	rest.RegisterAllRoutes(router, rest.Handlers{
		Auth:       auth.NewHandler(authService, lg),
		Permit:     permit.NewHandler(permitService, guard, lg),
		Department: department.NewHandler(transport.NewBaseHandler(lg), departmentService, guard),
		User:       user.NewHandler(userService, guard),
		Role:       role.NewHandler(roleService, guard, lg),
		Health:     rest.NewHealthHandler(db),
	}, opts, lg)

	return &Dependencies{
		Config:   cfg,
		DB:       db,
		Store:    st,
		Router:   router,
		Bus:      bus,
		Logger:   lg,
		Shutdown: shutdown,
	}, nil
}

// initDB opens the shared pgx pool. gorm and the health check both run on it.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	db, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// openStore layers gorm over the existing pool and wraps it with the
// soft-delete scope every repository relies on.
func openStore(db *sqlx.DB) (store.Store, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return store.NewSoftDelete(gormstore.New(gdb)), nil
}
