package cmd

import (
	"context"
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
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gestionviaticos/viaticos/internal"
	"github.com/gestionviaticos/viaticos/internal/allocation"
	allocationPostgres "github.com/gestionviaticos/viaticos/internal/allocation/postgres"
	"github.com/gestionviaticos/viaticos/internal/auth"
	authPostgres "github.com/gestionviaticos/viaticos/internal/auth/postgres"
	"github.com/gestionviaticos/viaticos/internal/core/events"
	"github.com/gestionviaticos/viaticos/internal/expense"
	expensePostgres "github.com/gestionviaticos/viaticos/internal/expense/postgres"
	"github.com/gestionviaticos/viaticos/internal/extraction"
	"github.com/gestionviaticos/viaticos/internal/invoice"
	invoicePostgres "github.com/gestionviaticos/viaticos/internal/invoice/postgres"
	"github.com/gestionviaticos/viaticos/internal/ledger"
	ledgerPostgres "github.com/gestionviaticos/viaticos/internal/ledger/postgres"
	"github.com/gestionviaticos/viaticos/internal/project"
	projectPostgres "github.com/gestionviaticos/viaticos/internal/project/postgres"
	"github.com/gestionviaticos/viaticos/internal/receipt"
	"github.com/gestionviaticos/viaticos/internal/transport/rest"
	"github.com/gestionviaticos/viaticos/internal/user"
	userPostgres "github.com/gestionviaticos/viaticos/internal/user/postgres"
	"github.com/gestionviaticos/viaticos/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger

	AuthService *auth.Service
	Handlers    rest.Handlers
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.AuthService, deps.Handlers, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

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
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	bus := events.NewBus(lg)
	registerEventHandlers(bus, lg)

	ledgerService := ledger.NewService(ledgerPostgres.NewStore(gormDB), bus, lg)

	tokens := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewAuthRepository(gormDB), tokens, config.Security.BCryptCost, lg)

	expenseService := expense.NewService(ledgerService, expensePostgres.NewRepository(gormDB), lg)
	allocationService := allocation.NewService(ledgerService, allocationPostgres.NewRepository(gormDB), lg)
	projectService := project.NewService(projectPostgres.NewRepository(gormDB), lg)
	userService := user.NewService(userPostgres.NewRepository(gormDB), authService, lg)
	invoiceService := invoice.NewService(invoicePostgres.NewRepository(gormDB), bus, lg)

	receiptStorage, err := receipt.NewDiskStorage(config.Receipts.Dir, config.Receipts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize receipt storage: %w", err)
	}
	extractor := extraction.NewHTTPExtractor(config.Extraction.APIURL, config.Extraction.APIKey, 0, lg)

	return &Dependencies{
		Config:      config,
		DB:          db,
		Gorm:        gormDB,
		Router:      chi.NewRouter(),
		Logger:      lg,
		AuthService: authService,
		Handlers: rest.Handlers{
			Auth:       auth.NewHandler(authService, lg),
			User:       user.NewHandler(userService, lg),
			Expense:    expense.NewHandler(expenseService, lg),
			Allocation: allocation.NewHandler(allocationService, lg),
			Project:    project.NewHandler(projectService, lg),
			Invoice:    invoice.NewHandler(invoiceService, lg),
			Receipt:    receipt.NewHandler(receiptStorage, lg),
			Extraction: extraction.NewHandler(extractor, lg),
			Ledger:     ledger.NewHandler(ledgerService, lg),
		},
	}, nil
}

// registerEventHandlers wires the consistency warnings and invoice lifecycle
// notifications onto the bus.
func registerEventHandlers(bus *events.Bus, lg *slog.Logger) {
	bus.Subscribe(events.TypeBalanceSkipped, func(ctx context.Context, event events.Event) error {
		lg.Warn("consistency warning: balance delta skipped", "payload", event.Payload())
		return nil
	})
	bus.Subscribe(events.TypeInvoiceAnnulled, func(ctx context.Context, event events.Event) error {
		lg.Info("invoice annulled, expenses released", "payload", event.Payload())
		return nil
	})
	bus.Subscribe(events.TypeInvoicePaid, func(ctx context.Context, event events.Event) error {
		lg.Info("invoice paid", "payload", event.Payload())
		return nil
	})
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers the ORM over the already-open pgx connection so both share
// one pool.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
}
