package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bloomwatch/backend/internal/appeears"
	"github.com/bloomwatch/backend/internal/config"
	"github.com/bloomwatch/backend/internal/delivery/http"
	"github.com/bloomwatch/backend/internal/domain"
	"github.com/bloomwatch/backend/internal/phenology"
	"github.com/bloomwatch/backend/internal/repository/postgres"
	"github.com/bloomwatch/backend/internal/service"
)

var (
	envFile string
	port    int
)

var _ service.CredentialPreparer = (*appeears.TaskClient)(nil)

var rootCmd = &cobra.Command{
	Use:   "bloomwatch",
	Short: "NDVI time series and crop phenology API",
	Long: `bloomwatch serves NDVI point time series from NASA AppEEARS and classifies
them into crop phenology stages. Without AppEEARS credentials it serves a
labeled synthetic series instead.`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default: ./.env if present)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides PORT)")
	rootCmd.AddCommand(classifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads configuration and applies command line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	zlog, err := newLogger(cfg)
	if err != nil {
		log.Printf("failed to initialize logger: %v", err)
		return err
	}
	defer func() { _ = zlog.Sync() }()

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Dependency Injection: Repositories
	var journal domain.JournalRepository = postgres.NewMockRepository()
	if cfg.Database.URL == "" {
		zlog.Info("DATABASE_URL not set, acquisition journal disabled")
	} else if pool, err := openPool(ctx, cfg.Database.URL); err != nil {
		zlog.Warn("could not connect to database, acquisition journal disabled", zap.Error(err))
	} else {
		defer pool.Close()
		repo := postgres.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			zlog.Warn("could not prepare acquisition journal", zap.Error(err))
		} else {
			journal = repo
			zlog.Info("connected to PostgreSQL")
		}
	}

	// Dependency Injection: AppEEARS
	session := appeears.NewSession(appeears.SessionConfig{
		BaseURL:  cfg.AppEEARS.BaseURL,
		Username: cfg.AppEEARS.Username,
		Password: cfg.AppEEARS.Password,
		MaxAge:   cfg.AppEEARS.TokenMaxAge,
	}, zlog.Named("appeears"))
	client := appeears.NewTaskClient(appeears.ClientConfig{
		BaseURL: cfg.AppEEARS.BaseURL,
		Poll:    cfg.PollPolicy(),
	}, session, zlog.Named("appeears"))

	if session.Configured() {
		if _, err := session.ValidCredential(ctx); err != nil {
			zlog.Warn("initial appeears login failed, will retry on demand", zap.Error(err))
		}
	} else {
		zlog.Warn("APPEEARS_USER/APPEEARS_PASS not set, serving demo series only")
	}

	// Dependency Injection: Services
	seriesSvc := service.NewSeriesService(service.SeriesServiceConfig{
		Fetcher:        client,
		Gate:           service.NewGate(cfg.NDVI.MaxConcurrent),
		Journal:        journal,
		Logger:         zlog.Named("series"),
		DefaultProduct: cfg.NDVI.DefaultProduct,
	})
	handler := http.NewHandler(http.HandlerConfig{
		Series:      seriesSvc,
		Classifier:  phenology.NewClassifier(cfg.Thresholds()),
		Credentials: session,
		Journal:     journal,
		ServiceName: cfg.Server.ServiceName,
		Logger:      zlog.Named("http"),
	})

	// Fiber App. Write timeout leaves room for a full poll cycle.
	app := fiber.New(fiber.Config{
		AppName:      cfg.Server.ServiceName,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Routes
	http.SetupRoutes(app, handler)

	// Graceful shutdown
	go func() {
		zlog.Info("server starting", zap.String("addr", cfg.Addr()))
		if err := app.Listen(cfg.Addr()); err != nil {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		zlog.Warn("server forced to shutdown", zap.Error(err))
	}
	seriesSvc.WaitBackground()
	zlog.Info("server exited gracefully")
	return nil
}

func openPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
