package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"productmanager/internal/config"
	"productmanager/internal/database"
	"productmanager/internal/handlers"
	"productmanager/internal/repositories"
	"productmanager/internal/server"
	"productmanager/internal/services"
	"productmanager/pkg/rabbitmq"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// --- Flags ---
	flags := pflag.NewFlagSet("productmanager", pflag.ContinueOnError)
	clearData := flags.Bool("clear", false, "drop and recreate the products table, then exit")
	flags.String("port", "", "listen address, overrides APP_PORT")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	// --- Configuration ---
	v := viper.New()
	if port := flags.Lookup("port"); port.Changed {
		_ = v.BindPFlag("APP_PORT", port)
	}
	cfg, err := config.LoadFrom(v)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Error().Err(err).Msg("failed to load configuration")
		return 1
	}

	logger := config.NewLogger(cfg.Logger)

	if *clearData {
		return clearDatabase(cfg.Database, logger)
	}

	// --- Storage ---
	productRepo, closeRepo, err := openRepository(cfg.Database, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open product storage")
		return 1
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Error().Err(err).Msg("failed to close product storage")
		}
	}()

	// --- Event publishing ---
	var publisher services.EventPublisher
	if cfg.RabbitMQ.Enabled() {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
		})
		if err != nil {
			logger.Error().Err(err).Msg("failed to initialize RabbitMQ client")
			return 1
		}
		defer mqClient.Close()
		publisher = mqClient
		logger.Info().Str("exchange", cfg.RabbitMQ.Exchange).Msg("publishing product events")
	}

	// --- Services and handlers ---
	productService := services.NewProductService(productRepo, publisher, cfg.RabbitMQ.Exchange, logger)
	productHandler := handlers.NewProductHandler(productService, logger)

	app := server.New(cfg.Server, productHandler, logger)

	// --- Start HTTP server ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Port).Msg("starting server")
		listenErr <- app.Listen(cfg.Server.Port)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			logger.Error().Err(err).Msg("server failed to start")
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
		return 1
	}
	logger.Info().Msg("server gracefully stopped")
	return 0
}

// openRepository returns the product repository for the configured driver
// and the function releasing it.
func openRepository(cfg config.DatabaseConfig, logger zerolog.Logger) (repositories.ProductRepository, func() error, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn().Msg("using in-memory product storage, data is lost on exit")
		return repositories.NewMemoryProductRepository(), func() error { return nil }, nil
	}

	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewGORMProductRepository(db), func() error { return database.Close(db) }, nil
}

// clearDatabase empties the products table and reports the exit code.
func clearDatabase(cfg config.DatabaseConfig, logger zerolog.Logger) int {
	if cfg.Driver == config.DriverMemory {
		logger.Info().Msg("Data successfully deleted.")
		return 0
	}

	db, err := database.Open(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open database")
		return 1
	}
	defer database.Close(db)

	if err := database.Clear(db); err != nil {
		logger.Error().Err(err).Msg("failed to clear database")
		return 1
	}
	logger.Info().Msg("Data successfully deleted.")
	return 0
}
