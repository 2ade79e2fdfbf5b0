package app

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/lib/pq"

	"github.com/clubtab/clubtab/internal/config"
	"github.com/clubtab/clubtab/internal/payments"
)

// App holds the process-wide dependencies: configuration, logger, database
// handle, and the payment gateway client. Everything is constructed once at
// startup and passed by reference into the components that need it.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DB      *sql.DB
	Gateway payments.Gateway
}

func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is not set")
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Database.User,
		dbPassword,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	app := &App{
		Config:  cfg,
		Logger:  log,
		DB:      db,
		Gateway: payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret),
	}

	return app, nil
}
