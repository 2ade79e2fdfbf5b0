package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/clubtab/clubtab/internal/app"
	"github.com/clubtab/clubtab/internal/app/handlers"
	"github.com/clubtab/clubtab/internal/config"
	"github.com/clubtab/clubtab/internal/jwt-new/jwtmiddleware"
	"github.com/clubtab/clubtab/internal/lib/logger"
	"github.com/clubtab/clubtab/internal/lib/logger/handlers/urllog"
	"github.com/clubtab/clubtab/internal/service"
	"github.com/clubtab/clubtab/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	orderRepo := storage.NewOrderRepository(application.DB)
	venueRepo := storage.NewVenueRepository(application.DB)
	drinkRepo := storage.NewDrinkRepository(application.DB)
	userRepo := storage.NewUserRepository(application.DB)
	staffRepo := storage.NewStaffRepository(application.DB)

	orderService := service.NewOrderService(
		application.Logger, application.DB,
		orderRepo, venueRepo, drinkRepo, userRepo, staffRepo,
		application.Gateway, cfg.Stripe.Currency, cfg.Stripe.IntentTimeout,
	)
	fulfillmentService := service.NewFulfillmentService(application.Logger, application.DB, orderRepo, staffRepo)
	reconcileService := service.NewReconcileService(application.Logger, application.DB, orderRepo, userRepo)
	payoutService := service.NewPayoutService(application.Logger, userRepo)

	// The webhook endpoint authenticates by signature, not by JWT.
	router.Post("/api/v1/payments/webhook", handlers.WebhookHandler(application.Logger, application.Gateway, reconcileService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)
		r.Post("/api/v1/orders", handlers.CreateOrderHandler(application.Logger, orderService))
		r.Get("/api/v1/orders/me/history", handlers.MyOrdersHandler(application.Logger, orderService))
		r.Get("/api/v1/orders/{id}", handlers.GetOrderHandler(application.Logger, orderService))
		r.Get("/api/v1/staff/orders", handlers.StaffOrdersHandler(application.Logger, fulfillmentService))
		r.Post("/api/v1/staff/scan", handlers.ScanHandler(application.Logger, fulfillmentService))
		r.Put("/api/v1/staff/orders/{id}/status", handlers.UpdateStatusHandler(application.Logger, fulfillmentService))
		r.Post("/api/v1/staff/orders/{id}/confirm-cash", handlers.ConfirmCashHandler(application.Logger, fulfillmentService))
		r.Get("/api/v1/payouts/status", handlers.PayoutStatusHandler(application.Logger, payoutService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
