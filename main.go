package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Gin_postgres_redis_lending/app"
	"Gin_postgres_redis_lending/config"
	"Gin_postgres_redis_lending/events"
	"Gin_postgres_redis_lending/notify"
	"Gin_postgres_redis_lending/routes"
	"Gin_postgres_redis_lending/workers"
)

func main() {
	config.LoadEnv()
	log := app.NewLogger(os.Getenv("LOG_LEVEL"))

	application := app.MustNew(log)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Bootstrap(ctx, application.Config, application.Repo, log); err != nil {
		log.Error("bootstrap failed", "err", err)
		os.Exit(1)
	}

	// borrow events fan out to the stats cache and the borrower mails
	if err := application.Bus.Subscribe(ctx, "stats-cache", func(ctx context.Context, _ events.BorrowEvent) error {
		return application.Cache.InvalidateStats(ctx)
	}); err != nil {
		log.Error("subscribe stats cache", "err", err)
		os.Exit(1)
	}
	notifier := &notify.BorrowNotifier{Mail: application.Mailer, Dir: application.Repo}
	if err := application.Bus.Subscribe(ctx, "borrower-mail", notifier.Handle); err != nil {
		log.Error("subscribe borrower mail", "err", err)
		os.Exit(1)
	}

	sweeper := workers.NewOverdueSweeper(application.Repo, application.Bus, application.Config.OverdueInterval, log)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx)
	}()

	r := application.Router
	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"status": "ok", "service": "lending-backend"}) })
	routes.RegisterRoutes(r, application)

	srv := &http.Server{
		Addr:              ":" + application.Config.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	<-sweepDone
}
