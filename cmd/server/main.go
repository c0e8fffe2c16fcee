package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pscheid92/hackathon/internal/app"
	"github.com/pscheid92/hackathon/internal/platform/version"
	"go.uber.org/automaxprocs/maxprocs"
)

func runGracefulShutdown(application *app.Application) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), application.Config.ShutdownTimeout)
		defer cancel()
		if err := application.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	application, err := app.Create()
	if err != nil {
		// slog may not be configured yet when config loading fails
		log.Fatalf("Failed to create application: %v", err)
	}
	slog.Info("Build info", "version", version.Get().String())

	logf := func(format string, args ...any) { slog.Debug(fmt.Sprintf(format, args...)) }
	if _, err := maxprocs.Set(maxprocs.Logger(logf)); err != nil {
		slog.Warn("Failed to set GOMAXPROCS from container quota", "error", err)
	}

	done := runGracefulShutdown(application)

	if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		application.Close()
		os.Exit(1)
	}

	<-done
}
