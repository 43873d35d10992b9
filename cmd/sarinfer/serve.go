package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sarinfer/internal/auth"
	"sarinfer/internal/config"
	"sarinfer/internal/httpapi"
	"sarinfer/internal/ratelimit"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	deps := httpapi.Dependencies{
		Service: a.svc,
		Gate:    auth.NewGate(a.cfg.Auth.ValidAPIKeys),
		Health:  map[string]httpapi.HealthChecker{"metadata": a.backend},

		Stats:      func() interface{} { return a.backend.Stats() },
		ModelsRoot: a.cfg.Server.ModelsRoot,
	}
	if a.cfg.Auth.JWTSecret != "" {
		deps.Issuer = auth.NewTokenIssuer([]byte(a.cfg.Auth.JWTSecret), a.cfg.Auth.TokenTTL)
	}
	if a.redis != nil {
		deps.Health["redis"] = a.redis
	}
	if a.breaker != nil {
		deps.Health["object_store"] = a.breaker
	}
	if n := a.cfg.Server.RateLimitPerMinute; n > 0 {
		if a.cfg.Server.RateLimitBackend == config.RateLimitBackendLocal {
			deps.Limiter = ratelimit.NewLocalLimiter(n)
		} else {
			deps.Limiter = ratelimit.NewRateLimiter(a.redisClient(), n)
		}
	}
	if deps.Gate.Len() == 0 {
		a.logger.Warn("VALID_API_KEYS is empty, every API request will be rejected")
	}

	// No WriteTimeout: backup and restore responses are written when the
	// transfer finishes.
	server := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("sarinfer listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server forced to shutdown", "error", err)
		return err
	}
	a.logger.Info("Server exited")
	return nil
}
