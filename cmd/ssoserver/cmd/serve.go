package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/MrEthical07/goSSO/httpapi"
	promexport "github.com/MrEthical07/goSSO/metrics/export/prometheus"
	"github.com/MrEthical07/goSSO/sqlstore"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SSO HTTP server",
	Long:  `Starts the HTTP server exposing login, ticket validation and permission endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := cfg.Logger()

		if cfg.Database.DSN == "" {
			return errors.New("database.dsn is required (env: SSO_DATABASE_DSN)")
		}
		engineCfg, err := cfg.Engine()
		if err != nil {
			return fmt.Errorf("invalid engine configuration: %w", err)
		}

		store, err := sqlstore.Open(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		pingCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("connected to database")

		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		engine, err := goSSO.New().
			WithConfig(engineCfg).
			WithRedis(rdb).
			WithPrincipalStore(store).
			WithPermissionSource(store).
			WithAuditSink(goSSO.NewLogrusSink(logger.WithField("component", "audit"))).
			WithLogger(logger).
			Build()
		if err != nil {
			return fmt.Errorf("failed to build engine: %w", err)
		}
		defer engine.Close()

		if err := engine.Ping(pingCtx); err != nil {
			logger.WithError(err).Warn("redis is not reachable yet, logins will fail until it is")
		}

		opts := httpapi.Options{
			Logger:            logger,
			AuthRatePerSecond: cfg.Server.AuthRatePerSecond,
			AuthBurst:         cfg.Server.AuthBurst,
			TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
		}
		if cfg.Server.Metrics {
			opts.Metrics = promexport.NewExporter(engine).Handler()
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           httpapi.NewRouter(engine, opts),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		return run(srv, logger, cfg.Server.ShutdownTimeout)
	},
}

// run serves until SIGINT or SIGTERM, then drains in-flight requests for at
// most timeout.
func run(srv *http.Server, logger logrus.FieldLogger, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("http server listening")
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
