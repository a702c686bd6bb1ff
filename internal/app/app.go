package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"gridtactics/server/internal/battle"
	"gridtactics/server/internal/catalog"
	"gridtactics/server/internal/config"
	servernet "gridtactics/server/internal/net"
	"gridtactics/server/internal/net/ws"
	"gridtactics/server/internal/otel"
	"gridtactics/server/internal/telemetry"
	"gridtactics/server/logging"
	loggingSinks "gridtactics/server/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Logger telemetry.Logger
	Env    config.Config
	// Catalog overrides the embedded catalog when set.
	Catalog *catalog.Catalog
}

// Run serves the battle API until ctx is cancelled, then drains running
// battles and flushes the log sinks.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	env := cfg.Env
	shutdownTracing, err := otel.Setup(ctx, otel.Options{
		Enabled:     env.OTelEnabled,
		Endpoint:    env.OTelEndpoint,
		ServiceName: env.ServiceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		if serr := shutdownTracing(context.Background()); serr != nil {
			telemetryLogger.Printf("failed to flush traces: %v", serr)
		}
	}()

	cat := cfg.Catalog
	if cat == nil {
		cat, err = catalog.Load()
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
	}

	logConfig := env.Logging()
	broadcaster := ws.NewBroadcaster(telemetryLogger)
	sinks := map[string]logging.Sink{"ws": broadcaster}
	if logConfig.HasSink("console") {
		sinks["console"] = loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)
	}
	if logConfig.HasSink("json") {
		if logConfig.JSON.FilePath == "" {
			return errors.New("json log sink enabled without GRIDTACTICS_LOG_JSON_PATH")
		}
		file, ferr := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if ferr != nil {
			return fmt.Errorf("open json log: %w", ferr)
		}
		defer file.Close()
		sinks["json"] = loggingSinks.NewJSON(file, logConfig.JSON)
	}

	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, fallbackLogger, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := telemetry.NewCounters()
	manager, err := battle.NewManager(env.Battle(), battle.Deps{
		Catalog:   cat,
		Publisher: router,
		Logger:    telemetryLogger,
		Metrics:   metrics,
		Clock:     logging.SystemClock{},
	})
	if err != nil {
		return err
	}

	handler := servernet.NewHTTPHandler(manager, servernet.HTTPHandlerConfig{
		Logger:      telemetryLogger,
		Broadcaster: broadcaster,
		Metrics:     metrics,
	})

	srv := &http.Server{Addr: env.Addr, Handler: handler}
	serveErr := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			manager.Shutdown(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetryLogger.Printf("http shutdown: %v", err)
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		telemetryLogger.Printf("battle shutdown: %v", err)
	}
	return nil
}
