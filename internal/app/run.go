package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"surfsup-server/internal/config"
	db "surfsup-server/internal/db"
	httpapi "surfsup-server/internal/httpapi"
	climate "surfsup-server/internal/modules/climate"
	"surfsup-server/internal/modules/climate/controller"
	climateviews "surfsup-server/internal/modules/climate/views"
	"surfsup-server/internal/mqtt"
	"surfsup-server/internal/otel"
)

// BuildInfo identifies the running binary in logs, traces and the MQTT status.
type BuildInfo struct {
	AppName string
	Version string
}

func Run(ctx context.Context, cfg config.Config, info BuildInfo) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"dbLogSQL", cfg.LogSQL,
		"cutoffDate", cfg.CutoffDate,
		"tobsStation", cfg.TobsStation,
		"strictDates", cfg.StrictDates,
		"mqttBroker", cfg.MQTTBroker,
		"mqttStatusTopic", cfg.MQTTStatusTopic,
		"otelEndpoint", cfg.OTelEndpoint,
	)

	shutdownTracing, err := otel.Setup(ctx, info.AppName, info.Version, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()
	slog.Info("database connection successful")

	mux, err := NewMux(ctx, cfg, dbConn)
	if err != nil {
		return err
	}

	publisher, err := mqtt.NewPublisher(cfg, slog.Default(), mqtt.Status{
		Service:   info.AppName,
		Version:   info.Version,
		StartedAt: time.Now().UTC(),
		Routes:    append(append([]string{}, controller.Routes...), controller.DateRoutes...),
	})
	if err != nil {
		return err
	}
	if publisher.Enabled() {
		// Short timeout so a missing broker does not block startup.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = publisher.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without status publishing)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, info.AppName, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		publisher.Disconnect()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	publisher.Disconnect()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// NewMux verifies the store schema, loads templates and returns the routes of
// the service without starting a listener.
func NewMux(ctx context.Context, cfg config.Config, dbConn *sql.DB) (*http.ServeMux, error) {
	if err := climateviews.LoadTemplates(); err != nil {
		return nil, err
	}

	mux := httpapi.NewMux(dbConn)
	opts := controller.Options{
		CutoffDate:  cfg.CutoffDate,
		TobsStation: cfg.TobsStation,
		StrictDates: cfg.StrictDates,
	}
	if err := climate.RegisterFeature(ctx, mux, sqlx.NewDb(dbConn, cfg.Driver), opts); err != nil {
		return nil, err
	}
	return mux, nil
}
