package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	store "surfsup-server/internal/db"
	"surfsup-server/internal/modules/climate/types"
)

//go:embed sql/get-precipitation.sql
var getPrecipitationSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-temperature-observations.sql
var getTemperatureObservationsSQL string

//go:embed sql/get-temperature-stats.sql
var getTemperatureStatsSQL string

//go:embed sql/get-temperature-stats-range.sql
var getTemperatureStatsRangeSQL string

// Schema lists the tables and columns the queries above read.
var Schema = []store.Table{
	{Name: "station", Columns: []string{"id", "station", "name", "latitude", "longitude", "elevation"}},
	{Name: "measurement", Columns: []string{"id", "station", "date", "prcp", "tobs"}},
}

type ClimateRepository interface {
	// GetPrecipitation returns (date, prcp) rows with date >= since, newest first.
	GetPrecipitation(ctx context.Context, since string) ([]types.DatePoint, error)
	GetStations(ctx context.Context) ([]types.Station, error)
	// GetTemperatureObservations returns (date, tobs) rows of one station
	// with date strictly after the cutoff, newest first.
	GetTemperatureObservations(ctx context.Context, station string, after string) ([]types.DatePoint, error)
	// GetTemperatureStats aggregates tobs over all stations for
	// start <= date, and date <= end when end is not empty.
	GetTemperatureStats(ctx context.Context, start string, end string) (types.TemperatureStats, error)
	VerifySchema(ctx context.Context) error
}

type repositoryImpl struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

func NewRepository(db *sqlx.DB) ClimateRepository {
	return &repositoryImpl{
		db:     db,
		tracer: otel.Tracer("surfsup-server/climate/repository"),
	}
}

type pointRow struct {
	Date  string          `db:"date"`
	Value sql.NullFloat64 `db:"value"`
}

type statsRow struct {
	Min sql.NullFloat64 `db:"min_tobs"`
	Max sql.NullFloat64 `db:"max_tobs"`
	Avg sql.NullFloat64 `db:"avg_tobs"`
}

// withSession runs fn on a connection held for this call only. Every failure
// inside is reported as store.ErrStorageUnavailable.
func (r *repositoryImpl) withSession(ctx context.Context, op string, fn func(context.Context, *sqlx.Conn) error, attrs ...attribute.KeyValue) (err error) {
	ctx, span := r.tracer.Start(ctx, "climate."+op, trace.WithAttributes(attrs...))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	conn, err := r.db.Connx(ctx)
	if err != nil {
		return store.Unavailable(op, err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Error("close session", "op", op, "error", closeErr)
		}
	}()

	if err := fn(ctx, conn); err != nil {
		return store.Unavailable(op, err)
	}
	return nil
}

func (r *repositoryImpl) GetPrecipitation(ctx context.Context, since string) ([]types.DatePoint, error) {
	var rows []pointRow
	err := r.withSession(ctx, "get precipitation", func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &rows, getPrecipitationSQL, since)
	}, attribute.String("climate.since", since))
	if err != nil {
		return nil, err
	}
	return toPoints(rows), nil
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]types.Station, error) {
	var out []types.Station
	err := r.withSession(ctx, "get stations", func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &out, getStationsSQL)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repositoryImpl) GetTemperatureObservations(ctx context.Context, station string, after string) ([]types.DatePoint, error) {
	var rows []pointRow
	err := r.withSession(ctx, "get temperature observations", func(ctx context.Context, conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &rows, getTemperatureObservationsSQL, after, station)
	}, attribute.String("climate.station", station), attribute.String("climate.after", after))
	if err != nil {
		return nil, err
	}
	return toPoints(rows), nil
}

func (r *repositoryImpl) GetTemperatureStats(ctx context.Context, start string, end string) (types.TemperatureStats, error) {
	var row statsRow
	err := r.withSession(ctx, "get temperature stats", func(ctx context.Context, conn *sqlx.Conn) error {
		if end == "" {
			return conn.GetContext(ctx, &row, getTemperatureStatsSQL, start)
		}
		return conn.GetContext(ctx, &row, getTemperatureStatsRangeSQL, start, end)
	}, attribute.String("climate.start", start), attribute.String("climate.end", end))
	if err != nil {
		return types.TemperatureStats{}, err
	}
	return types.TemperatureStats{
		Min: nullable(row.Min),
		Max: nullable(row.Max),
		Avg: nullable(row.Avg),
	}, nil
}

func (r *repositoryImpl) VerifySchema(ctx context.Context) error {
	return store.VerifySchema(ctx, r.db.DB, Schema)
}

func toPoints(rows []pointRow) []types.DatePoint {
	out := make([]types.DatePoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.DatePoint{Date: row.Date, Value: nullable(row.Value)})
	}
	return out
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
