package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	store "surfsup-server/internal/db"
	"surfsup-server/internal/fixture"
	"surfsup-server/internal/modules/climate/types"
)

func setupTestDB(t *testing.T, seed bool) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hawaii.sqlite")
	if err := fixture.Create(path, seed); err != nil {
		t.Fatalf("fixture.Create: %v", err)
	}
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Errorf("close db: %v", closeErr)
		}
	})
	return db
}

func insertMeasurement(t *testing.T, db *sqlx.DB, station, date string, prcp *float64, tobs float64) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`,
		station, date, prcp, tobs)
	if err != nil {
		t.Fatalf("insert measurement: %v", err)
	}
}

func f64(v float64) *float64 { return &v }

func dates(points []types.DatePoint) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		out = append(out, p.Date)
	}
	return out
}

func TestGetStations_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t, false))

	stations, err := repo.GetStations(context.Background())
	if err != nil {
		t.Fatalf("GetStations: %v", err)
	}
	if len(stations) != 0 {
		t.Fatalf("GetStations: got %d stations, want 0", len(stations))
	}
}

func TestGetStations_WithData(t *testing.T) {
	repo := NewRepository(setupTestDB(t, true))

	stations, err := repo.GetStations(context.Background())
	if err != nil {
		t.Fatalf("GetStations: %v", err)
	}
	if len(stations) != 9 {
		t.Fatalf("GetStations: got %d stations, want 9", len(stations))
	}
	want := types.Station{
		ID: 1, Station: "USC00519397", Name: "WAIKIKI 717.2, HI US",
		Latitude: 21.2716, Longitude: -157.8168, Elevation: 3.0,
	}
	if diff := cmp.Diff(want, stations[0]); diff != "" {
		t.Errorf("first station mismatch (-want +got):\n%s", diff)
	}
	seen := make(map[string]bool)
	for _, s := range stations {
		if seen[s.Station] {
			t.Errorf("station %s returned twice", s.Station)
		}
		seen[s.Station] = true
		if s.Name == "" || s.Station == "" {
			t.Errorf("station %d has empty fields: %+v", s.ID, s)
		}
	}
}

func TestGetPrecipitation(t *testing.T) {
	repo := NewRepository(setupTestDB(t, true))

	points, err := repo.GetPrecipitation(context.Background(), "2016-08-23")
	if err != nil {
		t.Fatalf("GetPrecipitation: %v", err)
	}
	if len(points) == 0 {
		t.Fatal("GetPrecipitation: no rows")
	}
	for i, p := range points {
		if p.Date < "2016-08-23" {
			t.Errorf("row %d date %s before cutoff", i, p.Date)
		}
		if i > 0 && p.Date > points[i-1].Date {
			t.Errorf("row %d date %s after previous %s; want descending", i, p.Date, points[i-1].Date)
		}
	}
	if points[0].Date != "2017-08-23" {
		t.Errorf("first date = %s; want 2017-08-23", points[0].Date)
	}

	var sawNull bool
	for _, p := range points {
		if p.Date == "2016-08-23" && p.Value == nil {
			sawNull = true
		}
	}
	if !sawNull {
		t.Error("expected the NULL prcp row on 2016-08-23 to be returned")
	}
}

func TestGetTemperatureObservations(t *testing.T) {
	db := setupTestDB(t, false)
	insertMeasurement(t, db, "USC00519281", "2016-08-23", nil, 77)
	insertMeasurement(t, db, "USC00519281", "2016-08-24", f64(2.15), 77)
	insertMeasurement(t, db, "USC00519281", "2017-08-18", f64(0.06), 79)
	insertMeasurement(t, db, "USC00519397", "2017-08-23", f64(0), 81)
	repo := NewRepository(db)

	points, err := repo.GetTemperatureObservations(context.Background(), "USC00519281", "2016-08-23")
	if err != nil {
		t.Fatalf("GetTemperatureObservations: %v", err)
	}
	if diff := cmp.Diff([]string{"2017-08-18", "2016-08-24"}, dates(points)); diff != "" {
		t.Errorf("dates mismatch (-want +got):\n%s", diff)
	}
	if points[0].Value == nil || *points[0].Value != 79 {
		t.Errorf("first tobs = %v; want 79", points[0].Value)
	}
}

func TestGetTemperatureStats_SingleRow(t *testing.T) {
	db := setupTestDB(t, false)
	insertMeasurement(t, db, "USC00519281", "2017-01-01", nil, 70)
	repo := NewRepository(db)

	got, err := repo.GetTemperatureStats(context.Background(), "2017-01-01", "2017-01-01")
	if err != nil {
		t.Fatalf("GetTemperatureStats: %v", err)
	}
	want := types.TemperatureStats{Min: f64(70), Max: f64(70), Avg: f64(70)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestGetTemperatureStats_NoRowsIsNull(t *testing.T) {
	repo := NewRepository(setupTestDB(t, true))

	got, err := repo.GetTemperatureStats(context.Background(), "9999-01-01", "")
	if err != nil {
		t.Fatalf("GetTemperatureStats: %v", err)
	}
	if got.Min != nil || got.Max != nil || got.Avg != nil {
		t.Errorf("stats = %+v; want all nil", got)
	}
}

func TestGetTemperatureStats_Ordering(t *testing.T) {
	repo := NewRepository(setupTestDB(t, true))

	tests := []struct {
		name       string
		start, end string
	}{
		{name: "open ended", start: "2016-08-23"},
		{name: "full dates", start: "2016-08-23", end: "2016-08-25"},
		{name: "year prefix", start: "2017"},
		{name: "month prefix", start: "2016-08", end: "2016-09"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetTemperatureStats(context.Background(), tt.start, tt.end)
			if err != nil {
				t.Fatalf("GetTemperatureStats: %v", err)
			}
			if got.Min == nil || got.Max == nil || got.Avg == nil {
				t.Fatalf("stats = %+v; want values", got)
			}
			if !(*got.Min <= *got.Avg && *got.Avg <= *got.Max) {
				t.Errorf("min=%v avg=%v max=%v; want min <= avg <= max", *got.Min, *got.Avg, *got.Max)
			}
		})
	}
}

func TestGetTemperatureStats_EndBoundInclusive(t *testing.T) {
	db := setupTestDB(t, false)
	insertMeasurement(t, db, "USC00519281", "2017-01-01", nil, 60)
	insertMeasurement(t, db, "USC00519397", "2017-01-02", nil, 80)
	insertMeasurement(t, db, "USC00519397", "2017-01-03", nil, 90)
	repo := NewRepository(db)

	got, err := repo.GetTemperatureStats(context.Background(), "2017-01-01", "2017-01-02")
	if err != nil {
		t.Fatalf("GetTemperatureStats: %v", err)
	}
	want := types.TemperatureStats{Min: f64(60), Max: f64(80), Avg: f64(70)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_ClosedStoreIsUnavailable(t *testing.T) {
	db := setupTestDB(t, true)
	repo := NewRepository(db)
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	ctx := context.Background()

	calls := map[string]func() error{
		"precipitation": func() error { _, err := repo.GetPrecipitation(ctx, "2016-08-23"); return err },
		"stations":      func() error { _, err := repo.GetStations(ctx); return err },
		"tobs":          func() error { _, err := repo.GetTemperatureObservations(ctx, "USC00519281", "2016-08-23"); return err },
		"stats":         func() error { _, err := repo.GetTemperatureStats(ctx, "2017", ""); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			if !errors.Is(err, store.ErrStorageUnavailable) {
				t.Fatalf("err = %v; want ErrStorageUnavailable", err)
			}
		})
	}
}

func TestVerifySchema(t *testing.T) {
	t.Run("fixture schema matches", func(t *testing.T) {
		repo := NewRepository(setupTestDB(t, false))
		if err := repo.VerifySchema(context.Background()); err != nil {
			t.Fatalf("VerifySchema() = %v; want nil", err)
		}
	})

	t.Run("missing measurement table", func(t *testing.T) {
		db := setupTestDB(t, false)
		if _, err := db.Exec(`DROP TABLE measurement`); err != nil {
			t.Fatalf("drop: %v", err)
		}
		err := NewRepository(db).VerifySchema(context.Background())
		if !errors.Is(err, store.ErrSchemaMismatch) {
			t.Fatalf("VerifySchema() = %v; want ErrSchemaMismatch", err)
		}
	})
}
