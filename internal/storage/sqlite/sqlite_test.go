package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/canalwatch/icewatch/internal/storage"
	"github.com/canalwatch/icewatch/internal/types"
	"github.com/canalwatch/icewatch/pkg/config"
)

var t0 = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("could not create schema: %v", err)
	}

	insert := `INSERT INTO ice_readings
		(id, location, window_end_time, avg_ice_thickness, avg_surface_temperature,
		 avg_snow_accumulation, max_snow_accumulation, safety_status, reading_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	rows := []struct {
		id, loc string
		offset  time.Duration
		ice     float64
		avgSnow any
		maxSnow any
		status  string
	}{
		{"d1", "DowsLake", 0, 30.1, 1.0, nil, "Safe"},
		{"d2", "DowsLake", 5 * time.Minute, 30.4, 1.2, nil, "Caution"},
		{"d3", "DowsLake", 10 * time.Minute, 29.8, nil, 3.3, "Unsafe"},
		{"n1", "NAC", 5 * time.Minute, 27.0, 0.5, nil, "Safe"},
	}
	for _, r := range rows {
		ts := t0.Add(r.offset).Format(time.RFC3339)
		if _, err := db.Exec(insert, r.id, r.loc, ts, r.ice, -4.0, r.avgSnow, r.maxSnow, r.status, 30); err != nil {
			t.Fatalf("insert %s: %v", r.id, err)
		}
	}

	return db
}

func TestQueryLatest(t *testing.T) {
	s := NewWithDB(openTestDB(t))

	got, err := s.Query(context.Background(), storage.Query{Location: "DowsLake", Limit: 1, Descending: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(got))
	}
	r := got[0]
	if r.ID != "d3" || r.SafetyStatus != types.StatusUnsafe {
		t.Errorf("expected newest reading d3/Unsafe, got %s/%s", r.ID, r.SafetyStatus)
	}
	if !r.WindowEndTime.Equal(t0.Add(10 * time.Minute)) {
		t.Errorf("unexpected windowEndTime %v", r.WindowEndTime)
	}
	if r.AvgSnowAccumulation != 3.3 {
		t.Errorf("expected max snow fallback 3.3, got %v", r.AvgSnowAccumulation)
	}
	if r.ReadingCount != 30 {
		t.Errorf("expected readingCount 30, got %d", r.ReadingCount)
	}
}

func TestQueryOrderingAndLimit(t *testing.T) {
	s := NewWithDB(openTestDB(t))

	asc, err := s.Query(context.Background(), storage.Query{Location: "DowsLake"})
	if err != nil {
		t.Fatal(err)
	}
	if len(asc) != 3 || asc[0].ID != "d1" || asc[2].ID != "d3" {
		t.Errorf("unexpected ascending order: %+v", asc)
	}

	all, err := s.Query(context.Background(), storage.Query{Descending: true, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != "d3" {
		t.Errorf("unexpected limited result: %+v", all)
	}
}

func TestQueryStatusOnly(t *testing.T) {
	s := NewWithDB(openTestDB(t))

	got, err := s.Query(context.Background(), storage.Query{Location: "NAC", StatusOnly: true, Descending: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(got))
	}
	if got[0].AvgIceThickness != 0 || got[0].SafetyStatus != types.StatusSafe {
		t.Errorf("unexpected projection: %+v", got[0])
	}
}

func TestQueryUnknownLocation(t *testing.T) {
	s := NewWithDB(openTestDB(t))

	got, err := s.Query(context.Background(), storage.Query{Location: "HogsBack", Limit: 1, Descending: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no readings, got %d", len(got))
	}
}

func TestQueryOrdersMixedTimestampFormats(t *testing.T) {
	db := openTestDB(t)
	insert := `INSERT INTO ice_readings (id, location, window_end_time, safety_status) VALUES (?, ?, ?, ?)`

	rows := []struct{ id, ts string }{
		{"f1", "2025-01-15T12:00:00Z"},
		{"f2", "2025-01-15T12:00:00.5000000Z"},
		{"f3", "2025-01-15 12:00:01"},
		{"f4", "2025-01-15T11:59:59.9"},
	}
	for _, r := range rows {
		if _, err := db.Exec(insert, r.id, "FifthAvenue", r.ts, "Safe"); err != nil {
			t.Fatalf("insert %s: %v", r.id, err)
		}
	}
	s := NewWithDB(db)

	latest, err := s.Query(context.Background(), storage.Query{Location: "FifthAvenue", Limit: 1, Descending: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(latest) != 1 || latest[0].ID != "f3" {
		t.Fatalf("expected f3 as newest, got %+v", latest)
	}

	asc, err := s.Query(context.Background(), storage.Query{Location: "FifthAvenue"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"f4", "f1", "f2", "f3"}
	if len(asc) != len(want) {
		t.Fatalf("expected %d readings, got %d", len(want), len(asc))
	}
	for i, id := range want {
		if asc[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, asc[i].ID)
		}
		if i > 0 && asc[i].WindowEndTime.Before(asc[i-1].WindowEndTime) {
			t.Errorf("position %d is older than its predecessor", i)
		}
	}
}

func TestBuildQuery(t *testing.T) {
	sql, args := BuildQuery(storage.Query{Location: "NAC", Limit: 12, Descending: true})
	want := "SELECT id, location, window_end_time, avg_ice_thickness, avg_surface_temperature, avg_snow_accumulation, max_snow_accumulation, safety_status, reading_count FROM ice_readings WHERE location = ? ORDER BY julianday(window_end_time) DESC, id DESC LIMIT ?"
	if sql != want {
		t.Errorf("sql = %q\nexpected %q", sql, want)
	}
	if len(args) != 2 || args[0] != "NAC" || args[1] != 12 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestProvisionThenOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.db")
	ctx := context.Background()

	if err := Provision(ctx, path); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	// running it twice is harmless
	if err := Provision(ctx, path); err != nil {
		t.Fatalf("second Provision: %v", err)
	}

	s, err := New(config.SQLiteData{Path: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	readings, err := s.Query(ctx, storage.Query{Location: "NAC", Limit: 1, Descending: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(readings) != 0 {
		t.Errorf("expected an empty table, got %d readings", len(readings))
	}
}
