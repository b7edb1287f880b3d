package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/canalwatch/icewatch/internal/types"
)

var t0 = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// fakeServer answers the API paths the poller uses
func fakeServer(t *testing.T, failHistory string) (*httptest.Server, *int32) {
	t.Helper()
	mux, calls := fakeMux(t, failHistory)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, calls
}

func fakeMux(t *testing.T, failHistory string) (*http.ServeMux, *int32) {
	t.Helper()
	var historyCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/locations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]string{
				{"name": "Dow's Lake", "id": "DowsLake", "key": "dows"},
				{"name": "NAC", "id": "NAC", "key": "nac"},
			},
		})
	})
	mux.HandleFunc("/api/latest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": []types.Reading{
				{Location: "Dow's Lake", AvgIceThickness: 31, SafetyStatus: types.StatusSafe, WindowEndTime: at(10)},
				{Location: "NAC", AvgIceThickness: 22, SafetyStatus: types.StatusCaution, WindowEndTime: at(5)},
			},
		})
	})
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"overallStatus": types.OverallCaution,
			"locations": []types.LocationStatus{
				{Location: "Dow's Lake", SafetyStatus: types.StatusSafe, WindowEndTime: at(10)},
				{Location: "NAC", SafetyStatus: types.StatusCaution, WindowEndTime: at(5)},
			},
		})
	})
	mux.HandleFunc("/api/history/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&historyCalls, 1)
		loc := strings.TrimPrefix(r.URL.Path, "/api/history/")
		if loc == failHistory {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   "Failed to fetch history",
			})
			return
		}
		if r.URL.Query().Get("limit") != "12" {
			t.Errorf("expected limit=12, got %q", r.URL.RawQuery)
		}

		var data []types.Reading
		switch loc {
		case "Dow's Lake":
			data = []types.Reading{
				{Location: loc, AvgIceThickness: 30, AvgSurfaceTemperature: -5, WindowEndTime: at(0)},
				{Location: loc, AvgIceThickness: 31, AvgSurfaceTemperature: -6, WindowEndTime: at(10)},
			}
		case "NAC":
			data = []types.Reading{
				{Location: loc, AvgIceThickness: 22, AvgSurfaceTemperature: -2, WindowEndTime: at(5)},
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
	})

	return mux, &historyCalls
}

func TestClientErrorEnvelope(t *testing.T) {
	srv, _ := fakeServer(t, "NAC")
	c := NewClient(srv.URL+"/", nil)

	_, err := c.History(context.Background(), "NAC", 12)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsAPIError(err) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if !strings.Contains(err.Error(), "Failed to fetch history") || !strings.Contains(err.Error(), "500") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestClientLocationsAndStatus(t *testing.T) {
	srv, _ := fakeServer(t, "")
	c := NewClient(srv.URL, srv.Client())

	locs, err := c.Locations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(locs) != 2 || locs[0].Name != "Dow's Lake" || locs[0].ID != "DowsLake" {
		t.Errorf("unexpected locations: %+v", locs)
	}

	overall, statuses, err := c.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if overall != types.OverallCaution || len(statuses) != 2 {
		t.Errorf("unexpected status: %s %+v", overall, statuses)
	}
}

func TestPollerRefresh(t *testing.T) {
	srv, calls := fakeServer(t, "")
	p := NewPoller(NewClient(srv.URL, srv.Client()), 12)

	snap, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.ChartErr != nil {
		t.Fatalf("unexpected chart error: %v", snap.ChartErr)
	}
	if len(snap.Latest) != 2 || snap.Overall != types.OverallCaution {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Errorf("expected 2 history calls, got %d", got)
	}
	if len(snap.Chart.Labels) != 3 {
		t.Fatalf("expected 3 merged labels, got %d", len(snap.Chart.Labels))
	}
}

func TestPollerHistoryFailureKeepsCards(t *testing.T) {
	srv, _ := fakeServer(t, "NAC")
	p := NewPoller(NewClient(srv.URL, srv.Client()), 12)

	snap, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.ChartErr == nil {
		t.Error("expected a chart error")
	}
	if len(snap.Latest) != 2 {
		t.Errorf("latest readings should survive a history failure, got %d", len(snap.Latest))
	}
	if len(snap.Chart.Labels) != 0 {
		t.Errorf("chart should be empty before any successful cycle, got %d labels", len(snap.Chart.Labels))
	}
}

func TestPollerRetriesLocationsAfterFailure(t *testing.T) {
	mux, _ := fakeMux(t, "")
	var locationCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/locations" && atomic.AddInt32(&locationCalls, 1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"success": false,
				"error":   "Service unavailable",
			})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	p := NewPoller(NewClient(srv.URL, srv.Client()), 12)

	tests := []struct {
		name      string
		wantErr   bool
		wantCards int
	}{
		{name: "locations unavailable", wantErr: true},
		{name: "locations recovered", wantCards: 2},
		{name: "locations cached", wantCards: 2},
	}
	for _, tt := range tests {
		snap, err := p.Refresh(context.Background())
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if len(snap.Latest) != tt.wantCards {
			t.Errorf("%s: expected %d cards, got %d", tt.name, tt.wantCards, len(snap.Latest))
		}
	}
	if got := atomic.LoadInt32(&locationCalls); got != 2 {
		t.Errorf("expected 2 locations calls, got %d", got)
	}
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	srv, _ := fakeServer(t, "")
	p := NewPoller(NewClient(srv.URL, srv.Client()), 12)

	ctx, cancel := context.WithCancel(context.Background())
	var cycles int32
	done := make(chan struct{})
	go func() {
		p.Run(ctx, 10*time.Millisecond, func(_ Snapshot, err error) {
			if err != nil && ctx.Err() == nil {
				t.Errorf("cycle error: %v", err)
			}
			if atomic.AddInt32(&cycles, 1) == 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if atomic.LoadInt32(&cycles) < 3 {
		t.Errorf("expected at least 3 cycles, got %d", atomic.LoadInt32(&cycles))
	}
}

func TestMergeSeries(t *testing.T) {
	histories := map[string][]types.Reading{
		"A": {
			{AvgIceThickness: 30, WindowEndTime: at(0)},
			{AvgIceThickness: 31, WindowEndTime: at(10)},
		},
		"B": {
			{AvgIceThickness: 20, WindowEndTime: at(5)},
			{AvgIceThickness: 21, WindowEndTime: at(10)},
		},
	}

	cd := MergeSeries(histories)

	want := []time.Time{at(0), at(5), at(10)}
	if len(cd.Labels) != len(want) {
		t.Fatalf("expected %d labels, got %d", len(want), len(cd.Labels))
	}
	for i := range want {
		if !cd.Labels[i].Equal(want[i]) {
			t.Errorf("label %d: expected %v, got %v", i, want[i], cd.Labels[i])
		}
	}

	tests := []struct {
		loc  string
		want []*float64
	}{
		{"A", []*float64{float64Ptr(30), nil, float64Ptr(31)}},
		{"B", []*float64{nil, float64Ptr(20), float64Ptr(21)}},
	}
	for _, tt := range tests {
		t.Run(tt.loc, func(t *testing.T) {
			got := cd.Ice[tt.loc]
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d points, got %d", len(tt.want), len(got))
			}
			for i := range tt.want {
				switch {
				case tt.want[i] == nil && got[i] != nil:
					t.Errorf("point %d: expected gap, got %v", i, *got[i])
				case tt.want[i] != nil && (got[i] == nil || *got[i] != *tt.want[i]):
					t.Errorf("point %d: expected %v, got %v", i, *tt.want[i], got[i])
				}
			}
		})
	}
}

func TestMergeSeriesEmpty(t *testing.T) {
	cd := MergeSeries(nil)
	if len(cd.Labels) != 0 || len(cd.Ice) != 0 {
		t.Errorf("expected empty chart, got %+v", cd)
	}
}
