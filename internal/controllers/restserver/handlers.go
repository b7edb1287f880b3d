package restserver

import (
	"net/http"
	"time"

	"github.com/canalwatch/icewatch/internal/constants"
	"github.com/canalwatch/icewatch/internal/log"
	"github.com/canalwatch/icewatch/internal/query"
	"github.com/canalwatch/icewatch/internal/types"
	"github.com/canalwatch/icewatch/pkg/config"
	"github.com/canalwatch/icewatch/pkg/responseformat"
	"github.com/gorilla/mux"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

var noCache = map[string]string{
	"Cache-Control": "no-cache, no-store, must-revalidate",
}

// GetLatest handles requests for the newest reading at every location
func (h *Handlers) GetLatest(w http.ResponseWriter, req *http.Request) {
	readings, err := h.controller.service.Latest(req.Context())
	if err != nil {
		h.writeError(w, req, http.StatusInternalServerError, errLatest, err)
		return
	}

	h.write(w, req, ReadingsResponse{Success: true, Data: nonNil(readings)})
}

// GetHistory handles requests for a location's recent readings, oldest first
func (h *Handlers) GetHistory(w http.ResponseWriter, req *http.Request) {
	location := mux.Vars(req)["location"]

	limit, err := h.controller.service.ParseLimit(req.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, query.ErrInvalidLimit.Error(), nil)
		return
	}

	readings, err := h.controller.service.History(req.Context(), location, limit)
	if err != nil {
		h.writeError(w, req, http.StatusInternalServerError, errHistory, err)
		return
	}

	h.write(w, req, ReadingsResponse{Success: true, Data: nonNil(readings)})
}

// GetStatus handles requests for the overall canal status
func (h *Handlers) GetStatus(w http.ResponseWriter, req *http.Request) {
	overall, locs, err := h.controller.service.Status(req.Context())
	if err != nil {
		h.writeError(w, req, http.StatusInternalServerError, errStatus, err)
		return
	}

	if locs == nil {
		locs = []types.LocationStatus{}
	}
	h.write(w, req, StatusResponse{
		Success:       true,
		OverallStatus: overall,
		Locations:     locs,
	})
}

// GetAll handles the diagnostic request for every stored reading
func (h *Handlers) GetAll(w http.ResponseWriter, req *http.Request) {
	readings, truncated, err := h.controller.service.All(req.Context())
	if err != nil {
		h.writeError(w, req, http.StatusInternalServerError, errAll, err)
		return
	}

	if truncated {
		log.Warnw("all-readings dump truncated", "rows", len(readings), "request_id", log.RequestID(req.Context()))
	}

	h.write(w, req, AllResponse{
		Success:   true,
		Count:     len(readings),
		Truncated: truncated,
		Data:      nonNil(readings),
	})
}

// GetLocations returns the configured locations
func (h *Handlers) GetLocations(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, LocationsResponse{
		Success: true,
		Data:    h.controller.service.Locations(),
	}, map[string]string{"Cache-Control": "max-age=300"})
}

// GetTrend returns least-squares slopes over a location's history
func (h *Handlers) GetTrend(w http.ResponseWriter, req *http.Request) {
	location := mux.Vars(req)["location"]

	limit, err := h.controller.service.ParseLimit(req.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, query.ErrInvalidLimit.Error(), nil)
		return
	}

	trend, err := h.controller.service.Trend(req.Context(), location, limit)
	if err != nil {
		h.writeError(w, req, http.StatusInternalServerError, errTrend, err)
		return
	}

	h.write(w, req, TrendResponse{Success: true, Data: trend})
}

// GetHealth reports liveness and store configuration presence
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	sc := h.controller.storeConfig
	store := StoreHealth{Backend: sc.Backend}

	switch sc.Backend {
	case config.BackendCosmos:
		store.Endpoint = presence(sc.Cosmos.Endpoint)
		store.Key = presence(sc.Cosmos.Key)
		store.Database = sc.Cosmos.Database
		store.Container = sc.Cosmos.Container
	case config.BackendTimescaleDB:
		store.Endpoint = presence(sc.TimescaleDB.ConnectionString)
		store.Container = sc.TimescaleDB.Table
	case config.BackendSQLite:
		store.Endpoint = presence(sc.SQLite.Path)
	}

	store.Reachable = "unknown"
	if h.controller.health != nil {
		hs := h.controller.health.Status()
		store.Reachable = hs.Status
		if !hs.LastCheck.IsZero() {
			store.LastCheck = &hs.LastCheck
		}
	}

	h.write(w, req, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   constants.Version,
		Store:     store,
	})
}

// NotFound answers unknown API paths with the JSON error envelope
func (h *Handlers) NotFound(w http.ResponseWriter, req *http.Request) {
	h.writeError(w, req, http.StatusNotFound, errNotFound, nil)
}

// ServeIndex serves the dashboard page
func (h *Handlers) ServeIndex(w http.ResponseWriter, req *http.Request) {
	templateData := struct {
		PageTitle      string
		RefreshSeconds int
		Version        string
	}{
		PageTitle:      h.controller.dashboard.PageTitle,
		RefreshSeconds: h.controller.dashboard.RefreshSeconds,
		Version:        constants.Version,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := h.controller.indexView.Execute(w, templateData)
	if err != nil {
		log.Error("error executing dashboard template:", err)
		return
	}
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data, noCache); err != nil {
		log.Errorf("error encoding response for %s: %v", req.URL.Path, err)
	}
}

// writeError logs cause (if any) in full and sends only the generic message
func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, status int, message string, cause error) {
	if cause != nil {
		log.Errorw(message,
			"error", cause,
			"path", req.URL.Path,
			"request_id", log.RequestID(req.Context()),
			"canceled", req.Context().Err() != nil,
		)
	}

	err := h.formatter.WriteResponseWithStatus(w, req, status, ErrorResponse{
		Success: false,
		Error:   message,
	}, noCache)
	if err != nil {
		log.Errorf("error encoding error response for %s: %v", req.URL.Path, err)
	}
}

func nonNil(rs []types.Reading) []types.Reading {
	if rs == nil {
		return []types.Reading{}
	}
	return rs
}
