package responseformat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func TestWriteJSONWithStatus(t *testing.T) {
	f := NewFormatter()
	req := httptest.NewRequest("GET", "/api/latest", nil)
	w := httptest.NewRecorder()

	err := f.WriteResponseWithStatus(w, req, http.StatusInternalServerError,
		payload{Error: "Failed to fetch latest data"}, map[string]string{"Cache-Control": "no-cache"})
	if err != nil {
		t.Fatal(err)
	}

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Error("custom header was not written")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}

	var got payload
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Success || got.Error != "Failed to fetch latest data" {
		t.Errorf("unexpected body %+v", got)
	}
}

func TestWriteMsgPack(t *testing.T) {
	f := NewFormatter()
	req := httptest.NewRequest("GET", "/api/status?format=msgpack", nil)
	w := httptest.NewRecorder()

	if err := f.WriteResponse(w, req, payload{Success: true}, nil); err != nil {
		t.Fatal(err)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/x-msgpack" {
		t.Errorf("expected msgpack content type, got %s", ct)
	}

	var got map[string]any
	if err := msgpack.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["success"] != true {
		t.Errorf("expected json tag names in msgpack output, got %v", got)
	}
}
