// Package dashboard is a Go client for the icewatch API. It mirrors what the
// browser dashboard does on every refresh and can drive a terminal view.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/canalwatch/icewatch/internal/locations"
	"github.com/canalwatch/icewatch/internal/types"
)

// APIError is a non-success envelope returned by the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("icewatch API returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a running icewatch server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. A nil httpClient gets a client
// with a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`

	OverallStatus types.OverallStatus    `json:"overallStatus"`
	Locations     []types.LocationStatus `json:"locations"`
}

// Locations returns the server's configured locations
func (c *Client) Locations(ctx context.Context) ([]locations.Location, error) {
	var locs []locations.Location
	if err := c.getData(ctx, "/api/locations", &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// Latest returns the newest reading per location
func (c *Client) Latest(ctx context.Context) ([]types.Reading, error) {
	var readings []types.Reading
	if err := c.getData(ctx, "/api/latest", &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// Status returns the overall status and the per-location statuses behind it
func (c *Client) Status(ctx context.Context) (types.OverallStatus, []types.LocationStatus, error) {
	env, err := c.get(ctx, "/api/status")
	if err != nil {
		return "", nil, err
	}
	return env.OverallStatus, env.Locations, nil
}

// History returns up to limit readings for a location, oldest first. A limit
// of 0 leaves the choice to the server.
func (c *Client) History(ctx context.Context, location string, limit int) ([]types.Reading, error) {
	path := "/api/history/" + url.PathEscape(location)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var readings []types.Reading
	if err := c.getData(ctx, path, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

func (c *Client) getData(ctx context.Context, path string, dst any) error {
	env, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	env := &envelope{}
	if err := json.NewDecoder(resp.Body).Decode(env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return env, nil
}

// IsAPIError reports whether err came from a non-success server response
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
