// Package storage defines the read-only reading store abstraction and the
// helpers its backends share.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/canalwatch/icewatch/internal/types"
)

// ErrNotConfigured is returned by every query against a store whose
// connection settings are missing.
var ErrNotConfigured = errors.New("reading store is not configured")

// ErrUnknownBackend is returned when a store backend name is not recognized
var ErrUnknownBackend = errors.New("unknown store backend")

// Query selects readings. Backends push as much of it down to the database
// as they can and use Apply for the rest.
type Query struct {
	// Location is a storage id; empty selects every location
	Location string
	// Limit caps the number of readings; 0 means no cap
	Limit int
	// Descending orders by windowEndTime newest first
	Descending bool
	// StatusOnly projects location, safetyStatus and windowEndTime
	StatusOnly bool
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString("location=")
	if q.Location == "" {
		b.WriteString("*")
	} else {
		b.WriteString(q.Location)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " limit=%d", q.Limit)
	}
	if q.Descending {
		b.WriteString(" order=desc")
	} else {
		b.WriteString(" order=asc")
	}
	if q.StatusOnly {
		b.WriteString(" projection=status")
	}
	return b.String()
}

// ReadingStore is implemented by every storage backend
type ReadingStore interface {
	// Query returns readings carrying storage ids in Location
	Query(ctx context.Context, q Query) ([]types.Reading, error)
	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
	// Backend names the backend type
	Backend() string
	Close() error
}

type unconfiguredStore struct {
	backend string
	missing []string
}

// NewUnconfigured returns a store that fails every query with ErrNotConfigured
func NewUnconfigured(backend string, missing []string) ReadingStore {
	return &unconfiguredStore{backend: backend, missing: missing}
}

func (u *unconfiguredStore) Query(context.Context, Query) ([]types.Reading, error) {
	return nil, fmt.Errorf("%s missing %s: %w", u.backend, strings.Join(u.missing, ", "), ErrNotConfigured)
}

func (u *unconfiguredStore) Ping(ctx context.Context) error {
	_, err := u.Query(ctx, Query{})
	return err
}

func (u *unconfiguredStore) Backend() string {
	return u.backend
}

func (u *unconfiguredStore) Close() error {
	return nil
}
