// Package locations maps between the display names shown on the dashboard
// and the identifiers the reading store uses.
package locations

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/canalwatch/icewatch/pkg/config"
)

// Location is one monitored point on the canal
type Location struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Key   string `json:"key"`
	Color string `json:"color,omitempty"`
}

// Mapper is a fixed bijection between display names and storage ids.
// Lookups are total: unknown input is returned verbatim.
type Mapper struct {
	all    []Location
	toDB   map[string]string
	toName map[string]string
}

var nonLetters = regexp.MustCompile(`[^a-z]`)

// NewMapper builds a Mapper from the configured location list
func NewMapper(locs []config.LocationData) (*Mapper, error) {
	m := &Mapper{
		toDB:   make(map[string]string, len(locs)),
		toName: make(map[string]string, len(locs)),
	}

	for _, l := range locs {
		if _, dup := m.toDB[l.Name]; dup {
			return nil, fmt.Errorf("duplicate location name %q", l.Name)
		}
		if _, dup := m.toName[l.ID]; dup {
			return nil, fmt.Errorf("duplicate location id %q", l.ID)
		}
		m.toDB[l.Name] = l.ID
		m.toName[l.ID] = l.Name

		key := l.Key
		if key == "" {
			key = nonLetters.ReplaceAllString(strings.ToLower(l.Name), "")
		}
		m.all = append(m.all, Location{Name: l.Name, ID: l.ID, Key: key, Color: l.Color})
	}

	return m, nil
}

// ToDB returns the storage id for a display name
func (m *Mapper) ToDB(name string) string {
	if id, ok := m.toDB[name]; ok {
		return id
	}
	return name
}

// ToName returns the display name for a storage id
func (m *Mapper) ToName(id string) string {
	if name, ok := m.toName[id]; ok {
		return name
	}
	return id
}

// All returns the locations in configured order
func (m *Mapper) All() []Location {
	return append([]Location(nil), m.all...)
}
