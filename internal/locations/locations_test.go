package locations

import (
	"testing"

	"github.com/canalwatch/icewatch/pkg/config"
)

func TestRoundTrip(t *testing.T) {
	m, err := NewMapper(config.DefaultLocations())
	if err != nil {
		t.Fatal(err)
	}

	pairs := map[string]string{
		"Dow's Lake":   "DowsLake",
		"Fifth Avenue": "FifthAvenue",
		"NAC":          "NAC",
	}

	for name, id := range pairs {
		if got := m.ToDB(name); got != id {
			t.Errorf("ToDB(%q) = %q, expected %q", name, got, id)
		}
		if got := m.ToName(id); got != name {
			t.Errorf("ToName(%q) = %q, expected %q", id, got, name)
		}
		if got := m.ToDB(m.ToName(id)); got != id {
			t.Errorf("round trip of %q gave %q", id, got)
		}
	}
}

func TestUnknownPassesThrough(t *testing.T) {
	m, err := NewMapper(config.DefaultLocations())
	if err != nil {
		t.Fatal(err)
	}

	for _, in := range []string{"Hog's Back", "", "dowslake"} {
		if got := m.ToDB(in); got != in {
			t.Errorf("ToDB(%q) = %q, expected passthrough", in, got)
		}
		if got := m.ToName(in); got != in {
			t.Errorf("ToName(%q) = %q, expected passthrough", in, got)
		}
	}
}

func TestAllPreservesOrderAndKeys(t *testing.T) {
	m, err := NewMapper([]config.LocationData{
		{Name: "NAC", ID: "NAC", Key: "nac"},
		{Name: "Hog's Back", ID: "HogsBack"},
	})
	if err != nil {
		t.Fatal(err)
	}

	all := m.All()
	if len(all) != 2 || all[0].Name != "NAC" || all[1].Name != "Hog's Back" {
		t.Fatalf("unexpected order: %+v", all)
	}
	if all[1].Key != "hogsback" {
		t.Errorf("expected derived key hogsback, got %q", all[1].Key)
	}
}

func TestDuplicatesRejected(t *testing.T) {
	_, err := NewMapper([]config.LocationData{
		{Name: "NAC", ID: "NAC"},
		{Name: "National Arts Centre", ID: "NAC"},
	})
	if err == nil {
		t.Error("expected duplicate id to be rejected")
	}
}
