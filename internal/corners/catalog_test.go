package corners_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/campday/cornerquest/internal/corners"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := corners.DefaultCatalog()
	if err != nil {
		t.Fatalf("loading default catalog: %v", err)
	}

	if got := len(c.Stations()); got != 10 {
		t.Fatalf("stations = %d, want 10", got)
	}
	if got := len(c.Groups()); got != 20 {
		t.Fatalf("groups = %d, want 20", got)
	}

	want := []int{4, 5, 1, 2, 3, 9, 10, 6, 7, 8}
	if got := c.RotationForGroup(7); !slices.Equal(got, want) {
		t.Errorf("rotation(7) = %v, want %v", got, want)
	}

	s, err := c.StationByID(4)
	if err != nil {
		t.Fatalf("station 4: %v", err)
	}
	if !slices.Contains(s.Staff, s.Lead) {
		t.Errorf("lead %q not in staff %v", s.Lead, s.Staff)
	}
}

func TestCatalogLookupsNotFound(t *testing.T) {
	c, err := corners.DefaultCatalog()
	if err != nil {
		t.Fatalf("loading default catalog: %v", err)
	}

	if _, err := c.StationByID(99); !errors.Is(err, corners.ErrNotFound) {
		t.Errorf("StationByID(99) error = %v, want ErrNotFound", err)
	}
	if got := c.RotationForGroup(99); len(got) != 0 {
		t.Errorf("RotationForGroup(99) = %v, want empty", got)
	}
	if c.HasGroup(0) {
		t.Error("HasGroup(0) = true, want false")
	}
	if _, ok := c.StationAt(7, 10); ok {
		t.Error("StationAt(7, 10) ok = true, want false")
	}
	if _, ok := c.NextStation(7, 9); ok {
		t.Error("NextStation(7, 9) ok = true, want false")
	}
}

func TestRotationIsCopied(t *testing.T) {
	c, err := corners.DefaultCatalog()
	if err != nil {
		t.Fatalf("loading default catalog: %v", err)
	}

	rot := c.RotationForGroup(1)
	rot[0] = 99
	if got := c.RotationForGroup(1)[0]; got != 1 {
		t.Errorf("rotation mutated through returned slice: first = %d", got)
	}
}

func TestStationAtAndNext(t *testing.T) {
	c, err := corners.DefaultCatalog()
	if err != nil {
		t.Fatalf("loading default catalog: %v", err)
	}

	cur, ok := c.StationAt(7, 0)
	if !ok || cur.ID != 4 {
		t.Fatalf("StationAt(7, 0) = %d/%v, want 4/true", cur.ID, ok)
	}
	next, ok := c.NextStation(7, 0)
	if !ok || next.ID != 5 {
		t.Fatalf("NextStation(7, 0) = %d/%v, want 5/true", next.ID, ok)
	}
}

func TestNewCatalogValidation(t *testing.T) {
	stations := []corners.Station{
		{ID: 1, Name: "a", Staff: []string{"x"}, Lead: "x"},
		{ID: 2, Name: "b"},
	}

	tests := []struct {
		name      string
		stations  []corners.Station
		rotations []corners.Rotation
		wantErr   bool
	}{
		{
			name:      "valid",
			stations:  stations,
			rotations: []corners.Rotation{{GroupID: 1, Stations: []int{2, 1}}},
		},
		{
			name:    "no stations",
			wantErr: true,
		},
		{
			name:     "duplicate station",
			stations: []corners.Station{{ID: 1}, {ID: 1}},
			wantErr:  true,
		},
		{
			name:     "non-positive id",
			stations: []corners.Station{{ID: 0, Name: "zero"}},
			wantErr:  true,
		},
		{
			name:     "lead not on staff",
			stations: []corners.Station{{ID: 1, Staff: []string{"x"}, Lead: "y"}},
			wantErr:  true,
		},
		{
			name:      "short rotation",
			stations:  stations,
			rotations: []corners.Rotation{{GroupID: 1, Stations: []int{1}}},
			wantErr:   true,
		},
		{
			name:      "repeated station in rotation",
			stations:  stations,
			rotations: []corners.Rotation{{GroupID: 1, Stations: []int{1, 1}}},
			wantErr:   true,
		},
		{
			name:     "duplicate group",
			stations: stations,
			rotations: []corners.Rotation{
				{GroupID: 1, Stations: []int{1, 2}},
				{GroupID: 1, Stations: []int{2, 1}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := corners.NewCatalog(tt.stations, tt.rotations)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseCatalogRejectsGarbage(t *testing.T) {
	if _, err := corners.ParseCatalog([]byte("{")); err == nil {
		t.Fatal("expected decode error")
	}
}
