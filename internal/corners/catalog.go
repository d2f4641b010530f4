package corners

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

//go:embed catalog.json
var defaultCatalog []byte

type catalogFile struct {
	Stations  []Station  `json:"stations"`
	Rotations []Rotation `json:"rotations"`
}

// Catalog is the immutable station registry and rotation table. It is
// built once at startup and safe for concurrent reads.
type Catalog struct {
	stations  map[int]Station
	order     []int
	rotations map[int][]int
	groups    []int
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalogFile reads a catalog with the same JSON shape as the default.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return NewCatalog(f.Stations, f.Rotations)
}

// NewCatalog validates stations and rotations: station ids are unique and
// positive, and every rotation visits each station exactly once.
func NewCatalog(stations []Station, rotations []Rotation) (*Catalog, error) {
	if len(stations) == 0 {
		return nil, fmt.Errorf("catalog has no stations")
	}

	c := &Catalog{
		stations:  make(map[int]Station, len(stations)),
		rotations: make(map[int][]int, len(rotations)),
	}
	for _, s := range stations {
		if s.ID <= 0 {
			return nil, fmt.Errorf("station %q: id must be positive", s.Name)
		}
		if _, dup := c.stations[s.ID]; dup {
			return nil, fmt.Errorf("station %d: duplicate id", s.ID)
		}
		if len(s.Staff) > 0 && !slices.Contains(s.Staff, s.Lead) {
			return nil, fmt.Errorf("station %d: lead %q is not on staff", s.ID, s.Lead)
		}
		c.stations[s.ID] = s
		c.order = append(c.order, s.ID)
	}
	slices.Sort(c.order)

	for _, r := range rotations {
		if _, dup := c.rotations[r.GroupID]; dup {
			return nil, fmt.Errorf("group %d: duplicate rotation", r.GroupID)
		}
		if len(r.Stations) != len(c.order) {
			return nil, fmt.Errorf("group %d: rotation has %d stations, want %d", r.GroupID, len(r.Stations), len(c.order))
		}
		sorted := slices.Clone(r.Stations)
		slices.Sort(sorted)
		if !slices.Equal(sorted, c.order) {
			return nil, fmt.Errorf("group %d: rotation is not a permutation of the stations", r.GroupID)
		}
		c.rotations[r.GroupID] = slices.Clone(r.Stations)
		c.groups = append(c.groups, r.GroupID)
	}
	slices.Sort(c.groups)

	return c, nil
}

// StationByID returns the station or ErrNotFound.
func (c *Catalog) StationByID(id int) (Station, error) {
	s, ok := c.stations[id]
	if !ok {
		return Station{}, fmt.Errorf("station %d: %w", id, ErrNotFound)
	}
	return s, nil
}

// RotationForGroup returns a copy of the group's rotation, empty if unknown.
func (c *Catalog) RotationForGroup(groupID int) []int {
	return slices.Clone(c.rotations[groupID])
}

func (c *Catalog) HasGroup(groupID int) bool {
	_, ok := c.rotations[groupID]
	return ok
}

// Groups returns every group id with a rotation, ascending.
func (c *Catalog) Groups() []int {
	return slices.Clone(c.groups)
}

// Stations returns all stations ordered by id.
func (c *Catalog) Stations() []Station {
	out := make([]Station, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.stations[id])
	}
	return out
}

// StationAt resolves the station a group visits at index.
func (c *Catalog) StationAt(groupID, index int) (Station, bool) {
	rot := c.rotations[groupID]
	if index < 0 || index >= len(rot) {
		return Station{}, false
	}
	s, ok := c.stations[rot[index]]
	return s, ok
}

// NextStation is the station after index, if any.
func (c *Catalog) NextStation(groupID, index int) (Station, bool) {
	return c.StationAt(groupID, index+1)
}
