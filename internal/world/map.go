// Package world provides the biome tile grid, its procedural generation,
// and per-tick resource regeneration.
package world

import "fmt"

// Resources is a per-tile quantity of each harvestable resource.
type Resources struct {
	Food      float64 `json:"food"`
	Wood      float64 `json:"wood"`
	Water     float64 `json:"water"`
	Materials float64 `json:"materials"`
}

// Tile is one grid cell. Resources never exceed Caps.
type Tile struct {
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Altitude    float64 `json:"altitude"`
	Temperature float64 `json:"temperature"` // ambient, after season and climate
	Humidity    float64 `json:"humidity"`    // ambient, after season and climate

	// Generated climate fields; ambient values are derived from these each tick.
	BaseTemperature float64 `json:"baseTemperature"`
	BaseHumidity    float64 `json:"baseHumidity"`

	Biome     Biome     `json:"biome"`
	Resources Resources `json:"resources"`
	Caps      Resources `json:"resourceCaps"`
}

// Map is a row-major grid of tiles.
type Map struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Seed   string `json:"seed"`
	Tiles  []Tile `json:"tiles"`
}

// NewMap allocates an empty grid.
func NewMap(width, height int, seed string) *Map {
	return &Map{
		Width:  width,
		Height: height,
		Seed:   seed,
		Tiles:  make([]Tile, width*height),
	}
}

// Index returns the slice index for (x, y).
func (m *Map) Index(x, y int) int {
	return y*m.Width + x
}

// InBounds reports whether (x, y) lies on the grid.
func (m *Map) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// At returns the tile at (x, y), or nil if out of bounds.
func (m *Map) At(x, y int) *Tile {
	if !m.InBounds(x, y) {
		return nil
	}
	return &m.Tiles[m.Index(x, y)]
}

// ClampX bounds x to the grid's columns.
func (m *Map) ClampX(x int) int {
	return min(max(x, 0), m.Width-1)
}

// ClampY bounds y to the grid's rows.
func (m *Map) ClampY(y int) int {
	return min(max(y, 0), m.Height-1)
}

// TileCount returns the number of tiles.
func (m *Map) TileCount() int {
	return len(m.Tiles)
}

// Clone returns a deep copy. Tiles hold only values so a slice copy suffices.
func (m *Map) Clone() *Map {
	out := *m
	out.Tiles = append([]Tile(nil), m.Tiles...)
	return &out
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(%dx%d, seed=%q)", m.Width, m.Height, m.Seed)
}

// Get returns the named resource.
func (r Resources) Get(kind string) float64 {
	switch kind {
	case "food":
		return r.Food
	case "wood":
		return r.Wood
	case "water":
		return r.Water
	case "materials":
		return r.Materials
	}
	return 0
}
