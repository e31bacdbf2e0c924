// Package tilecoord addresses tiles of a spherical panorama pyramid.
//
// The panorama is parameterized by an azimuth angle in [0, 2*pi)
// increasing eastward and a polar angle in [0, pi] measured from the
// top pole down. Level l subdivides the sphere into 2^(l+1) columns and
// 2^l rows, so every tile covers a square angular span. Columns wrap at
// the full-circle seam; rows clamp at the poles.
package tilecoord

import (
	"fmt"
	"math"
)

const (
	// MaxLevel bounds the pyramid depth so column counts fit in uint32.
	MaxLevel = 30

	fullCircle = 2 * math.Pi
	halfCircle = math.Pi
)

// Coordinate addresses one tile of the pyramid.
type Coordinate struct {
	Level  uint32
	Column uint32
	Row    uint32
}

// Cols returns the number of columns at a level.
func Cols(level uint32) uint32 {
	return 1 << (level + 1)
}

// Rows returns the number of rows at a level.
func Rows(level uint32) uint32 {
	return 1 << level
}

// New creates a coordinate, validating ranges for the level.
func New(level, column, row uint32) (Coordinate, error) {
	if level > MaxLevel {
		return Coordinate{}, fmt.Errorf("level %d out of range [0, %d]", level, MaxLevel)
	}
	if column >= Cols(level) || row >= Rows(level) {
		return Coordinate{}, fmt.Errorf("column/row (%d, %d) out of range for level %d", column, row, level)
	}
	return Coordinate{Level: level, Column: column, Row: row}, nil
}

// Valid reports whether the coordinate is inside the pyramid.
func (c Coordinate) Valid() bool {
	return c.Level <= MaxLevel && c.Column < Cols(c.Level) && c.Row < Rows(c.Level)
}

// Key returns the stable cache key for the coordinate. The key and the
// (level, column, row) triple determine each other uniquely.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%d/%d/%d", c.Level, c.Column, c.Row)
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (Coordinate, error) {
	var level, column, row uint32
	if _, err := fmt.Sscanf(key, "%d/%d/%d", &level, &column, &row); err != nil {
		return Coordinate{}, fmt.Errorf("malformed tile key %q: %w", key, err)
	}
	c := Coordinate{Level: level, Column: column, Row: row}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("tile key %q out of range", key)
	}
	return c, nil
}

func (c Coordinate) String() string {
	return c.Key()
}

// azimuthSpan returns the angular width of one tile at a level.
func azimuthSpan(level uint32) float64 {
	return fullCircle / float64(Cols(level))
}

// polarSpan returns the angular height of one tile at a level.
func polarSpan(level uint32) float64 {
	return halfCircle / float64(Rows(level))
}

// wrapAzimuth maps any azimuth into [0, fullCircle).
func wrapAzimuth(az float64) float64 {
	az = math.Mod(az, fullCircle)
	if az < 0 {
		az += fullCircle
	}
	return az
}

// clampPolar maps any polar angle into [0, halfCircle].
func clampPolar(polar float64) float64 {
	if polar < 0 {
		return 0
	}
	if polar > halfCircle {
		return halfCircle
	}
	return polar
}

// FromSpherical returns the tile owning the point (azimuth, polar) at
// the given level. The azimuth wraps, so a point at or beyond the seam
// aliases back into range; the polar angle clamps at the poles.
func FromSpherical(azimuth, polar float64, level uint32) Coordinate {
	cols := Cols(level)
	rows := Rows(level)

	column := uint32(wrapAzimuth(azimuth) / azimuthSpan(level))
	if column >= cols {
		column = 0 // float rounding at the seam
	}

	row := uint32(clampPolar(polar) / polarSpan(level))
	if row >= rows {
		row = rows - 1
	}

	return Coordinate{Level: level, Column: column, Row: row}
}

// SphericalCenter returns the tile center as (azimuth, polar).
func (c Coordinate) SphericalCenter() (azimuth, polar float64) {
	azimuth = (float64(c.Column) + 0.5) * azimuthSpan(c.Level)
	polar = (float64(c.Row) + 0.5) * polarSpan(c.Level)
	return azimuth, polar
}

// Extent is a rectangular spherical region. An extent whose MaxAzimuth
// is smaller than its MinAzimuth straddles the full-circle seam.
type Extent struct {
	MinAzimuth float64
	MinPolar   float64
	MaxAzimuth float64
	MaxPolar   float64
}

// SphericalExtent returns the region covered by the tile.
func (c Coordinate) SphericalExtent() Extent {
	azSpan := azimuthSpan(c.Level)
	polSpan := polarSpan(c.Level)
	return Extent{
		MinAzimuth: float64(c.Column) * azSpan,
		MinPolar:   float64(c.Row) * polSpan,
		MaxAzimuth: float64(c.Column+1) * azSpan,
		MaxPolar:   float64(c.Row+1) * polSpan,
	}
}

// CoordinatesInExtent enumerates every tile at the level whose coverage
// intersects the extent. An extent straddling the seam is split into
// the two in-range column spans; an azimuth span of a full circle or
// more yields every column.
func CoordinatesInExtent(ext Extent, level uint32) []Coordinate {
	rows := Rows(level)
	cols := Cols(level)
	polSpan := polarSpan(level)

	minRow := uint32(clampPolar(ext.MinPolar) / polSpan)
	maxRow := uint32(clampPolar(ext.MaxPolar) / polSpan)
	if minRow >= rows {
		minRow = rows - 1
	}
	if maxRow >= rows {
		maxRow = rows - 1
	}

	minAz := wrapAzimuth(ext.MinAzimuth)
	maxAz := wrapAzimuth(ext.MaxAzimuth)
	minCol := FromSpherical(minAz, 0, level).Column
	maxCol := FromSpherical(maxAz, 0, level).Column

	var spans [][2]uint32
	switch {
	case ext.MaxAzimuth-ext.MinAzimuth >= fullCircle:
		// A span of a full circle or more covers every column. Checked
		// on the unwrapped angles: wrapping maps an exact full circle
		// onto a zero span.
		spans = [][2]uint32{{0, cols - 1}}
	case maxAz < minAz:
		// Straddles the seam: enumerate up to the last column, then
		// from the first.
		spans = [][2]uint32{{minCol, cols - 1}, {0, maxCol}}
	default:
		spans = [][2]uint32{{minCol, maxCol}}
	}

	var tiles []Coordinate
	for _, span := range spans {
		for col := span[0]; col <= span[1]; col++ {
			for row := minRow; row <= maxRow; row++ {
				tiles = append(tiles, Coordinate{Level: level, Column: col, Row: row})
			}
		}
	}

	return tiles
}

// DistanceTo returns the great-circle angular distance in radians from
// a point (azimuth, polar) to the tile center. Callers use this for
// priority and level-of-detail decisions.
func (c Coordinate) DistanceTo(azimuth, polar float64) float64 {
	caz, cpol := c.SphericalCenter()

	az := wrapAzimuth(azimuth)
	pol := clampPolar(polar)

	// Dot product of the two unit direction vectors.
	dot := math.Sin(pol)*math.Sin(cpol)*math.Cos(az-caz) + math.Cos(pol)*math.Cos(cpol)
	if dot > 1 {
		dot = 1
	}
	if dot < -1 {
		dot = -1
	}
	return math.Acos(dot)
}

// Parent returns the coordinate of the covering tile one level up.
// Level 0 tiles are their own parent.
func (c Coordinate) Parent() Coordinate {
	if c.Level == 0 {
		return c
	}
	return Coordinate{Level: c.Level - 1, Column: c.Column / 2, Row: c.Row / 2}
}

// Children returns the four coordinates subdividing the tile one level
// down, or nil at the maximum level.
func (c Coordinate) Children() []Coordinate {
	if c.Level >= MaxLevel {
		return nil
	}
	l := c.Level + 1
	col := c.Column * 2
	row := c.Row * 2
	return []Coordinate{
		{Level: l, Column: col, Row: row},
		{Level: l, Column: col + 1, Row: row},
		{Level: l, Column: col, Row: row + 1},
		{Level: l, Column: col + 1, Row: row + 1},
	}
}
