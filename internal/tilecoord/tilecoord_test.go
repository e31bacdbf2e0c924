package tilecoord_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"panorama-viewer/internal/tilecoord"
)

func TestKeyRoundTrip(t *testing.T) {
	for level := uint32(0); level < 8; level++ {
		for _, column := range []uint32{0, tilecoord.Cols(level) - 1} {
			for _, row := range []uint32{0, tilecoord.Rows(level) - 1} {
				coord := tilecoord.Coordinate{Level: level, Column: column, Row: row}
				parsed, err := tilecoord.ParseKey(coord.Key())
				if err != nil {
					t.Fatalf("ParseKey(%q): %v", coord.Key(), err)
				}
				if diff := cmp.Diff(coord, parsed); diff != "" {
					t.Errorf("ParseKey(Key(%v)) mismatch (-want+got):\n%v", coord, diff)
				}
			}
		}
	}
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	for _, key := range []string{"", "1/2", "a/b/c", "1/4/0", "0/0/5"} {
		if _, err := tilecoord.ParseKey(key); err == nil {
			t.Errorf("ParseKey(%q) expected error", key)
		}
	}
}

func TestFromSpherical(t *testing.T) {
	tests := []struct {
		name    string
		azimuth float64
		polar   float64
		level   uint32
		want    tilecoord.Coordinate
	}{
		{"origin level 0", 0, 0, 0, tilecoord.Coordinate{Level: 0, Column: 0, Row: 0}},
		{"east half level 0", math.Pi + 0.1, 0.1, 0, tilecoord.Coordinate{Level: 0, Column: 1, Row: 0}},
		{"wraps at full circle", 2 * math.Pi, 0.1, 1, tilecoord.Coordinate{Level: 1, Column: 0, Row: 0}},
		{"wraps beyond full circle", 2*math.Pi + 0.1, 0.1, 1, tilecoord.Coordinate{Level: 1, Column: 0, Row: 0}},
		{"wraps negative azimuth", -0.1, 0.1, 1, tilecoord.Coordinate{Level: 1, Column: 3, Row: 0}},
		{"clamps at bottom pole", 0.1, math.Pi, 2, tilecoord.Coordinate{Level: 2, Column: 0, Row: 3}},
		{"clamps beyond bottom pole", 0.1, math.Pi + 1, 2, tilecoord.Coordinate{Level: 2, Column: 0, Row: 3}},
		{"clamps above top pole", 0.1, -1, 2, tilecoord.Coordinate{Level: 2, Column: 0, Row: 0}},
		{"level 2 interior", math.Pi, math.Pi / 2, 2, tilecoord.Coordinate{Level: 2, Column: 4, Row: 2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tilecoord.FromSpherical(tc.azimuth, tc.polar, tc.level)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("FromSpherical(%v, %v, %d) mismatch (-want+got):\n%v", tc.azimuth, tc.polar, tc.level, diff)
			}
		})
	}
}

func TestCenterRoundTrip(t *testing.T) {
	for level := uint32(0); level < 6; level++ {
		for column := uint32(0); column < tilecoord.Cols(level); column++ {
			for row := uint32(0); row < tilecoord.Rows(level); row++ {
				coord := tilecoord.Coordinate{Level: level, Column: column, Row: row}
				az, pol := coord.SphericalCenter()
				if diff := cmp.Diff(coord, tilecoord.FromSpherical(az, pol, level)); diff != "" {
					t.Fatalf("FromSpherical(SphericalCenter(%v)) mismatch (-want+got):\n%v", coord, diff)
				}
			}
		}
	}
}

func TestSphericalExtentCoversCenter(t *testing.T) {
	coord := tilecoord.Coordinate{Level: 3, Column: 5, Row: 2}
	ext := coord.SphericalExtent()
	az, pol := coord.SphericalCenter()

	if az <= ext.MinAzimuth || az >= ext.MaxAzimuth {
		t.Errorf("center azimuth %v outside extent [%v, %v]", az, ext.MinAzimuth, ext.MaxAzimuth)
	}
	if pol <= ext.MinPolar || pol >= ext.MaxPolar {
		t.Errorf("center polar %v outside extent [%v, %v]", pol, ext.MinPolar, ext.MaxPolar)
	}
}

func TestCoordinatesInExtent(t *testing.T) {
	// Level 1 has 4 columns and 2 rows; each tile spans pi/2 in both
	// axes.
	full := tilecoord.CoordinatesInExtent(tilecoord.Extent{
		MinAzimuth: 0, MinPolar: 0,
		MaxAzimuth: 2*math.Pi - 0.001, MaxPolar: math.Pi,
	}, 1)
	if len(full) != 8 {
		t.Fatalf("full extent at level 1: got %d tiles, want 8", len(full))
	}

	single := tilecoord.CoordinatesInExtent(tilecoord.Extent{
		MinAzimuth: 0.1, MinPolar: 0.1,
		MaxAzimuth: 0.2, MaxPolar: 0.2,
	}, 1)
	want := []tilecoord.Coordinate{{Level: 1, Column: 0, Row: 0}}
	if diff := cmp.Diff(want, single); diff != "" {
		t.Errorf("small extent mismatch (-want+got):\n%v", diff)
	}
}

func TestCoordinatesInExtentFullCircle(t *testing.T) {
	// An azimuth span of exactly one full circle wraps onto a zero
	// span; it must still enumerate every column.
	tests := []struct {
		name  string
		minAz float64
		maxAz float64
	}{
		{"exact full circle", 0, 2 * math.Pi},
		{"full circle off the seam", 1.25, 1.25 + 2*math.Pi},
		{"more than full circle", 0.5, 0.5 + 3*math.Pi},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tilecoord.CoordinatesInExtent(tilecoord.Extent{
				MinAzimuth: tc.minAz, MinPolar: 0,
				MaxAzimuth: tc.maxAz, MaxPolar: math.Pi,
			}, 1)
			if len(got) != 8 {
				t.Fatalf("got %d tiles, want 8", len(got))
			}
			seen := make(map[string]bool, len(got))
			for _, coord := range got {
				seen[coord.Key()] = true
			}
			if len(seen) != 8 {
				t.Errorf("got %d distinct tiles, want 8", len(seen))
			}
		})
	}
}

func TestCoordinatesInExtentStraddlesSeam(t *testing.T) {
	// From just before the seam to just after it: the last and first
	// columns, top row only.
	got := tilecoord.CoordinatesInExtent(tilecoord.Extent{
		MinAzimuth: 2*math.Pi - 0.1, MinPolar: 0.1,
		MaxAzimuth: 0.1, MaxPolar: 0.2,
	}, 1)
	want := []tilecoord.Coordinate{
		{Level: 1, Column: 3, Row: 0},
		{Level: 1, Column: 0, Row: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("seam extent mismatch (-want+got):\n%v", diff)
	}
}

func TestDistanceTo(t *testing.T) {
	coord := tilecoord.Coordinate{Level: 1, Column: 0, Row: 0}
	az, pol := coord.SphericalCenter()

	if d := coord.DistanceTo(az, pol); d > 1e-9 {
		t.Errorf("distance to own center = %v, want 0", d)
	}

	// The same angular offset reached across the seam must be as close
	// as the direct route.
	direct := coord.DistanceTo(az+0.3, pol)
	wrapped := coord.DistanceTo(az+0.3-2*math.Pi, pol)
	if math.Abs(direct-wrapped) > 1e-9 {
		t.Errorf("seam distance mismatch: direct %v, wrapped %v", direct, wrapped)
	}

	// Antipode of the center is half a circle away.
	anti := coord.DistanceTo(az+math.Pi, math.Pi-pol)
	if math.Abs(anti-math.Pi) > 1e-9 {
		t.Errorf("antipodal distance = %v, want pi", anti)
	}
}

func TestParentChildren(t *testing.T) {
	coord := tilecoord.Coordinate{Level: 2, Column: 5, Row: 3}
	if diff := cmp.Diff(tilecoord.Coordinate{Level: 1, Column: 2, Row: 1}, coord.Parent()); diff != "" {
		t.Errorf("Parent mismatch (-want+got):\n%v", diff)
	}

	for _, child := range coord.Children() {
		if diff := cmp.Diff(coord, child.Parent()); diff != "" {
			t.Errorf("Parent(child %v) mismatch (-want+got):\n%v", child, diff)
		}
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := tilecoord.New(1, 4, 0); err == nil {
		t.Error("New(1, 4, 0) expected column range error")
	}
	if _, err := tilecoord.New(1, 0, 2); err == nil {
		t.Error("New(1, 0, 2) expected row range error")
	}
	if _, err := tilecoord.New(0, 1, 0); err != nil {
		t.Errorf("New(0, 1, 0): %v", err)
	}
}
