package main

import (
	"context"
	"flag"
	"fmt"
	"math"

	"github.com/google/subcommands"

	"panorama-viewer/internal/tilecoord"
)

// tilesCmd lists the tile coordinates covering a spherical extent.
type tilesCmd struct {
	level    uint
	minAzDeg float64
	maxAzDeg float64
	minPoDeg float64
	maxPoDeg float64
}

func (c *tilesCmd) Name() string     { return "tiles" }
func (c *tilesCmd) Synopsis() string { return "list tile coordinates covering a spherical extent" }
func (c *tilesCmd) Usage() string {
	return "panotool tiles -level <n> -min-az <deg> -max-az <deg> -min-pol <deg> -max-pol <deg>\n"
}

func (c *tilesCmd) SetFlags(f *flag.FlagSet) {
	f.UintVar(&c.level, "level", 0, "Pyramid level")
	f.Float64Var(&c.minAzDeg, "min-az", 0, "Minimum azimuth in degrees")
	f.Float64Var(&c.maxAzDeg, "max-az", 360, "Maximum azimuth in degrees")
	f.Float64Var(&c.minPoDeg, "min-pol", 0, "Minimum polar angle in degrees")
	f.Float64Var(&c.maxPoDeg, "max-pol", 180, "Maximum polar angle in degrees")
}

func (c *tilesCmd) extent() tilecoord.Extent {
	const degToRad = math.Pi / 180
	return tilecoord.Extent{
		MinAzimuth: c.minAzDeg * degToRad,
		MinPolar:   c.minPoDeg * degToRad,
		MaxAzimuth: c.maxAzDeg * degToRad,
		MaxPolar:   c.maxPoDeg * degToRad,
	}
}

func (c *tilesCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	coords := tilecoord.CoordinatesInExtent(c.extent(), uint32(c.level))
	for _, coord := range coords {
		az, pol := coord.SphericalCenter()
		fmt.Printf("%s\tcenter az=%.4f pol=%.4f\n", coord.Key(), az, pol)
	}
	fmt.Printf("%d tiles\n", len(coords))
	return subcommands.ExitSuccess
}
