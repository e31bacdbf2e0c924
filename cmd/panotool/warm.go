package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"

	"panorama-viewer/internal/config"
	"panorama-viewer/internal/decode"
	"panorama-viewer/internal/metrics"
	"panorama-viewer/internal/provider"
	"panorama-viewer/internal/source"
	"panorama-viewer/internal/tile"
	"panorama-viewer/internal/tilecoord"
	"panorama-viewer/pkg/logger"
)

// warmCmd drives the tile provider over an extent until every load has
// settled. It exists to exercise a deployment's sources end to end and
// to prime any payload cache sitting in front of them.
type warmCmd struct {
	settingsPath string
	level        uint
	minAzDeg     float64
	maxAzDeg     float64
	minPoDeg     float64
	maxPoDeg     float64
}

func (c *warmCmd) Name() string     { return "warm" }
func (c *warmCmd) Synopsis() string { return "load every tile in an extent through the provider" }
func (c *warmCmd) Usage() string {
	return "panotool warm [-settings <path>] -level <n> -min-az <deg> -max-az <deg> -min-pol <deg> -max-pol <deg>\n"
}

func (c *warmCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.settingsPath, "settings", config.SettingsPath(), "Settings file path")
	f.UintVar(&c.level, "level", 0, "Pyramid level")
	f.Float64Var(&c.minAzDeg, "min-az", 0, "Minimum azimuth in degrees")
	f.Float64Var(&c.maxAzDeg, "max-az", 360, "Maximum azimuth in degrees")
	f.Float64Var(&c.minPoDeg, "min-pol", 0, "Minimum polar angle in degrees")
	f.Float64Var(&c.maxPoDeg, "max-pol", 180, "Maximum polar angle in degrees")
}

func (c *warmCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	settings, err := config.Load(c.settingsPath)
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}

	log := logger.NewZapLogger(settings.LogLevel)
	defer log.Sync()

	if uint32(c.level) < settings.MinLevel || uint32(c.level) > settings.MaxLevel {
		log.Error("level out of configured range", "level", c.level, "min", settings.MinLevel, "max", settings.MaxLevel)
		return subcommands.ExitUsageError
	}

	sources, closeSources, err := c.buildSources(ctx, settings)
	if err != nil {
		log.Error("building sources failed", "error", err)
		return subcommands.ExitFailure
	}
	defer closeSources()

	const degToRad = math.Pi / 180
	coords := tilecoord.CoordinatesInExtent(tilecoord.Extent{
		MinAzimuth: c.minAzDeg * degToRad,
		MinPolar:   c.minPoDeg * degToRad,
		MaxAzimuth: c.maxAzDeg * degToRad,
		MaxPolar:   c.maxPoDeg * degToRad,
	}, uint32(c.level))
	if len(coords) == 0 {
		log.Warn("extent covers no tiles")
		return subcommands.ExitSuccess
	}

	slots := 1
	if sources.Depth != nil {
		slots++
	}
	if sources.Intensity != nil && settings.ShowIntensity {
		slots++
	}

	met := metrics.New(prometheus.NewRegistry())
	p, err := provider.New(provider.Options{
		Sources:       sources,
		Decode:        decode.NewPool(settings.DecodeLimit),
		TileWidth:     settings.TileWidth,
		TileHeight:    settings.TileHeight,
		MinLevel:      settings.MinLevel,
		MaxLevel:      settings.MaxLevel,
		Concurrency:   settings.Concurrency,
		CacheCapacity: len(coords), // keep the whole extent resident while warming
		ShowIntensity: settings.ShowIntensity,
		Logger:        log,
		Metrics:       met,
	})
	if err != nil {
		log.Error("creating provider failed", "error", err)
		return subcommands.ExitFailure
	}
	defer p.Destroy()

	bar := progressbar.NewOptions(len(coords)*slots, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	var failures atomic.Int64

	done := make(chan struct{})
	p.OnTileLoaded(func(_ *tile.Tile) { bar.Add(1) })
	p.OnTileError(func(te provider.TileError) {
		failures.Add(1)
		bar.Add(1)
		log.Warn("tile failed", "key", te.Tile.Coordinate().Key(), "error", te.Err)
	})
	p.OnLoadingStateChanged(func(loading bool) {
		if !loading {
			close(done)
		}
	})

	if _, err := p.CreateVisibleTiles(coords); err != nil {
		log.Error("requesting tiles failed", "error", err)
		return subcommands.ExitFailure
	}

	<-done
	bar.Finish()
	fmt.Println()

	stats := p.GetStats()
	log.Info("warm complete", "tiles", len(coords), "resident", stats.Resident, "failures", failures.Load())
	if failures.Load() > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *warmCmd) buildSources(ctx context.Context, settings *config.Settings) (provider.Sources, func(), error) {
	var sources provider.Sources
	var closers []func() error
	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}

	for _, cfg := range []struct {
		template string
		dst      *source.Source
	}{
		{settings.ColorURL, &sources.Color},
		{settings.DepthURL, &sources.Depth},
		{settings.IntensityURL, &sources.Intensity},
	} {
		src, closer, err := buildSource(ctx, cfg.template)
		if err != nil {
			closeAll()
			return provider.Sources{}, nil, err
		}
		if src == nil {
			continue
		}
		if settings.PayloadCache > 0 {
			cached, err := source.NewCachedSource(src, settings.PayloadCache)
			if err != nil {
				closeAll()
				return provider.Sources{}, nil, err
			}
			src = cached
		}
		*cfg.dst = src
		closers = append(closers, closer)
	}

	if sources.Color == nil {
		closeAll()
		return provider.Sources{}, nil, fmt.Errorf("colorURL is required (settings file or PANO_COLOR_URL)")
	}
	return sources, closeAll, nil
}
