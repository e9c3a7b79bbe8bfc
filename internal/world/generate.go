package world

import (
	"context"
	"math/rand"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/skirmish/internal/telemetry"
)

// GenConfig holds random map generation parameters.
type GenConfig struct {
	Name        string
	Width       int
	Height      int
	Seed        int64   // 0 means a random seed
	SeaLevel    float64 // Elevation below which cells become water (0.0-1.0)
	MountainLvl float64 // Elevation above which cells become mountain (0.0-1.0)
	ForestLvl   float64 // Moisture above which land becomes forest (0.0-1.0)
}

// DefaultGenConfig returns settings that give a mostly land battlefield with
// a few lakes, ridges and woods.
func DefaultGenConfig(width, height int, seed int64) GenConfig {
	return GenConfig{
		Name:        "random",
		Width:       width,
		Height:      height,
		Seed:        seed,
		SeaLevel:    0.32,
		MountainLvl: 0.70,
		ForestLvl:   0.58,
	}
}

// Generate builds a map from layered simplex noise. The same seed and size
// always produce the same map. Spawn points are the three cells nearest the
// top-left corner for player1 and the bottom-right corner for player2, and
// are forced to land.
func Generate(ctx context.Context, cfg GenConfig) (*Map, error) {
	tracer := telemetry.Tracer("world")
	_, span := tracer.Start(ctx, "map.generate")
	defer span.End()

	startTime := time.Now()

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	m, err := New(cfg.Name, cfg.Width, cfg.Height, TerrainLand)
	if err != nil {
		return nil, err
	}
	m.DisplayName = "Random Battlefield"
	m.Description = "Generated from simplex noise"

	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			elev := octaveNoise(elevNoise, float64(x), float64(y), 3, 0.15, 0.5)
			moist := octaveNoise(moistNoise, float64(x), float64(y), 2, 0.2, 0.5)
			m.cells[y][x] = deriveTerrain(elev, moist, cfg)
		}
	}

	w, h := cfg.Width-1, cfg.Height-1
	m.spawns["player1"] = clampSpawns(m, []Position{{0, 0}, {0, 1}, {1, 0}})
	m.spawns["player2"] = clampSpawns(m, []Position{{w, h}, {w, h - 1}, {w - 1, h}})
	for _, points := range m.spawns {
		for _, p := range points {
			m.cells[p.Y][p.X] = TerrainLand
		}
	}

	counts := m.CountTerrain()
	span.SetAttributes(
		attribute.Int64("map.seed", seed),
		attribute.Int("map.width", cfg.Width),
		attribute.Int("map.height", cfg.Height),
		attribute.Int("map.water_cells", counts[TerrainWater]),
		attribute.Int("map.mountain_cells", counts[TerrainMountain]),
		attribute.Int64("map.generation_ms", time.Since(startTime).Milliseconds()),
	)
	return m, nil
}

func deriveTerrain(elev, moist float64, cfg GenConfig) Terrain {
	switch {
	case elev < cfg.SeaLevel:
		return TerrainWater
	case elev > cfg.MountainLvl:
		return TerrainMountain
	case moist > cfg.ForestLvl:
		return TerrainForest
	default:
		return TerrainLand
	}
}

// clampSpawns drops spawn candidates that fall off very small maps.
func clampSpawns(m *Map, candidates []Position) []Position {
	points := make([]Position, 0, len(candidates))
	for _, p := range candidates {
		if m.InBounds(p) {
			points = append(points, p)
		}
	}
	return points
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
