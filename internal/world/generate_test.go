package world

import (
	"context"
	"testing"
)

func TestGenerateReproducibility(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultGenConfig(16, 12, 12345)

	m1, err := Generate(ctx, cfg)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	m2, err := Generate(ctx, cfg)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	for y := 0; y < m1.Height; y++ {
		for x := 0; x < m1.Width; x++ {
			t1, _ := m1.TerrainAt(Pos(x, y))
			t2, _ := m2.TerrainAt(Pos(x, y))
			if t1 != t2 {
				t.Errorf("Terrain mismatch at (%d,%d): %v != %v", x, y, t1, t2)
			}
		}
	}
}

func TestGenerateSpawnsOnLand(t *testing.T) {
	m, err := Generate(context.Background(), DefaultGenConfig(10, 10, 7))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	for _, player := range []string{"player1", "player2"} {
		spawns := m.SpawnPoints(player)
		if len(spawns) != 3 {
			t.Fatalf("SpawnPoints(%s) = %v, want 3", player, spawns)
		}
		for _, p := range spawns {
			if got, err := m.TerrainAt(p); err != nil || got != TerrainLand {
				t.Errorf("spawn %s for %s is %v (%v), want land", p, player, got, err)
			}
		}
	}
	if !m.IsValidSpawn(Pos(9, 9), "player2") {
		t.Error("bottom-right corner should be a player2 spawn")
	}
}

func TestGenerateRejectsBadSize(t *testing.T) {
	if _, err := Generate(context.Background(), DefaultGenConfig(0, 5, 1)); err == nil {
		t.Error("Generate with zero width should fail")
	}
}
