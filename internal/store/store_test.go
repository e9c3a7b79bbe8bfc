package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/samdwyer/skirmish/internal/entity"
	"github.com/samdwyer/skirmish/internal/game"
	"github.com/samdwyer/skirmish/internal/gamedata"
	"github.com/samdwyer/skirmish/internal/script"
	"github.com/samdwyer/skirmish/internal/world"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "skirmish.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenPragmas(t *testing.T) {
	db := openTemp(t)

	var mode string
	if err := db.conn.Get(&mode, "PRAGMA journal_mode"); err != nil {
		t.Fatalf("PRAGMA journal_mode error: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
	var timeout int
	if err := db.conn.Get(&timeout, "PRAGMA busy_timeout"); err != nil {
		t.Fatalf("PRAGMA busy_timeout error: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func newBattle(t *testing.T) *game.State {
	t.Helper()
	m, err := world.Load("small_duel")
	if err != nil {
		t.Fatalf("world.Load() error: %v", err)
	}
	s := game.NewState(m)
	for _, id := range []string{"player1", "player2"} {
		p := entity.NewPlayer(id, id)
		p.Resources = entity.DefaultResources()
		s.AddPlayer(p)
	}
	return s
}

func TestSaveLoadSnapshot(t *testing.T) {
	db := openTemp(t)
	s := newBattle(t)

	arc := entity.NewUnit("arc_1", gamedata.Archer, "", world.Pos(0, 0))
	s.Player("player1").AddUnit(arc)
	arc.TakeDamage(15)
	arc.MarkMoved()
	dead := entity.NewUnit("inf_9", gamedata.Infantry, "", world.Pos(7, 7))
	s.Player("player2").AddUnit(dead)
	dead.TakeDamage(1000)
	_ = s.AdvanceTurn()

	id := NewGameID()
	want := s.Snapshot()
	if err := db.SaveSnapshot(id, want); err != nil {
		t.Fatalf("SaveSnapshot() error: %v", err)
	}
	// Saving again replaces rather than duplicates.
	if err := db.SaveSnapshot(id, want); err != nil {
		t.Fatalf("second SaveSnapshot() error: %v", err)
	}

	got, err := db.LoadSnapshot(id)
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if got.CurrentPlayer != "player2" || got.Turn != 0 || got.GameOver {
		t.Errorf("loaded header = %s %d %v", got.CurrentPlayer, got.Turn, got.GameOver)
	}
	if got.Map.Name != "small_duel" || got.Map.Terrain[1][5] != "W" {
		t.Errorf("loaded map = %s, (5,1) %q", got.Map.Name, got.Map.Terrain[1][5])
	}
	if len(got.Players) != 2 || got.Players[0].Resources["gold"] != 1000 {
		t.Errorf("loaded players = %+v", got.Players)
	}
	if len(got.Units) != 2 {
		t.Fatalf("loaded %d units, want 2", len(got.Units))
	}
	for i := range want.Units {
		if got.Units[i] != want.Units[i] {
			t.Errorf("unit %d = %+v, want %+v", i, got.Units[i], want.Units[i])
		}
	}

	restored, err := game.Restore(got)
	if err != nil {
		t.Fatalf("game.Restore() error: %v", err)
	}
	if u := restored.Unit("arc_1"); u == nil || u.Health() != 70 || u.Status() != entity.StatusMoved {
		t.Errorf("restored arc_1 = %+v", u)
	}

	latest, err := db.LatestGame()
	if err != nil || latest != id {
		t.Errorf("LatestGame() = %q, %v; want %q", latest, err, id)
	}
}

func TestLoadSnapshotNotFound(t *testing.T) {
	db := openTemp(t)
	if _, err := db.LoadSnapshot("nope"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("LoadSnapshot(nope) error = %v, want ErrGameNotFound", err)
	}
	if _, err := db.LatestGame(); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("LatestGame() on empty db error = %v, want ErrGameNotFound", err)
	}
}

func TestActions(t *testing.T) {
	db := openTemp(t)
	for i, summary := range []string{"first", "second", "third"} {
		if err := db.AppendAction("g1", i, "player1", summary, i != 1); err != nil {
			t.Fatalf("AppendAction() error: %v", err)
		}
	}
	_ = db.AppendAction("g2", 0, "player1", "other game", true)

	actions, err := db.RecentActions("g1", 2)
	if err != nil {
		t.Fatalf("RecentActions() error: %v", err)
	}
	if len(actions) != 2 || actions[0].Summary != "third" || actions[1].Summary != "second" {
		t.Fatalf("RecentActions() = %+v", actions)
	}
	if !actions[0].OK || actions[1].OK || actions[0].Turn != 2 {
		t.Errorf("RecentActions() flags = %+v", actions)
	}
}

func TestObserverRecordsSession(t *testing.T) {
	db := openTemp(t)
	id := NewGameID()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := game.NewSession(newBattle(t), game.WithObserver(db.Observer(id, logger)))
	ctx := context.Background()

	u, err := sess.Deploy(ctx, "player1", gamedata.Infantry, world.Pos(0, 0))
	if err != nil {
		t.Fatalf("Deploy() error: %v", err)
	}
	move, _ := script.ParseLine("move " + u.ID + " 1,1")
	if res := sess.Execute(ctx, "player1", move); !res.OK {
		t.Fatalf("Execute(move) failed: %v", res.Err)
	}

	snap, err := db.LoadSnapshot(id)
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(snap.Units) != 1 || snap.Units[0].Position != world.Pos(1, 1) {
		t.Errorf("stored units = %+v", snap.Units)
	}
	actions, err := db.RecentActions(id, 10)
	if err != nil || len(actions) != 2 {
		t.Fatalf("RecentActions() = %d, %v; want 2 entries", len(actions), err)
	}
}

// lockedHandler counts error records across goroutines.
type lockedHandler struct {
	slog.Handler
	mu     *sync.Mutex
	errors *int
}

func (h lockedHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		h.mu.Lock()
		*h.errors++
		h.mu.Unlock()
	}
	return nil
}

func TestObserverConcurrentSession(t *testing.T) {
	db := openTemp(t)
	id := NewGameID()
	var mu sync.Mutex
	failures := 0
	logger := slog.New(lockedHandler{
		Handler: slog.NewTextHandler(io.Discard, nil),
		mu:      &mu,
		errors:  &failures,
	})
	sess := game.NewSession(newBattle(t), game.WithObserver(db.Observer(id, logger)))
	ctx := context.Background()

	const n = 8
	units := make([]*entity.Unit, n)
	for i := range units {
		u, err := sess.Deploy(ctx, "player1", gamedata.Infantry, world.Pos(i, 0))
		if err != nil {
			t.Fatalf("Deploy(%d,0) error: %v", i, err)
		}
		units[i] = u
	}

	results := make([]game.ActionResult, n)
	var wg sync.WaitGroup
	for i, u := range units {
		wg.Add(1)
		go func() {
			defer wg.Done()
			move, _ := script.ParseLine(fmt.Sprintf("move %s %d,7", u.ID, i))
			results[i] = sess.Execute(ctx, "player1", move)
		}()
	}
	wg.Wait()

	for _, res := range results {
		if !res.OK {
			t.Errorf("Execute(%s) failed: %v", res.Intent, res.Err)
		}
	}

	if failures != 0 {
		t.Errorf("observer logged %d write errors", failures)
	}
	stored, err := db.LoadSnapshot(id)
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	live := sess.Snapshot()
	if len(stored.Units) != len(live.Units) {
		t.Fatalf("stored %d units, live %d", len(stored.Units), len(live.Units))
	}
	for i := range live.Units {
		if stored.Units[i].Position != live.Units[i].Position {
			t.Errorf("unit %s stored at %s, live at %s",
				live.Units[i].ID, stored.Units[i].Position, live.Units[i].Position)
		}
	}
}
