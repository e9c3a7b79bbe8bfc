// Package store persists battle snapshots and the action log in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/samdwyer/skirmish/internal/entity"
	"github.com/samdwyer/skirmish/internal/game"
	"github.com/samdwyer/skirmish/internal/gamedata"
	"github.com/samdwyer/skirmish/internal/world"
)

// ErrGameNotFound is returned when no game has the requested id.
var ErrGameNotFound = errors.New("game not found")

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// NewGameID returns a fresh game id.
func NewGameID() string {
	return uuid.NewString()
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows a single writer; one pooled connection serializes writes.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		map_name TEXT NOT NULL,
		map_json TEXT NOT NULL,
		players_json TEXT NOT NULL,
		current_player TEXT NOT NULL,
		turn INTEGER NOT NULL,
		game_over INTEGER NOT NULL,
		winner TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS units (
		game_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		unit_id TEXT NOT NULL,
		unit_type TEXT NOT NULL,
		player_id TEXT NOT NULL,
		pos_x INTEGER NOT NULL,
		pos_y INTEGER NOT NULL,
		health INTEGER NOT NULL,
		status TEXT NOT NULL,
		level INTEGER NOT NULL,
		experience INTEGER NOT NULL,
		PRIMARY KEY (game_id, unit_id)
	);

	CREATE TABLE IF NOT EXISTS actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		player_id TEXT NOT NULL,
		summary TEXT NOT NULL,
		ok INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_units_game ON units(game_id);
	CREATE INDEX IF NOT EXISTS idx_actions_game ON actions(game_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type gameRow struct {
	ID            string `db:"id"`
	MapName       string `db:"map_name"`
	MapJSON       string `db:"map_json"`
	PlayersJSON   string `db:"players_json"`
	CurrentPlayer string `db:"current_player"`
	Turn          int    `db:"turn"`
	GameOver      bool   `db:"game_over"`
	Winner        string `db:"winner"`
	UpdatedAt     string `db:"updated_at"`
}

type unitRow struct {
	UnitID     string `db:"unit_id"`
	UnitType   string `db:"unit_type"`
	PlayerID   string `db:"player_id"`
	PosX       int    `db:"pos_x"`
	PosY       int    `db:"pos_y"`
	Health     int    `db:"health"`
	Status     string `db:"status"`
	Level      int    `db:"level"`
	Experience int    `db:"experience"`
}

// SaveSnapshot writes a game's snapshot, replacing any earlier one.
func (db *DB) SaveSnapshot(gameID string, snap game.Snapshot) error {
	mapJSON, err := json.Marshal(snap.Map)
	if err != nil {
		return fmt.Errorf("encode map: %w", err)
	}
	playersJSON, err := json.Marshal(snap.Players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO games
		(id, map_name, map_json, players_json, current_player, turn, game_over, winner, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gameID, snap.Map.Name, string(mapJSON), string(playersJSON), snap.CurrentPlayer,
		snap.Turn, snap.GameOver, snap.Winner, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM units WHERE game_id = ?", gameID); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO units
		(game_id, seq, unit_id, unit_type, player_id, pos_x, pos_y, health, status, level, experience)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, u := range snap.Units {
		_, err := stmt.Exec(gameID, i, u.ID, u.Kind.String(), u.Owner, u.Position.X, u.Position.Y,
			u.Health, u.Status.String(), u.Level, u.Experience)
		if err != nil {
			return fmt.Errorf("save unit %s: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads the latest snapshot of a game. Unit views are rebuilt
// from the catalog, so buffs and debuffs are not restored.
func (db *DB) LoadSnapshot(gameID string) (game.Snapshot, error) {
	var row gameRow
	err := db.conn.Get(&row, "SELECT * FROM games WHERE id = ?", gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Snapshot{}, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if err != nil {
		return game.Snapshot{}, err
	}

	snap := game.Snapshot{
		CurrentPlayer: row.CurrentPlayer,
		Turn:          row.Turn,
		GameOver:      row.GameOver,
		Winner:        row.Winner,
	}
	if err := json.Unmarshal([]byte(row.MapJSON), &snap.Map); err != nil {
		return game.Snapshot{}, fmt.Errorf("decode map: %w", err)
	}
	if err := json.Unmarshal([]byte(row.PlayersJSON), &snap.Players); err != nil {
		return game.Snapshot{}, fmt.Errorf("decode players: %w", err)
	}

	var units []unitRow
	err = db.conn.Select(&units, `SELECT unit_id, unit_type, player_id, pos_x, pos_y,
		health, status, level, experience FROM units WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return game.Snapshot{}, err
	}
	snap.Units = make([]entity.UnitView, 0, len(units))
	for _, r := range units {
		view, err := r.view()
		if err != nil {
			return game.Snapshot{}, fmt.Errorf("unit %s: %w", r.UnitID, err)
		}
		snap.Units = append(snap.Units, view)
	}
	return snap, nil
}

func (r unitRow) view() (entity.UnitView, error) {
	kind, err := gamedata.ParseUnitKind(r.UnitType)
	if err != nil {
		return entity.UnitView{}, err
	}
	var status entity.Status
	if err := status.UnmarshalText([]byte(r.Status)); err != nil {
		return entity.UnitView{}, err
	}
	u := entity.NewUnit(r.UnitID, kind, r.PlayerID, world.Pos(r.PosX, r.PosY))
	u.Restore(r.Health, status)
	u.Level = r.Level
	u.Experience = r.Experience
	return u.View(), nil
}

// LatestGame returns the id of the most recently saved game.
func (db *DB) LatestGame() (string, error) {
	var id string
	err := db.conn.Get(&id, "SELECT id FROM games ORDER BY updated_at DESC, rowid DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrGameNotFound
	}
	return id, err
}

// Action is one entry of a game's action log.
type Action struct {
	ID        int64  `db:"id"`
	Turn      int    `db:"turn"`
	PlayerID  string `db:"player_id"`
	Summary   string `db:"summary"`
	OK        bool   `db:"ok"`
	CreatedAt string `db:"created_at"`
}

// AppendAction adds an entry to a game's action log.
func (db *DB) AppendAction(gameID string, turn int, playerID, summary string, ok bool) error {
	_, err := db.conn.Exec(
		"INSERT INTO actions (game_id, turn, player_id, summary, ok, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		gameID, turn, playerID, summary, ok, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// RecentActions returns up to limit of a game's newest actions, newest first.
func (db *DB) RecentActions(gameID string, limit int) ([]Action, error) {
	var actions []Action
	err := db.conn.Select(&actions,
		"SELECT id, turn, player_id, summary, ok, created_at FROM actions WHERE game_id = ? ORDER BY id DESC LIMIT ?",
		gameID, limit,
	)
	return actions, err
}

// Observer returns a session observer that logs every event and saves the
// resulting snapshot under gameID. Write failures are logged, not returned.
func (db *DB) Observer(gameID string, logger *slog.Logger) game.Observer {
	saved := 0
	return func(_ context.Context, ev game.Event) {
		if err := db.AppendAction(gameID, ev.Snapshot.Turn, ev.Player, ev.Summary, ev.OK); err != nil {
			logger.Error("append action", "game", gameID, "error", err)
		}
		if err := db.SaveSnapshot(gameID, ev.Snapshot); err != nil {
			logger.Error("save snapshot", "game", gameID, "error", err)
			return
		}
		saved++
		logger.Debug("snapshot saved", "game", gameID, "units", len(ev.Snapshot.Units),
			"saves", humanize.Comma(int64(saved)))
	}
}
