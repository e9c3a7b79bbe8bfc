// Package main is the entry point for Skirmish.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/samdwyer/skirmish/internal/config"
	"github.com/samdwyer/skirmish/internal/entity"
	"github.com/samdwyer/skirmish/internal/game"
	"github.com/samdwyer/skirmish/internal/gamedata"
	"github.com/samdwyer/skirmish/internal/spectate"
	"github.com/samdwyer/skirmish/internal/store"
	"github.com/samdwyer/skirmish/internal/telemetry"
	"github.com/samdwyer/skirmish/internal/ui"
	"github.com/samdwyer/skirmish/internal/world"
)

var players = []struct{ id, name string }{
	{"player1", "Red"},
	{"player2", "Blue"},
}

func main() {
	scriptPath := flag.String("script", "", "battle script; blocks separated by --- alternate between players")
	view := flag.Bool("view", false, "open the terminal map viewer")
	resume := flag.String("resume", "", `resume a saved game by id, or "latest"`)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// stdout is reserved for results and the viewer.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.Telemetry {
		if err := config.SetupOTelEnv(os.Getenv, os.Setenv); err != nil {
			logger.Warn("otel env setup failed", "error", err)
		}
		shutdown, err := telemetry.Setup(ctx)
		if err != nil {
			logger.Warn("telemetry setup failed, continuing without tracing", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error("telemetry shutdown", "error", err)
				}
			}()
		}
	}

	if err := run(ctx, cfg, logger, *scriptPath, *view, *resume); err != nil {
		logger.Error("skirmish failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, scriptPath string, view bool, resume string) error {
	var opts []game.Option
	opts = append(opts, game.WithLogger(logger), game.WithStrictMovement(cfg.StrictMovement))

	var db *store.DB
	if cfg.DBPath != "" {
		var err error
		db, err = store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	state, gameID, err := loadState(ctx, cfg, db, resume)
	if err != nil {
		return err
	}
	if db != nil {
		opts = append(opts, game.WithObserver(db.Observer(gameID, logger)))
		logger.Info("recording game", "game", gameID, "db", cfg.DBPath)
	}

	if cfg.SpectateAddr != "" {
		hub := spectate.NewHub(logger)
		go hub.Run(ctx)
		srv := startSpectator(cfg.SpectateAddr, hub, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		opts = append(opts, game.WithObserver(hub.Observer()))
		if err := hub.Publish(state.Snapshot()); err != nil {
			logger.Warn("initial spectator snapshot", "error", err)
		}
	}

	sess := game.NewSession(state, opts...)
	if resume == "" {
		deployStartingUnits(ctx, sess, state.Map, logger)
	}

	switch {
	case scriptPath != "":
		src, err := os.ReadFile(scriptPath)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		playScript(ctx, sess, string(src), cfg.TurnTimeout, logger, os.Stdout)
	case view:
		screen, err := ui.NewScreen()
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		err = ui.NewViewer(screen, sess).Run(ctx)
		screen.Close()
		if err != nil {
			return err
		}
	}

	printSummary(os.Stdout, sess.Snapshot())
	return nil
}

// loadState resumes a saved game or sets up a new one. It returns the game id
// snapshots are recorded under.
func loadState(ctx context.Context, cfg config.Config, db *store.DB, resume string) (*game.State, string, error) {
	if resume != "" {
		if db == nil {
			return nil, "", errors.New("resume needs SKIRMISH_DB")
		}
		id := resume
		if id == "latest" {
			var err error
			if id, err = db.LatestGame(); err != nil {
				return nil, "", err
			}
		}
		snap, err := db.LoadSnapshot(id)
		if err != nil {
			return nil, "", err
		}
		state, err := game.Restore(snap)
		return state, id, err
	}

	m, err := loadMap(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	state := game.NewState(m)
	for _, p := range players {
		player := entity.NewPlayer(p.id, p.name)
		player.Resources = cfg.StartingResources()
		state.AddPlayer(player)
	}
	return state, store.NewGameID(), nil
}

// loadMap generates a random map, or looks the configured id up in the maps
// file (if any) and then the embedded maps.
func loadMap(ctx context.Context, cfg config.Config) (*world.Map, error) {
	if cfg.Map == config.RandomMap {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		slog.Info("generating map", "width", cfg.Width, "height", cfg.Height, "seed", seed)
		return world.Generate(ctx, world.DefaultGenConfig(cfg.Width, cfg.Height, seed))
	}
	if cfg.MapsFile != "" {
		defs, err := gamedata.LoadMapsFile(cfg.MapsFile)
		if err != nil {
			return nil, err
		}
		def, err := gamedata.NewMapRegistry(defs).Get(cfg.Map)
		if err == nil {
			return world.FromDef(def)
		}
		if !errors.Is(err, world.ErrUnknownMap) {
			return nil, err
		}
	}
	return world.Load(cfg.Map)
}

// deployStartingUnits gives every player one infantry on its first spawn point.
func deployStartingUnits(ctx context.Context, sess *game.Session, m *world.Map, logger *slog.Logger) {
	for _, p := range players {
		spawns := m.SpawnPoints(p.id)
		if len(spawns) == 0 {
			logger.Warn("no spawn points", "player", p.id, "map", m.Name)
			continue
		}
		if _, err := sess.Deploy(ctx, p.id, gamedata.Infantry, spawns[0]); err != nil {
			logger.Warn("starting unit not deployed", "player", p.id, "error", err)
		}
	}
}

func startSpectator(addr string, hub *spectate.Hub, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("spectator feed listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("spectator server", "error", err)
		}
	}()
	return srv
}

// playScript runs each block between "---" lines as one turn of the active
// player, ending the turn after every block.
func playScript(ctx context.Context, sess *game.Session, src string, timeout time.Duration, logger *slog.Logger, out io.Writer) {
	for i, block := range splitBlocks(src) {
		if ctx.Err() != nil {
			logger.Warn("script interrupted", "block", i+1)
			return
		}
		player := sess.CurrentPlayer()
		fmt.Fprintf(out, "== %s turn, block %d ==\n", player, i+1)

		start := time.Now()
		for _, res := range sess.RunScript(ctx, player, block) {
			fmt.Fprintln(out, res)
		}
		if elapsed := time.Since(start); elapsed > timeout {
			logger.Warn("turn over time", "player", player, "elapsed", elapsed, "limit", timeout)
		}

		if sess.Snapshot().GameOver {
			return
		}
		if _, err := sess.EndTurn(ctx); err != nil {
			logger.Error("end turn", "error", err)
			return
		}
	}
}

func splitBlocks(src string) []string {
	var blocks []string
	var cur []string
	for _, line := range strings.Split(src, "\n") {
		if strings.TrimSpace(line) == "---" {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, strings.Join(cur, "\n"))
	}
	return blocks
}

func printSummary(out io.Writer, snap game.Snapshot) {
	fmt.Fprintf(out, "\n%s (%dx%d), %s round\n",
		snap.Map.DisplayName, snap.Map.Size[0], snap.Map.Size[1], humanize.Ordinal(snap.Turn+1))
	if snap.GameOver {
		winner := snap.Winner
		if winner == "" {
			winner = "nobody"
		}
		fmt.Fprintf(out, "game over, won by %s\n", winner)
	} else {
		fmt.Fprintf(out, "%s to act\n", snap.CurrentPlayer)
	}

	for _, p := range snap.Players {
		alive := 0
		for _, u := range snap.Units {
			if u.Owner == p.ID && u.Status != entity.StatusDead {
				alive++
			}
		}
		names := make([]string, 0, len(p.Resources))
		for name := range p.Resources {
			names = append(names, name)
		}
		slices.Sort(names)
		stock := make([]string, len(names))
		for i, name := range names {
			stock[i] = name + " " + humanize.Comma(int64(p.Resources[name]))
		}
		fmt.Fprintf(out, "  %-8s %s, %d/%d units standing, %s\n",
			p.ID, p.Name, alive, len(p.UnitIDs), strings.Join(stock, ", "))
	}
}
