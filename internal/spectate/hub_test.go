package spectate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samdwyer/skirmish/internal/entity"
	"github.com/samdwyer/skirmish/internal/game"
	"github.com/samdwyer/skirmish/internal/gamedata"
	"github.com/samdwyer/skirmish/internal/world"
)

func newTestSession(t *testing.T, opts ...game.Option) *game.Session {
	t.Helper()
	m, err := world.Load("small_duel")
	if err != nil {
		t.Fatalf("world.Load() error: %v", err)
	}
	s := game.NewState(m)
	s.AddPlayer(entity.NewPlayer("player1", "Red"))
	s.AddPlayer(entity.NewPlayer("player2", "Blue"))
	return game.NewSession(s, opts...)
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return msg
}

func TestLatestSnapshotOnConnect(t *testing.T) {
	hub, url := startHub(t)
	sess := newTestSession(t)

	if err := hub.Publish(sess.Snapshot()); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	conn := dial(t, url)

	msg := readMessage(t, conn)
	if msg.Type != "snapshot" || msg.Snapshot.Map.Name != "small_duel" {
		t.Errorf("first message = %+v", msg)
	}
	if msg.Snapshot.CurrentPlayer != "player1" || len(msg.Snapshot.Players) != 2 {
		t.Errorf("snapshot header = %s, %d players", msg.Snapshot.CurrentPlayer, len(msg.Snapshot.Players))
	}
}

func TestObserverBroadcasts(t *testing.T) {
	hub, url := startHub(t)
	sess := newTestSession(t, game.WithObserver(hub.Observer()))
	ctx := context.Background()

	// Prime the hub so the first read confirms registration.
	_ = hub.Publish(sess.Snapshot())
	a := dial(t, url)
	b := dial(t, url)
	readMessage(t, a)
	readMessage(t, b)

	if _, err := sess.Deploy(ctx, "player1", gamedata.Cavalry, world.Pos(0, 0)); err != nil {
		t.Fatalf("Deploy() error: %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		if msg.Event != "deploy" || len(msg.Snapshot.Units) != 1 {
			t.Errorf("broadcast = event %q, %d units", msg.Event, len(msg.Snapshot.Units))
			continue
		}
		if u := msg.Snapshot.Units[0]; u.Kind != gamedata.Cavalry || u.Position != world.Pos(0, 0) {
			t.Errorf("broadcast unit = %+v", u)
		}
	}
}

func TestRunStopClosesClients(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	_ = hub.Publish(game.Snapshot{Turn: 3})
	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if msg := readMessage(t, conn); msg.Snapshot.Turn != 3 {
		t.Fatalf("first message turn = %d, want 3", msg.Snapshot.Turn)
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection should close when the hub stops")
	}
	if err := hub.Publish(game.Snapshot{}); err != nil {
		t.Errorf("Publish() after stop error: %v", err)
	}
}
