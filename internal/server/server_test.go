package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/cluegame/internal/cluegame"
	"github.com/playperu/cluegame/internal/database"
	"github.com/playperu/cluegame/internal/migrations"
	"github.com/playperu/cluegame/internal/store"
)

const (
	testAdminEmail    = "admin@cluegame.test"
	testAdminPassword = "changeme"
)

var testKey = cluegame.Key{Date: cluegame.Date{Year: 2025, Month: time.March, Day: 14}, Slot: cluegame.Morning}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	router    chi.Router
	store     *store.Store
	sessions  *Sessions
	broker    *Broker
	snapshots *cluegame.MemoryStore
	clock     *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Memory)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	st := store.New(db)
	if err := st.Admins.Seed(ctx, testAdminEmail, testAdminPassword); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	for _, name := range []string{"Ana", "Bob"} {
		if err := st.Participants.Add(ctx, name); err != nil {
			t.Fatalf("add participant: %v", err)
		}
	}
	err = st.Clues.Save(ctx, cluegame.ClueSet{
		Key:    testKey,
		Clues:  []string{"A thief who steals secrets", "Dreams within dreams", "A spinning top"},
		Answer: "Inception",
	})
	if err != nil {
		t.Fatalf("save clues: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &testClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	snapshots := cluegame.NewMemoryStore()
	engine := cluegame.NewEngine(st.Clues, st.Participants, st.Ledger,
		cluegame.WithClock(clock.Now),
		cluegame.WithSessionStore(snapshots),
		cluegame.WithLogger(logger),
	)
	broker := NewBroker()
	sessions := NewSessions(engine, broker, logger, 5*time.Millisecond, time.Hour)
	t.Cleanup(sessions.closeAll)

	router := NewRouter(logger, Deps{
		Clues:        st.Clues,
		Participants: st.Participants,
		Ledger:       st.Ledger,
		Admins:       st.Admins,
		Sessions:     sessions,
		Broker:       broker,
		Snapshots:    snapshots,
	})

	return &testEnv{
		router:    router,
		store:     st,
		sessions:  sessions,
		broker:    broker,
		snapshots: snapshots,
		clock:     clock,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) start(t *testing.T, name string) StartResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/game/start", StartRequest{Name: name}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp StartResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode start: %v", err)
	}
	return resp
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body %q)", err, w.Body.String())
	}
	return v
}
