package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Zekfad/epam-tetris-solver/internal/bitboard"
	"github.com/Zekfad/epam-tetris-solver/pkg/engine"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

// getTestEngine returns a default 18x18 engine with a small decision cache.
func getTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.NewEngine(engine.EngineOptions{CacheSize: 64})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

func emptyDump() [][]int {
	return bitboard.MustNew(engine.DefaultRows, engine.DefaultColumns).Dump()
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *http.Response {
	t.Helper()
	var data []byte
	if s, ok := body.(string); ok {
		data = []byte(s)
	} else {
		data, _ = json.Marshal(body)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w.Result()
}

func TestHealthHandler(t *testing.T) {
	h := NewHandlers(nil, nil, "test-version")

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest("GET", "/api/health", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("Status = %q, want %q", health.Status, "ok")
	}
	if health.Version != "test-version" {
		t.Errorf("Version = %q, want %q", health.Version, "test-version")
	}
	if health.Ready {
		t.Error("Ready = true without an engine")
	}
	if health.Pool != nil {
		t.Error("Pool stats reported without a pool")
	}
}

func TestHealthHandlerPool(t *testing.T) {
	h := NewHandlersWithPool(getTestEngine(t), nil, "1.0.0", NewWorkerPool(PoolConfig{MaxFastWorkers: 3}))

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest("GET", "/api/health", nil))

	var health HealthResponse
	json.NewDecoder(w.Result().Body).Decode(&health)
	if !health.Ready {
		t.Error("Expected ready = true when engine is set")
	}
	if health.Pool == nil || health.Pool.MaxFast != 3 {
		t.Errorf("Pool = %+v, want MaxFast 3", health.Pool)
	}
}

func TestBoardHandler(t *testing.T) {
	h := NewHandlers(getTestEngine(t), nil, "1.0.0")

	w := httptest.NewRecorder()
	h.Board(w, httptest.NewRequest("GET", "/api/board", nil))
	var resp BoardResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if resp.Rows != 18 || resp.Columns != 18 {
		t.Errorf("empty board size = %dx%d, want 18x18", resp.Rows, resp.Columns)
	}

	dump := emptyDump()
	dump[17][0] = 1
	h.Relay().Publish(dump)

	w = httptest.NewRecorder()
	h.Board(w, httptest.NewRequest("GET", "/api/board", nil))
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if resp.Board[17][0] != 1 {
		t.Errorf("latest board bottom-left = %d, want 1", resp.Board[17][0])
	}
}

func TestMoveHandler(t *testing.T) {
	h := NewHandlers(getTestEngine(t), nil, "1.0.0")

	short := emptyDump()[:3]
	bad := emptyDump()
	bad[0][0] = 2

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name:       "square on empty board",
			body:       MoveRequest{Board: emptyDump(), Piece: "O"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "lowercase piece",
			body:       MoveRequest{Board: emptyDump(), Piece: "t"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown piece",
			body:       MoveRequest{Board: emptyDump(), Piece: "X"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeUnknownPiece,
		},
		{
			name:       "short board",
			body:       MoveRequest{Board: short, Piece: "O"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidBoard,
		},
		{
			name:       "bad cell",
			body:       MoveRequest{Board: bad, Piece: "O"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidBoard,
		},
		{
			name:       "invalid json",
			body:       "not json",
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidJSON,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, h.Move, "/api/move", tc.body)
			if resp.StatusCode != tc.wantStatus {
				t.Errorf("Status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			if tc.wantCode != "" {
				var e ErrorResponse
				json.NewDecoder(resp.Body).Decode(&e)
				if e.Code != tc.wantCode {
					t.Errorf("Code = %q, want %q", e.Code, tc.wantCode)
				}
			}
		})
	}
}

func TestMoveHandlerDecision(t *testing.T) {
	h := NewHandlers(getTestEngine(t), nil, "1.0.0")

	resp := postJSON(t, h.Move, "/api/move", MoveRequest{Board: emptyDump(), Piece: "O", Top: 3})
	var mv MoveResponse
	if err := json.NewDecoder(resp.Body).Decode(&mv); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if mv.Piece != "O" || !mv.Found {
		t.Errorf("Piece/Found = %q/%v, want O/true", mv.Piece, mv.Found)
	}
	if mv.Move != (engine.Move{Orientation: 0, Column: 0}) {
		t.Errorf("Move = %+v, want {0 0}", mv.Move)
	}
	if mv.Candidates != 17 {
		t.Errorf("Candidates = %d, want 17", mv.Candidates)
	}
	if len(mv.Ranked) != 3 {
		t.Fatalf("Ranked = %d entries, want 3", len(mv.Ranked))
	}
	if mv.Ranked[0].Move != mv.Move || mv.Ranked[0].Score != mv.Score {
		t.Errorf("Ranked[0] = %+v, want the decision", mv.Ranked[0])
	}
}

func TestMoveHandlerBusy(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 1})
	h := NewHandlersWithPool(getTestEngine(t), nil, "1.0.0", pool)
	if !pool.TryAcquireFast() {
		t.Fatal("TryAcquireFast failed on an empty pool")
	}
	defer pool.ReleaseFast()

	data, _ := json.Marshal(MoveRequest{Board: emptyDump(), Piece: "O"})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest("POST", "/api/move", bytes.NewReader(data)).WithContext(ctx)
	w := httptest.NewRecorder()
	h.Move(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestSimulateHandler(t *testing.T) {
	h := NewHandlersWithPool(getTestEngine(t), nil, "1.0.0", NewWorkerPool(DefaultPoolConfig()))

	resp := postJSON(t, h.Simulate, "/api/simulate", SimulateRequest{Games: 2, MaxPieces: 40, Seed: 7})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var result engine.SimulationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(result.Games) != 2 {
		t.Fatalf("Games = %d, want 2", len(result.Games))
	}
	for i, g := range result.Games {
		if g.Seed != 7+uint64(i) {
			t.Errorf("game %d seed = %d, want %d", i, g.Seed, 7+i)
		}
		if g.Pieces > 40 {
			t.Errorf("game %d pieces = %d, want <= 40", i, g.Pieces)
		}
	}

	single := postJSON(t, h.Simulate, "/api/simulate", SimulateRequest{Games: 1, MaxPieces: 30, Seed: 5})
	if single.StatusCode != http.StatusOK {
		t.Fatalf("single game status = %d, want %d", single.StatusCode, http.StatusOK)
	}
	var one engine.SimulationResult
	if err := json.NewDecoder(single.Body).Decode(&one); err != nil {
		t.Fatalf("single game decode error: %v", err)
	}
	if len(one.Games) != 1 || one.StdDevRows != 0 {
		t.Errorf("single game = %d games, stddev %v; want 1 game, stddev 0", len(one.Games), one.StdDevRows)
	}

	if resp := postJSON(t, h.Simulate, "/api/simulate", "{"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestCatalogHandler(t *testing.T) {
	h := NewHandlers(getTestEngine(t), nil, "1.0.0")

	w := httptest.NewRecorder()
	h.Catalog(w, httptest.NewRequest("GET", "/api/catalog", nil))
	var resp CatalogResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	var names []string
	for _, k := range resp.Kinds {
		names = append(names, k.Name)
	}
	if got := strings.Join(names, ""); got != "ITOJLSZ" {
		t.Errorf("kinds = %q, want ITOJLSZ", got)
	}
	if len(resp.Kinds[0].Orientations) != 2 {
		t.Errorf("I orientations = %d, want 2", len(resp.Kinds[0].Orientations))
	}
	if got := resp.Kinds[2].Orientations; len(got) != 1 || got[0] != "11\n11\n" {
		t.Errorf("O orientations = %q, want [\"11\\n11\\n\"]", got)
	}
}

func dialRelay(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("Status = %d, want %d", resp.StatusCode, http.StatusSwitchingProtocols)
	}
	return ws
}

func waitClients(t *testing.T, r *Relay, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Clients = %d, want %d", r.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRelayWebSocket(t *testing.T) {
	s := NewServer(getTestEngine(t), nil, DefaultConfig(), "1.0.0")
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	ws := dialRelay(t, server)
	defer ws.Close()
	waitClients(t, s.Relay(), 1)

	// Inbound messages are logged and ignored.
	if err := ws.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	dump := emptyDump()
	dump[17][17] = 1
	s.Relay().Publish(dump)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got [][]int
	if err := ws.ReadJSON(&got); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 18 || got[17][17] != 1 {
		t.Errorf("received board does not match the published one")
	}
}

func TestRelayPrimesLatest(t *testing.T) {
	relay := NewRelay()
	dump := emptyDump()
	dump[0][3] = 1
	relay.Publish(dump)

	server := httptest.NewServer(http.HandlerFunc(relay.ServeWS))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got [][]int
	if err := ws.ReadJSON(&got); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got[0][3] != 1 {
		t.Error("new client did not receive the latest board")
	}
}

func TestRelayDropsSlowClient(t *testing.T) {
	relay := NewRelay()
	c := relay.subscribe()
	if relay.Clients() != 1 {
		t.Fatalf("Clients = %d, want 1", relay.Clients())
	}

	for i := 0; i <= relayBuffer; i++ {
		relay.Publish(emptyDump())
	}
	if relay.Clients() != 0 {
		t.Errorf("Clients = %d, want slow client dropped", relay.Clients())
	}

	n := 0
	for range c.send {
		n++
	}
	if n != relayBuffer {
		t.Errorf("buffered = %d, want %d", n, relayBuffer)
	}
	relay.unsubscribe(c) // already dropped
}

func TestBoardStream(t *testing.T) {
	s := NewServer(getTestEngine(t), nil, DefaultConfig(), "1.0.0")
	dump := emptyDump()
	dump[17][5] = 1
	s.Relay().Publish(dump)

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/api/board/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	reader := bufio.NewReader(resp.Body)
	event, _ := reader.ReadString('\n')
	data, _ := reader.ReadString('\n')
	if event != "event: board\n" {
		t.Errorf("event line = %q, want %q", event, "event: board\n")
	}
	var got [][]int
	if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(data), "data: ")), &got); err != nil {
		t.Fatalf("data line %q: %v", data, err)
	}
	if got[17][5] != 1 {
		t.Error("streamed board does not match the published one")
	}
}

func TestServerRoutes(t *testing.T) {
	s := NewServer(getTestEngine(t), nil, DefaultConfig(), "1.0.0")
	handler := s.Handler()

	tests := []struct {
		method, path string
		wantStatus   int
	}{
		{"GET", "/api/health", http.StatusOK},
		{"GET", "/api/board", http.StatusOK},
		{"GET", "/api/catalog", http.StatusOK},
		{"POST", "/api/board", http.StatusMethodNotAllowed},
		{"GET", "/api/move", http.StatusMethodNotAllowed},
		{"OPTIONS", "/api/move", http.StatusOK},
		{"GET", "/api/unknown", http.StatusNotFound},
	}
	for _, tc := range tests {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.wantStatus {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, w.Code, tc.wantStatus)
		}
	}
	if got := s.Pool().Stats().MaxSlow; got != 2 {
		t.Errorf("MaxSlow = %d, want 2", got)
	}
}
