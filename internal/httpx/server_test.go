package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jamesninnes/chess-on-chain/internal/board"
	"github.com/jamesninnes/chess-on-chain/internal/event"
	"github.com/jamesninnes/chess-on-chain/internal/game"
	"github.com/jamesninnes/chess-on-chain/internal/registry"
	"github.com/jamesninnes/chess-on-chain/internal/render"
	"github.com/jamesninnes/chess-on-chain/internal/store"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	st, err := store.Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	reg, err := registry.New(st, event.NewBus(zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	renderer, err := render.NewRenderer()
	if err != nil {
		t.Fatalf("build renderer: %v", err)
	}

	srv := NewServer(reg, renderer, zap.NewNop())
	return srv, srv.routes()
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type gamePayload struct {
	Game game.Snapshot `json:"game"`
}

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeGame(t *testing.T, rr *httptest.ResponseRecorder) game.Snapshot {
	t.Helper()
	var payload gamePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode game payload: %v\nbody: %s", err, rr.Body.String())
	}
	return payload.Game
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var payload errorPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error payload: %v\nbody: %s", err, rr.Body.String())
	}
	return payload
}

func createGame(t *testing.T, h http.Handler, white, black string) game.Snapshot {
	t.Helper()
	body := fmt.Sprintf(`{"white":%q,"black":%q}`, white, black)
	rr := doRequest(t, h, http.MethodPost, "/api/games", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create game: status %d, body %s", rr.Code, rr.Body.String())
	}
	return decodeGame(t, rr)
}

func TestCreateGameEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	snap := createGame(t, h, "alice", "bob")
	if snap.ID != 1 {
		t.Errorf("id = %d, want 1", snap.ID)
	}
	if snap.White != "alice" || snap.Black != "bob" {
		t.Errorf("players = %q/%q, want alice/bob", snap.White, snap.Black)
	}
	if snap.Turn != "white" || snap.Status != "active" {
		t.Errorf("turn/status = %q/%q, want white/active", snap.Turn, snap.Status)
	}
	if snap.Board != board.StartPlacement {
		t.Errorf("board = %q, want the starting placement", snap.Board)
	}
}

func TestCreateGameRejectsSelfPlay(t *testing.T) {
	_, h := newTestServer(t)

	rr := doRequest(t, h, http.MethodPost, "/api/games", `{"white":"alice","black":"alice"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if payload := decodeError(t, rr); payload.Code != codeSelfPlay {
		t.Errorf("code = %q, want %q", payload.Code, codeSelfPlay)
	}
}

func TestCreateGameRejectsOversizedName(t *testing.T) {
	_, h := newTestServer(t)

	body := fmt.Sprintf(`{"white":%q,"black":"bob"}`, strings.Repeat("a", 70000))
	rr := doRequest(t, h, http.MethodPost, "/api/games", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if payload := decodeError(t, rr); payload.Code != codePlayerTooLong {
		t.Errorf("code = %q, want %q", payload.Code, codePlayerTooLong)
	}
}

func TestMoveEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	snap := createGame(t, h, "alice", "bob")

	rr := doRequest(t, h, http.MethodPost, fmt.Sprintf("/api/games/%d/move", snap.ID),
		`{"player":"alice","from":"e2","to":"e4"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	moved := decodeGame(t, rr)
	if moved.Turn != "black" {
		t.Errorf("turn after move = %q, want black", moved.Turn)
	}
	if moved.Board == board.StartPlacement {
		t.Errorf("board unchanged after accepted move")
	}
}

func TestMoveEndpointRejections(t *testing.T) {
	_, h := newTestServer(t)
	snap := createGame(t, h, "alice", "bob")
	movePath := fmt.Sprintf("/api/games/%d/move", snap.ID)

	cases := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown game",
			path:       "/api/games/999/move",
			body:       `{"player":"alice","from":"e2","to":"e4"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   codeGameNotFound,
		},
		{
			name:       "non numeric id",
			path:       "/api/games/first/move",
			body:       `{"player":"alice","from":"e2","to":"e4"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   codeGameNotFound,
		},
		{
			name:       "invalid json",
			path:       movePath,
			body:       `{"player":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   codeInvalidRequest,
		},
		{
			name:       "unparsable from square",
			path:       movePath,
			body:       `{"player":"alice","from":"z9","to":"e4"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   codeOutOfBounds,
		},
		{
			name:       "unparsable to square",
			path:       movePath,
			body:       `{"player":"alice","from":"e2","to":"e44"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   codeOutOfBounds,
		},
		{
			name:       "not your turn",
			path:       movePath,
			body:       `{"player":"bob","from":"e7","to":"e5"}`,
			wantStatus: http.StatusForbidden,
			wantCode:   codeNotYourTurn,
		},
		{
			name:       "unregistered player",
			path:       movePath,
			body:       `{"player":"mallory","from":"e2","to":"e4"}`,
			wantStatus: http.StatusForbidden,
			wantCode:   codeNotYourTurn,
		},
		{
			name:       "empty source",
			path:       movePath,
			body:       `{"player":"alice","from":"e4","to":"e5"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   codeEmptySource,
		},
		{
			name:       "wrong color piece",
			path:       movePath,
			body:       `{"player":"alice","from":"e7","to":"e6"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   codeWrongColorPiece,
		},
		{
			name:       "own piece capture",
			path:       movePath,
			body:       `{"player":"alice","from":"a1","to":"a2"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   codeOwnPieceCapture,
		},
		{
			name:       "illegal shape",
			path:       movePath,
			body:       `{"player":"alice","from":"b1","to":"b3"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   codeIllegalShape,
		},
		{
			name:       "path blocked",
			path:       movePath,
			body:       `{"player":"alice","from":"a1","to":"a4"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   codePathBlocked,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, h, http.MethodPost, tc.path, tc.body)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tc.wantStatus, rr.Body.String())
			}
			if payload := decodeError(t, rr); payload.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", payload.Code, tc.wantCode)
			}
		})
	}

	// None of the rejections may have advanced the game.
	rr := doRequest(t, h, http.MethodGet, fmt.Sprintf("/api/games/%d", snap.ID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get state: status %d", rr.Code)
	}
	if got := decodeGame(t, rr); got.Turn != "white" || got.Board != board.StartPlacement {
		t.Errorf("game advanced by rejected moves: turn %q board %q", got.Turn, got.Board)
	}
}

func TestResignEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	snap := createGame(t, h, "alice", "bob")

	rr := doRequest(t, h, http.MethodPost, fmt.Sprintf("/api/games/%d/resign", snap.ID),
		`{"player":"bob"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("resign: status %d, body %s", rr.Code, rr.Body.String())
	}
	ended := decodeGame(t, rr)
	if ended.Status != "ended" || ended.Winner != "alice" {
		t.Errorf("after resign: status %q winner %q, want ended/alice", ended.Status, ended.Winner)
	}

	rr = doRequest(t, h, http.MethodPost, fmt.Sprintf("/api/games/%d/move", snap.ID),
		`{"player":"alice","from":"e2","to":"e4"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("move after end: status = %d, want 409", rr.Code)
	}
	if payload := decodeError(t, rr); payload.Code != codeGameNotActive {
		t.Errorf("code = %q, want %q", payload.Code, codeGameNotActive)
	}
}

func TestListGamesEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	createGame(t, h, "alice", "bob")
	createGame(t, h, "carol", "dave")

	rr := doRequest(t, h, http.MethodGet, "/api/games", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var payload struct {
		Games []game.Snapshot `json:"games"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Games) != 2 {
		t.Fatalf("got %d games, want 2", len(payload.Games))
	}
	if payload.Games[0].ID != 1 || payload.Games[1].ID != 2 {
		t.Errorf("ids = %d,%d, want 1,2", payload.Games[0].ID, payload.Games[1].ID)
	}
}

func TestEventsEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	snap := createGame(t, h, "alice", "bob")
	doRequest(t, h, http.MethodPost, fmt.Sprintf("/api/games/%d/move", snap.ID),
		`{"player":"alice","from":"g1","to":"f3"}`)

	rr := doRequest(t, h, http.MethodGet, "/api/events", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var payload struct {
		Events    []event.Event `json:"events"`
		NextAfter uint64        `json:"next_after"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(payload.Events))
	}
	if payload.Events[0].Type != event.TypeGameCreated || payload.Events[1].Type != event.TypeMovePlayed {
		t.Errorf("event types = %q,%q", payload.Events[0].Type, payload.Events[1].Type)
	}
	if payload.NextAfter != payload.Events[1].Seq {
		t.Errorf("next_after = %d, want %d", payload.NextAfter, payload.Events[1].Seq)
	}

	rr = doRequest(t, h, http.MethodGet, fmt.Sprintf("/api/events?after=%d", payload.Events[0].Seq), "")
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode after cursor: %v", err)
	}
	if len(payload.Events) != 1 || payload.Events[0].Type != event.TypeMovePlayed {
		t.Fatalf("after cursor: got %d events", len(payload.Events))
	}

	rr = doRequest(t, h, http.MethodGet, "/api/events?after=oops", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad cursor: status = %d, want 400", rr.Code)
	}
}

func TestBoardImageEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	snap := createGame(t, h, "alice", "bob")

	rr := doRequest(t, h, http.MethodGet, fmt.Sprintf("/api/games/%d/board.png", snap.ID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}
	if _, err := png.Decode(bytes.NewReader(rr.Body.Bytes())); err != nil {
		t.Errorf("decode png: %v", err)
	}

	rr = doRequest(t, h, http.MethodGet, "/api/games/999/board.png", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown game: status = %d, want 404", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t)

	rr := doRequest(t, h, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rr.Body.String())
	}
}
