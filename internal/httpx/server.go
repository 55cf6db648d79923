// Package httpx exposes the game registry over a JSON HTTP API.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jamesninnes/chess-on-chain/internal/board"
	"github.com/jamesninnes/chess-on-chain/internal/game"
	"github.com/jamesninnes/chess-on-chain/internal/registry"
	"github.com/jamesninnes/chess-on-chain/internal/render"
)

// Server wires the HTTP layer to the game registry and the board renderer.
type Server struct {
	reg      *registry.Registry
	renderer *render.Renderer
	logger   *zap.Logger

	srvMu sync.Mutex
	srv   *http.Server
}

const (
	maxJSONBodyBytes int64 = 1 << 20
	apiCSP                 = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
)

// Error codes carried in the "code" field of error responses. Each rejection
// reason keeps its own code; none are collapsed together.
const (
	codeGameNotFound    = "game_not_found"
	codeGameNotActive   = "game_not_active"
	codeNotYourTurn     = "not_your_turn"
	codeSelfPlay        = "self_play_not_allowed"
	codeEmptyPlayer     = "empty_player"
	codePlayerTooLong   = "player_too_long"
	codeOutOfBounds     = "out_of_bounds"
	codeEmptySource     = "empty_source"
	codeWrongColorPiece = "wrong_color_piece"
	codeOwnPieceCapture = "own_piece_capture"
	codeIllegalShape    = "illegal_shape"
	codePathBlocked     = "path_blocked"
	codeInvalidRequest  = "invalid_request"
	codeRequestTooLarge = "request_too_large"
	codeInternal        = "internal"
)

// NewServer builds a Server over the given registry and renderer.
func NewServer(reg *registry.Registry, renderer *render.Renderer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		reg:      reg,
		renderer: renderer,
		logger:   logger,
	}
}

// Listen starts the HTTP server and blocks until it stops.
func (s *Server) Listen(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()
	defer func() {
		s.srvMu.Lock()
		s.srv = nil
		s.srvMu.Unlock()
	}()

	s.logger.Info("http listening", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close attempts a graceful shutdown of the HTTP server.
func (s *Server) Close(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// routes configures the ServeMux with the JSON API, the board image
// endpoint, and the health probe.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/games", s.withJSON(s.handleCreateGame))
	mux.HandleFunc("GET /api/games", s.withJSON(s.handleListGames))
	mux.HandleFunc("GET /api/games/{id}", s.withJSON(s.handleGameState))
	mux.HandleFunc("POST /api/games/{id}/move", s.withJSON(s.handleMove))
	mux.HandleFunc("POST /api/games/{id}/resign", s.withJSON(s.handleResign))
	mux.HandleFunc("GET /api/games/{id}/board.png", s.handleBoardImage)
	mux.HandleFunc("GET /api/events", s.withJSON(s.handleEvents))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ---- JSON helpers ----

func (s *Server) withJSON(h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applyAPISecurityHeaders(w.Header())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": msg, "code": code})
}

// writeGameError maps a registry or validation error to its HTTP status and
// stable machine code.
func (s *Server) writeGameError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, status, code, "internal error")
		return
	}
	writeError(w, status, code, err.Error())
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, registry.ErrGameNotFound):
		return http.StatusNotFound, codeGameNotFound
	case errors.Is(err, game.ErrGameNotActive):
		return http.StatusConflict, codeGameNotActive
	case errors.Is(err, game.ErrNotYourTurn):
		return http.StatusForbidden, codeNotYourTurn
	case errors.Is(err, game.ErrSelfPlayNotAllowed):
		return http.StatusBadRequest, codeSelfPlay
	case errors.Is(err, game.ErrEmptyPlayer):
		return http.StatusBadRequest, codeEmptyPlayer
	case errors.Is(err, game.ErrPlayerTooLong):
		return http.StatusBadRequest, codePlayerTooLong
	case errors.Is(err, board.ErrOutOfBounds):
		return http.StatusBadRequest, codeOutOfBounds
	case errors.Is(err, board.ErrEmptySource):
		return http.StatusBadRequest, codeEmptySource
	case errors.Is(err, board.ErrWrongColorPiece):
		return http.StatusBadRequest, codeWrongColorPiece
	case errors.Is(err, board.ErrOwnPieceCapture):
		return http.StatusBadRequest, codeOwnPieceCapture
	case errors.Is(err, board.ErrIllegalShape):
		return http.StatusBadRequest, codeIllegalShape
	case errors.Is(err, board.ErrPathBlocked):
		return http.StatusBadRequest, codePathBlocked
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func applyAPISecurityHeaders(h http.Header) {
	h.Set("Content-Security-Policy", apiCSP)
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("Cross-Origin-Embedder-Policy", "require-corp")
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// gameID extracts and parses the {id} path segment. An unparsable id names
// no game, so the caller responds 404.
func gameID(r *http.Request) (uint64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid game id %q", raw)
	}
	return id, nil
}

// ---- API: games ----

type createGameBody struct {
	White string `json:"white"`
	Black string `json:"black"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var body createGameBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, codeRequestTooLarge, "request too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid json")
		return
	}

	snap, err := s.reg.CreateGame(strings.TrimSpace(body.White), strings.TrimSpace(body.Black))
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]any{"game": snap})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"games": s.reg.Games()})
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, codeGameNotFound, err.Error())
		return
	}
	snap, err := s.reg.Game(id)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, map[string]any{"game": snap})
}

// ---- API: move ----

type moveBody struct {
	Player string `json:"player"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, codeGameNotFound, err.Error())
		return
	}

	defer r.Body.Close()
	var body moveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, codeRequestTooLarge, "request too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid json")
		return
	}

	from, err := board.ParseCoord(strings.ToLower(strings.TrimSpace(body.From)))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeOutOfBounds, fmt.Sprintf("invalid from square %q", body.From))
		return
	}
	to, err := board.ParseCoord(strings.ToLower(strings.TrimSpace(body.To)))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeOutOfBounds, fmt.Sprintf("invalid to square %q", body.To))
		return
	}

	snap, err := s.reg.SubmitMove(id, strings.TrimSpace(body.Player), from, to)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, map[string]any{"game": snap})
}

// ---- API: resign ----

type resignBody struct {
	Player string `json:"player"`
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, codeGameNotFound, err.Error())
		return
	}

	defer r.Body.Close()
	var body resignBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, codeRequestTooLarge, "request too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid json")
		return
	}

	snap, err := s.reg.Resign(id, strings.TrimSpace(body.Player))
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, map[string]any{"game": snap})
}

// ---- API: board image ----

func (s *Server) handleBoardImage(w http.ResponseWriter, r *http.Request) {
	applyAPISecurityHeaders(w.Header())
	id, err := gameID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	snap, err := s.reg.Game(id)
	if err != nil {
		status, _ := errorStatus(err)
		http.Error(w, err.Error(), status)
		return
	}

	b, err := board.ParsePlacement(snap.Board)
	if err != nil {
		s.logger.Error("render board", zap.Uint64("game_id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	data, err := s.renderer.PNG(&b)
	if err != nil {
		s.logger.Error("render board", zap.Uint64("game_id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// ---- API: events ----

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	after, err := parseUintParam(q.Get("after"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid after cursor")
		return
	}
	gameFilter, err := parseUintParam(q.Get("game"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid game filter")
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid limit")
			return
		}
		limit = n
	}

	events, err := s.reg.Events(after, limit, gameFilter)
	if err != nil {
		s.writeGameError(w, err)
		return
	}

	next := after
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}
	writeJSON(w, map[string]any{"events": events, "next_after": next})
}

func parseUintParam(raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
