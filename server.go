package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

//go:embed frontend
var frontendFS embed.FS

const defaultMaxUpload = 10 << 20 // 10 Mo

// Server is the main HTTP server.
type Server struct {
	mux       *http.ServeMux
	handler   http.Handler
	store     *Store
	builder   PuzzleBuilder
	sse       *Broadcaster
	logger    *zap.Logger
	uploadRL  *rateLimiter
	moveRL    *rateLimiter
	maxUpload int64
}

// NewServer creates a configured HTTP server.
func NewServer(store *Store, builder PuzzleBuilder, logger *zap.Logger, maxUpload int64) *Server {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	s := &Server{
		mux:       http.NewServeMux(),
		store:     store,
		builder:   builder,
		sse:       NewBroadcaster(logger),
		logger:    logger,
		uploadRL:  newRateLimiter(5, time.Minute),  // 5 uploads/min per IP
		moveRL:    newRateLimiter(60, time.Second), // 60 moves/sec per IP
		maxUpload: maxUpload,
	}
	s.routes()
	s.handler = requestLogger(logger, s.mux)
	return s
}

func (s *Server) routes() {
	// Board API
	s.mux.HandleFunc("POST /api/boards", s.handleCreateBoard)
	s.mux.HandleFunc("GET /api/boards/{id}", s.handleGetBoard)
	s.mux.HandleFunc("POST /api/boards/{id}/image", s.handleUpload)
	s.mux.HandleFunc("POST /api/boards/{id}/engage", s.handleEngage)
	s.mux.HandleFunc("POST /api/boards/{id}/release", s.handleRelease)
	s.mux.HandleFunc("POST /api/boards/{id}/swap", s.handleSwap)
	s.mux.HandleFunc("GET /api/boards/{id}/tiles/{tile}", s.handleTile)
	s.mux.HandleFunc("GET /api/boards/{id}/events", s.handleEvents)

	// Frontend static files
	frontendDir, _ := fs.Sub(frontendFS, "frontend")
	fileServer := http.FileServer(http.FS(frontendDir))
	s.mux.HandleFunc("GET /board/{id}", s.handleBoardPage)
	s.mux.Handle("GET /", fileServer)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
	s.handler.ServeHTTP(w, r)
}

// Watched reports whether a board still has an open event stream.
func (s *Server) Watched(id string) bool {
	return s.sse.SubscriberCount(id) > 0
}

// OnReap disconnects the streams of boards removed from the store.
func (s *Server) OnReap(ids []string) {
	for _, id := range ids {
		s.sse.CloseBoard(id)
	}
	s.logger.Info("idle boards reaped", zap.Int("count", len(ids)))
}

// --- Board handlers ---

// POST /api/boards — create an empty board.
func (s *Server) handleCreateBoard(w http.ResponseWriter, _ *http.Request) {
	b := s.store.CreateBoard()
	writeJSON(w, http.StatusCreated, b.View())
}

// GET /api/boards/{id} — current board state.
func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	b := s.board(w, r)
	if b == nil {
		return
	}
	writeJSON(w, http.StatusOK, b.View())
}

// POST /api/boards/{id}/image — upload an image and build a new puzzle.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.uploadRL.allow(r.RemoteAddr) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}
	b := s.board(w, r)
	if b == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "Image trop volumineuse", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Formulaire invalide", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		// No file selected: nothing to do.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		jsonError(w, "Champ 'image' invalide", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, "Erreur de lecture de l'image", http.StatusInternalServerError)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	viewport, _ := strconv.ParseFloat(r.FormValue("viewport_width"), 64)

	view, err := b.Load(r.Context(), s.builder, Upload{
		Data:     data,
		MIMEType: mimeType,
		Viewport: viewport,
	})
	switch {
	case errors.Is(err, ErrSuperseded):
		jsonError(w, "Une image plus récente a été envoyée", http.StatusConflict)
		return
	case errors.Is(err, ErrDecode):
		s.logger.Info("undecodable upload", zap.String("board", b.ID), zap.Error(err))
		jsonError(w, "Image illisible", http.StatusBadRequest)
		return
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		s.logger.Error("build puzzle", zap.String("board", b.ID), zap.Error(err))
		jsonError(w, "Erreur lors de la création du puzzle", http.StatusInternalServerError)
		return
	}

	s.logger.Info("puzzle loaded",
		zap.String("board", b.ID),
		zap.Uint64("generation", view.Generation),
		zap.Int("bytes", len(data)),
	)
	s.sse.Publish(b.ID, Event{Type: "puzzle_loaded", Data: map[string]any{"board": view}})
	writeJSON(w, http.StatusCreated, view)
}

// POST /api/boards/{id}/engage — a drag or touch starts on a slot.
func (s *Server) handleEngage(w http.ResponseWriter, r *http.Request) {
	if !s.moveRL.allow(r.RemoteAddr) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}
	b := s.board(w, r)
	if b == nil {
		return
	}

	var req struct {
		Slot *int `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Slot == nil {
		jsonError(w, "Champ 'slot' requis", http.StatusBadRequest)
		return
	}
	if err := b.Engage(*req.Slot); err != nil {
		s.moveError(w, err)
		return
	}

	s.sse.Publish(b.ID, Event{Type: "tile_engaged", Data: map[string]any{"slot": *req.Slot}})
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/boards/{id}/release — the gesture ends, over a slot or nowhere.
func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	if !s.moveRL.allow(r.RemoteAddr) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}
	b := s.board(w, r)
	if b == nil {
		return
	}

	var req struct {
		Slot *int `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "Requête invalide", http.StatusBadRequest)
		return
	}

	slot, ok := noSlot, req.Slot != nil
	if ok {
		slot = *req.Slot
	}
	res, err := b.Release(slot, ok)
	if err != nil {
		s.moveError(w, err)
		return
	}

	s.sse.Publish(b.ID, Event{Type: "tile_released"})
	s.publishMove(b.ID, res)
	writeJSON(w, http.StatusOK, res)
}

// POST /api/boards/{id}/swap — exchange two slots.
func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	if !s.moveRL.allow(r.RemoteAddr) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}
	b := s.board(w, r)
	if b == nil {
		return
	}

	var req struct {
		A *int `json:"a"`
		B *int `json:"b"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.A == nil || req.B == nil {
		jsonError(w, "Champs 'a' et 'b' requis", http.StatusBadRequest)
		return
	}

	res, err := b.Swap(*req.A, *req.B)
	if err != nil {
		s.moveError(w, err)
		return
	}

	s.publishMove(b.ID, res)
	writeJSON(w, http.StatusOK, res)
}

// GET /api/boards/{id}/tiles/{tile} — PNG of one tile.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	b := s.board(w, r)
	if b == nil {
		return
	}
	id, err := strconv.Atoi(r.PathValue("tile"))
	if err != nil {
		jsonError(w, "Pièce introuvable", http.StatusNotFound)
		return
	}
	data, ok := b.TileImage(id)
	if !ok {
		jsonError(w, "Pièce introuvable", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

// GET /api/boards/{id}/events — SSE stream.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	b := s.board(w, r)
	if b == nil {
		return
	}
	s.sse.ServeSSE(w, r, b.ID, Event{Type: "board_state", Data: map[string]any{"board": b.View()}})
}

// --- Frontend page handlers ---

// GET /board/{id} — serve the puzzle page for an existing board.
func (s *Server) handleBoardPage(w http.ResponseWriter, _ *http.Request) {
	data, _ := frontendFS.ReadFile("frontend/index.html")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// --- Helpers ---

func (s *Server) board(w http.ResponseWriter, r *http.Request) *Board {
	b := s.store.GetBoard(r.PathValue("id"))
	if b == nil {
		jsonError(w, "Plateau introuvable", http.StatusNotFound)
	}
	return b
}

func (s *Server) publishMove(boardID string, res MoveResult) {
	if res.Swapped {
		s.sse.Publish(boardID, Event{Type: "tiles_swapped", Data: map[string]any{
			"a":     res.A,
			"b":     res.B,
			"board": res.Board,
		}})
	}
	if res.Celebration != nil {
		s.logger.Info("puzzle solved", zap.String("board", boardID))
		s.sse.Publish(boardID, Event{Type: "puzzle_solved", Data: map[string]any{
			"celebration": res.Celebration,
		}})
	}
}

func (s *Server) moveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoPuzzle):
		jsonError(w, "Aucune image chargée", http.StatusConflict)
	case errors.Is(err, ErrSolved):
		jsonError(w, "Puzzle déjà terminé", http.StatusConflict)
	case errors.Is(err, ErrSlotRange):
		jsonError(w, "Case hors limites", http.StatusBadRequest)
	default:
		s.logger.Error("move", zap.Error(err))
		jsonError(w, "Erreur interne", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
