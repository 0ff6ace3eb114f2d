// Package server provides the HTTP and WebSocket control surface
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/quizzard/quizzard/internal/assist"
	"github.com/quizzard/quizzard/internal/layout"
	"github.com/quizzard/quizzard/internal/pipeline"
	"github.com/quizzard/quizzard/internal/question"
	"github.com/quizzard/quizzard/internal/store"
	"github.com/quizzard/quizzard/internal/trace"
)

// Message types.
type Message struct {
	Type string `json:"type"`
}

type AutoMessage struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

type CycleMessage struct {
	Type   string               `json:"type"`
	Record pipeline.CycleRecord `json:"record"`
}

type RateLimitedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server exposes the solving pipeline, the question database, and layout
// management over HTTP and WebSocket.
type Server struct {
	runner *pipeline.Runner
	db     *question.Database
	store  *store.Store
	assist assist.Provider // nil when no provider configured

	mu     sync.RWMutex
	conns  map[*websocket.Conn]struct{}
	limits map[*websocket.Conn]*rateLimiter
}

// New creates a server. provider may be nil.
func New(runner *pipeline.Runner, db *question.Database, st *store.Store, provider assist.Provider) *Server {
	s := &Server{
		runner: runner,
		db:     db,
		store:  st,
		assist: provider,
		conns:  make(map[*websocket.Conn]struct{}),
		limits: make(map[*websocket.Conn]*rateLimiter),
	}

	go s.broadcastCycles()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/solve", s.handleSolve)
	mux.HandleFunc("POST /api/auto", s.handleAuto)

	mux.HandleFunc("GET /api/unknowns", s.handleUnknownList)
	mux.HandleFunc("POST /api/unknowns/{id}/resolve", s.handleUnknownResolve)
	mux.HandleFunc("POST /api/unknowns/{id}/suggest", s.handleUnknownSuggest)
	mux.HandleFunc("DELETE /api/unknowns/{id}", s.handleUnknownDelete)

	mux.HandleFunc("GET /api/questions", s.handleQuestionList)
	mux.HandleFunc("POST /api/questions", s.handleQuestionAdd)
	mux.HandleFunc("PUT /api/questions", s.handleQuestionUpdate)
	mux.HandleFunc("DELETE /api/questions", s.handleQuestionDelete)

	mux.HandleFunc("GET /api/layouts", s.handleLayoutList)
	mux.HandleFunc("POST /api/layouts", s.handleLayoutSave)
	mux.HandleFunc("POST /api/layouts/{id}/activate", s.handleLayoutActivate)
	mux.HandleFunc("DELETE /api/layouts/{id}", s.handleLayoutDelete)

	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.limits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.limits, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		rl := s.limits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, RateLimitedMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "solve":
			// Result arrives on every connection via the cycle broadcast.
			go func() {
				if _, err := s.runner.Solve(context.Background()); err != nil && !errors.Is(err, pipeline.ErrBusy) {
					log.Error("solve trigger failed", "error", err)
				}
			}()
		case "auto":
			var auto AutoMessage
			if err := json.Unmarshal(msg, &auto); err != nil {
				continue
			}
			s.runner.Gate().SetEnabled(auto.Enabled)
		}
	}
}

func (s *Server) broadcastCycles() {
	for rec := range s.runner.History().Events() {
		msg := CycleMessage{Type: "cycle", Record: rec}

		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn) {
				_ = wsjson.Write(context.Background(), c, msg)
			}(conn)
		}
		s.mu.RUnlock()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	builtin, user, unknowns := s.db.Counts()
	layoutName := ""
	if l := s.runner.Layout(); l != nil {
		layoutName = l.Name
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"auto":   s.runner.Gate().IsEnabled(),
		"stats":  s.runner.Stats(),
		"layout": layoutName,
		"questions": map[string]int{
			"builtin":  builtin,
			"user":     user,
			"unknowns": unknowns,
		},
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	n := DefaultHistoryLimit
	if raw := r.URL.Query().Get("n"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}
	writeJSON(w, http.StatusOK, s.runner.History().Recent(n))
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	rec, err := s.runner.Solve(r.Context())
	if errors.Is(err, pipeline.ErrBusy) {
		writeError(w, http.StatusConflict, "solve cycle already running")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAuto(w http.ResponseWriter, r *http.Request) {
	var req AutoMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.runner.Gate().SetEnabled(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"auto": req.Enabled})
}

func (s *Server) handleUnknownList(w http.ResponseWriter, r *http.Request) {
	us := s.db.Unknowns()
	if us == nil {
		us = []question.UnknownQuestion{}
	}
	writeJSON(w, http.StatusOK, us)
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	return id, err == nil
}

func (s *Server) findUnknown(id uuid.UUID) (question.UnknownQuestion, bool) {
	for _, u := range s.db.Unknowns() {
		if u.ID == id {
			return u, true
		}
	}
	return question.UnknownQuestion{}, false
}

func (s *Server) handleUnknownResolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Answer string `json:"answer"`
		Text   string `json:"text,omitempty"` // optional corrected question text
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Answer) == "" {
		writeError(w, http.StatusBadRequest, "answer required")
		return
	}

	u, found := s.findUnknown(id)
	if !found {
		writeError(w, http.StatusNotFound, "unknown question not found")
		return
	}

	text := u.QuestionText
	resolved := false
	if req.Text != "" {
		text = req.Text
		resolved = s.db.ResolveUnknownWithCleanText(id, req.Text, req.Answer)
	} else {
		resolved = s.db.ResolveUnknown(id, req.Answer)
	}
	if !resolved {
		writeError(w, http.StatusConflict, "could not resolve unknown")
		return
	}

	if err := s.store.ResolveUnknown(id, question.QuestionAnswer{Text: text, Answer: req.Answer}); err != nil {
		trace.Logger(r.Context()).Error("persist resolve failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func (s *Server) handleUnknownSuggest(w http.ResponseWriter, r *http.Request) {
	if s.assist == nil {
		writeError(w, http.StatusNotImplemented, "no assist provider configured")
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	u, found := s.findUnknown(id)
	if !found {
		writeError(w, http.StatusNotFound, "unknown question not found")
		return
	}
	if len(u.DetectedOptions) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no detected options to choose from")
		return
	}

	answer, err := s.assist.Answer(r.Context(), nil, u.QuestionText, u.DetectedOptions)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if err := s.store.SetUnknownAnswer(id, answer); err != nil {
		trace.Logger(r.Context()).Error("persist suggestion failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"provider": s.assist.Name(),
		"answer":   answer,
	})
}

func (s *Server) handleUnknownDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if !s.db.DeleteUnknown(id) {
		writeError(w, http.StatusNotFound, "unknown question not found")
		return
	}
	if err := s.store.DeleteUnknown(id); err != nil {
		trace.Logger(r.Context()).Error("persist delete failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleQuestionList(w http.ResponseWriter, r *http.Request) {
	qs := s.db.UserQuestions()
	if qs == nil {
		qs = []question.QuestionAnswer{}
	}
	writeJSON(w, http.StatusOK, qs)
}

func decodeQuestion(w http.ResponseWriter, r *http.Request) (question.QuestionAnswer, bool) {
	var q question.QuestionAnswer
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil || strings.TrimSpace(q.Text) == "" {
		writeError(w, http.StatusBadRequest, "question text required")
		return q, false
	}
	return q, true
}

func (s *Server) handleQuestionAdd(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(q.Answer) == "" {
		writeError(w, http.StatusBadRequest, "answer required")
		return
	}
	if !s.db.AddQuestion(q) {
		writeError(w, http.StatusConflict, "question already exists")
		return
	}
	if err := s.store.UpsertUserQuestion(q); err != nil {
		trace.Logger(r.Context()).Error("persist question failed", "error", err)
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *Server) handleQuestionUpdate(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	if !s.db.UpdateUserQuestion(q.Text, q.Answer) {
		writeError(w, http.StatusNotFound, "question not found in user set")
		return
	}
	if err := s.store.UpsertUserQuestion(q); err != nil {
		trace.Logger(r.Context()).Error("persist question failed", "error", err)
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleQuestionDelete(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	if !s.db.DeleteUserQuestion(q.Text) {
		writeError(w, http.StatusNotFound, "question not found in user set")
		return
	}
	if err := s.store.DeleteUserQuestion(q.Text); err != nil {
		trace.Logger(r.Context()).Error("persist delete failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleLayoutList(w http.ResponseWriter, r *http.Request) {
	ls, err := s.store.ListLayouts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ls == nil {
		ls = []store.StoredLayout{}
	}
	writeJSON(w, http.StatusOK, ls)
}

func (s *Server) handleLayoutSave(w http.ResponseWriter, r *http.Request) {
	var l layout.Layout
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeError(w, http.StatusBadRequest, "invalid layout body")
		return
	}
	if l.Name == "" {
		writeError(w, http.StatusBadRequest, "layout name required")
		return
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
		l.CreatedAt = time.Now().UTC()
	}
	if err := s.store.SaveLayout(&l); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleLayoutActivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.store.ActivateLayout(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	active, err := s.store.ActiveLayout()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.runner.SetLayout(active)
	writeJSON(w, http.StatusOK, active)
}

func (s *Server) handleLayoutDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.store.DeleteLayout(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Deleting the active layout drops the runner back to flat mode.
	if active := s.runner.Layout(); active != nil && active.ID == id {
		s.runner.SetLayout(nil)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
