// Package server exposes the latest delivered result over an HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/elonfeng/clusterboard/internal/render"
	"github.com/elonfeng/clusterboard/pkg/cluster"
	"github.com/elonfeng/clusterboard/pkg/rank"
	"github.com/elonfeng/clusterboard/pkg/scoring"
)

const maxBodyBytes = 1 << 20

var (
	errNoResults = errors.New("no results delivered")
	errScoring   = errors.New("scoring request failed")
)

// Scorer forwards a grade sheet to the scoring service.
type Scorer interface {
	Score(ctx context.Context, grades scoring.GradeSheet) (*cluster.Payload, error)
}

// Options configures a Server.
type Options struct {
	Port        int
	DefaultSort rank.SortMode
	Highlights  rank.TopOptions
}

// Server provides the HTTP API.
type Server struct {
	scorer Scorer
	opts   Options
	logger *log.Logger
	group  singleflight.Group

	mu    sync.RWMutex
	board *rank.Board
}

// New creates a new HTTP server. scorer may be nil, in which case
// /api/v1/score answers 503.
func New(scorer Scorer, opts Options, logger *log.Logger) *Server {
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.DefaultSort == "" {
		opts.DefaultSort = rank.ModePoints
	}
	return &Server{
		scorer: scorer,
		opts:   opts,
		logger: logger,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/results", s.handleResults)
	mux.HandleFunc("/api/v1/score", s.handleScore)
	mux.HandleFunc("/api/v1/clusters", s.handleClusters)
	mux.HandleFunc("/api/v1/clusters/{id}", s.handleCluster)
	mux.HandleFunc("/api/v1/highlights", s.handleHighlights)
	mux.HandleFunc("/api/v1/aggregate", s.handleAggregate)
	mux.HandleFunc("/api/v1/report", s.handleReport)
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Deliver normalizes p and, on success, replaces the current board.
func (s *Server) Deliver(p *cluster.Payload) (*rank.Board, error) {
	b, err := rank.NewBoard(p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.board = b
	s.mu.Unlock()

	s.logger.Info("result delivered", "result_id", b.ID(), "clusters", b.Len(), "invalid", len(b.Invalid()))
	for _, verr := range b.Invalid() {
		s.logger.Warn("entry dropped", "cluster", verr.Cluster, "value", verr.Value, "reason", verr.Reason)
	}
	if unknown := b.Unknown(); len(unknown) > 0 {
		s.logger.Debug("unknown result keys skipped", "keys", unknown)
	}
	return b, nil
}

// Board returns the current board, or nil before the first delivery.
func (s *Server) Board() *rank.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	p, err := cluster.DecodePayload(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.deliverAndRespond(w, p)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if s.scorer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scoring service not configured"})
		return
	}

	var raw map[string]string
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("decode grades: %v", err)})
		return
	}
	grades, err := scoring.NormalizeGrades(raw)
	if err == nil && len(grades) == 0 {
		err = fmt.Errorf("%w: no grades", scoring.ErrInvalidGrade)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// Collapsed callers share one delivery and so one board.
	v, err, shared := s.group.Do(gradeKey(grades), func() (any, error) {
		p, err := s.scorer.Score(context.WithoutCancel(r.Context()), grades)
		if err != nil {
			s.logger.Error("scoring failed", "err", err)
			return nil, fmt.Errorf("%w: %w", errScoring, err)
		}
		return s.Deliver(p)
	})
	s.logger.Debug("scored", "subjects", len(grades), "shared", shared)
	if errors.Is(err, errScoring) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	b, _ := v.(*rank.Board)
	s.respondDelivered(w, b, err)
}

func (s *Server) deliverAndRespond(w http.ResponseWriter, p *cluster.Payload) {
	b, err := s.Deliver(p)
	s.respondDelivered(w, b, err)
}

func (s *Server) respondDelivered(w http.ResponseWriter, b *rank.Board, err error) {
	switch {
	case errors.Is(err, rank.ErrScoringFailed):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, cluster.ErrEmptyResult):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  err.Error(),
			"errors": validationMessages(err),
		})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	resp := map[string]any{
		"result_id": b.ID(),
		"clusters":  b.Len(),
		"errors":    messages(b.Invalid()),
	}
	if wmsg := b.Warning(); wmsg != "" {
		resp["warning"] = wmsg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	b, ok := s.boardFor(w, r)
	if !ok {
		return
	}

	var (
		view rank.View
		err  error
	)
	q := r.URL.Query()
	switch {
	case q.Get("control") != "":
		view, err = b.OrderByControl(q.Get("control"))
	case q.Get("sort") != "":
		var mode rank.SortMode
		if mode, err = rank.ParseMode(q.Get("sort")); err == nil {
			view, err = b.Order(mode)
		}
	default:
		view, err = b.Order(s.opts.DefaultSort)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"result_id": b.ID(),
		"mode":      view.Mode,
		"control":   view.Mode.Control(),
		"data":      view.Rows(),
		"count":     len(view.Entries),
		"visible":   len(view.Visible()),
	})
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	b, ok := s.boardFor(w, r)
	if !ok {
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid cluster id %q", r.PathValue("id"))})
		return
	}
	d, err := b.SelectCluster(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleHighlights(w http.ResponseWriter, r *http.Request) {
	b, ok := s.boardFor(w, r)
	if !ok {
		return
	}

	top := b.Highlights(s.opts.Highlights)
	type highlight struct {
		Rank int `json:"rank"`
		rank.Row
	}
	data := make([]highlight, len(top))
	for i, h := range top {
		data[i] = highlight{Rank: h.Rank, Row: rank.RowOf(h.Cluster, true)}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result_id": b.ID(),
		"data":      data,
		"count":     len(data),
	})
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	b, ok := s.boardFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result_id":        b.ID(),
		"aggregate_points": b.Aggregate().AggregatePoints,
		"detail":           b.AggregateDetail(),
		"method":           b.Method(),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	b, ok := s.boardFor(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "clusters-"+b.ID()+".txt"))
	w.WriteHeader(http.StatusOK)
	if err := render.WriteReport(w, b, s.opts.Highlights, time.Now()); err != nil {
		s.logger.Warn("write report", "err", err)
	}
}

// boardFor checks the method and fetches the current board, writing the
// error response itself when either fails.
func (s *Server) boardFor(w http.ResponseWriter, r *http.Request) (*rank.Board, bool) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return nil, false
	}
	b := s.Board()
	if b == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": errNoResults.Error()})
		return nil, false
	}
	return b, true
}

// gradeKey is a canonical form of a grade sheet for request collapsing.
func gradeKey(g scoring.GradeSheet) string {
	parts := make([]string, 0, len(g))
	for subject, grade := range g {
		parts = append(parts, subject+"="+grade)
	}
	slices.Sort(parts)
	return strings.Join(parts, "&")
}

func messages(errs cluster.ValidationErrors) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

func validationMessages(err error) []string {
	var verrs cluster.ValidationErrors
	if errors.As(err, &verrs) {
		return messages(verrs)
	}
	return []string{}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
