// Package server provides the HTTP front end: a single page, image analysis,
// per-session sample collection and training, quiz grading and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ripecheck/internal/config"
	rimage "ripecheck/internal/image"
	"ripecheck/internal/learn"
	"ripecheck/internal/logger"
	"ripecheck/internal/metrics"
	"ripecheck/internal/quiz"
	"ripecheck/internal/ripeness"
)

var (
	// ErrNoImage is returned when a sample or training request arrives
	// before the session has an image.
	ErrNoImage = errors.New("no current image")
	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the session table is full.
	ErrTooManySessions = errors.New("too many sessions")
)

const maxQuizBytes = 64 << 10

// DecodeFunc decodes an upload into a preview of the given width.
type DecodeFunc func(r io.Reader, width int) (*image.NRGBA, error)

// Server serves the page and JSON API.
type Server struct {
	cfg      config.Config
	decode   DecodeFunc
	analyzer *ripeness.Analyzer
	key      quiz.AnswerKey
	metrics  *metrics.Metrics
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// sessionEntry pairs a session with the last time a request touched it.
type sessionEntry struct {
	sess     *learn.Session
	lastUsed atomic.Int64 // unix nanoseconds
}

func (e *sessionEntry) touch(t time.Time) { e.lastUsed.Store(t.UnixNano()) }

func (e *sessionEntry) idleSince(t time.Time) time.Duration {
	return t.Sub(time.Unix(0, e.lastUsed.Load()))
}

// New creates a server. A nil decode uses the pure-Go decoder.
func New(cfg config.Config, decode DecodeFunc) *Server {
	if decode == nil {
		decode = rimage.DecodePreview
	}
	s := &Server{
		cfg:      cfg,
		decode:   decode,
		analyzer: cfg.Analyzer(),
		key:      quiz.DefaultKey(),
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
	s.metrics = metrics.New(func() float64 { return float64(s.SessionCount()) })
	return s
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *metrics.Metrics { return s.metrics }

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/image", s.handleSessionImage)
	mux.HandleFunc("POST /api/sessions/{id}/samples", s.handleAddSample)
	mux.HandleFunc("POST /api/sessions/{id}/train", s.handleTrain)
	mux.HandleFunc("GET /api/quiz", s.handleQuestions)
	mux.HandleFunc("POST /api/quiz", s.handleQuiz)
	return mux
}

// ListenAndServe serves on cfg.Server.Addr until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server", "listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()
	go s.janitor(ctx)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// janitor evicts idle sessions until ctx is cancelled.
func (s *Server) janitor(ctx context.Context) {
	idle := time.Duration(s.cfg.Server.IdleTimeout)
	if idle <= 0 {
		return
	}
	interval := idle / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval <= 0 {
		interval = idle
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.evictIdleLocked()
			s.mu.Unlock()
		}
	}
}

// evictIdleLocked drops sessions idle for longer than IdleTimeout. Sessions
// that are training are kept. s.mu must be held for writing.
func (s *Server) evictIdleLocked() int {
	idle := time.Duration(s.cfg.Server.IdleTimeout)
	if idle <= 0 {
		return 0
	}
	now := s.now()
	evicted := 0
	for id, e := range s.sessions {
		if e.idleSince(now) < idle || e.sess.Training() {
			continue
		}
		delete(s.sessions, id)
		evicted++
		logger.Debug("server", "session %s evicted after %s idle", id, e.idleSince(now).Round(time.Second))
	}
	if evicted > 0 {
		s.metrics.SessionsEvicted.Add(float64(evicted))
	}
	return evicted
}

// CreateSession registers a new training session, first freeing any that
// have gone idle.
func (s *Server) CreateSession() (*learn.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictIdleLocked()
	if len(s.sessions) >= s.cfg.Server.MaxSessions {
		return nil, ErrTooManySessions
	}
	sess := learn.NewSession(uuid.NewString(), s.cfg.LearnOptions())
	e := &sessionEntry{sess: sess}
	e.touch(s.now())
	s.sessions[sess.ID] = e
	logger.Debug("server", "session %s created (%d active)", sess.ID, len(s.sessions))
	return sess, nil
}

// Session looks up a session by ID and marks it as used.
func (s *Server) Session(id string) (*learn.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.touch(s.now())
	return e.sess, nil
}

// DeleteSession drops a session and its samples.
func (s *Server) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	logger.Debug("server", "session %s released (%d active)", id, len(s.sessions))
	return nil
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

// analyzeUpload decodes the "image" form file and analyzes it.
func (s *Server) analyzeUpload(w http.ResponseWriter, r *http.Request) (ripeness.Report, int, error) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)

	file, _, err := r.FormFile("image")
	if err != nil {
		return ripeness.Report{}, http.StatusBadRequest, fmt.Errorf("missing image: %w", err)
	}
	defer file.Close()

	img, err := s.decode(file, s.cfg.PreviewWidth)
	if err != nil {
		return ripeness.Report{}, http.StatusBadRequest, err
	}

	rep, err := s.analyzer.Analyze(r.Context(), img)
	if err != nil {
		return ripeness.Report{}, http.StatusInternalServerError, err
	}

	s.metrics.ImagesAnalyzed.WithLabelValues(string(rep.Label)).Inc()
	s.metrics.AnalyzeDuration.Observe(time.Since(start).Seconds())
	return rep, http.StatusOK, nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	rep, status, err := s.analyzeUpload(w, r)
	if err != nil {
		writeError(w, status, err)
		return
	}
	writeJSON(w, newReportResponse(rep))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.CreateSession()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSONWithStatus(w, map[string]any{
		"id":     sess.ID,
		"status": sess.Status(),
	}, http.StatusCreated)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.DeleteSession(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionImage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Session(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	rep, status, err := s.analyzeUpload(w, r)
	if err != nil {
		writeError(w, status, err)
		return
	}
	sess.Observe(rep.Features)

	resp := newReportResponse(rep)
	// Skipped while a training run holds the model.
	if pred, err := sess.TryPredict(rep.Features); err == nil {
		resp.Prediction = &pred
		resp.PredictionText = pred.String()
	}
	writeJSON(w, resp)
}

func (s *Server) handleAddSample(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Session(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	class, err := learn.ParseClass(r.FormValue("class"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	current := sess.Current()
	if current == nil {
		writeError(w, http.StatusConflict, ErrNoImage)
		return
	}

	n, err := sess.AddSample(current, class)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.metrics.SamplesAdded.WithLabelValues(class.String()).Inc()
	writeJSON(w, map[string]any{
		"count":  n,
		"status": sess.Status(),
	})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Session(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	current := sess.Current()
	if current == nil {
		writeError(w, http.StatusConflict, ErrNoImage)
		return
	}

	ctx := r.Context()
	if d := time.Duration(s.cfg.Server.TrainTimeout); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := time.Now()
	pred, err := sess.Train(ctx, current)
	switch {
	case errors.Is(err, learn.ErrInsufficientData):
		s.metrics.ObserveTraining(metrics.ResultInsufficient, 0)
		writeJSONWithStatus(w, map[string]any{
			"error":  err.Error(),
			"status": sess.Status(),
		}, http.StatusUnprocessableEntity)
		return
	case errors.Is(err, learn.ErrTrainingInProgress):
		s.metrics.ObserveTraining(metrics.ResultBusy, 0)
		writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, learn.ErrFeatureLength):
		s.metrics.ObserveTraining(metrics.ResultError, 0)
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.metrics.ObserveTraining(metrics.ResultError, 0)
		logger.Error("server", "session %s: train: %v", sess.ID, err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.metrics.ObserveTraining(metrics.ResultOK, time.Since(start))
	writeJSON(w, trainResponse{
		Prediction: pred,
		Text:       pred.String(),
		Status:     sess.Status(),
	})
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, quiz.DefaultQuestions())
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxQuizBytes)
	if err := r.ParseMultipartForm(maxQuizBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	answers := make(map[string]string, len(s.key))
	for _, id := range s.key.Questions() {
		if v := r.PostFormValue(id); v != "" {
			answers[id] = v
		}
	}

	res := s.key.Grade(answers)
	s.metrics.QuizSubmissions.WithLabelValues(fmt.Sprintf("%d/%d", res.Correct, res.Total)).Inc()
	writeJSON(w, quizResponse{Result: res, Text: res.String()})
}

type reportResponse struct {
	ripeness.Report
	HueText        string            `json:"hue_text"`
	ValueText      string            `json:"value_text"`
	Prediction     *learn.Prediction `json:"prediction,omitempty"`
	PredictionText string            `json:"prediction_text,omitempty"`
}

func newReportResponse(rep ripeness.Report) reportResponse {
	return reportResponse{
		Report:    rep,
		HueText:   rep.HueText(),
		ValueText: rep.ValueText(),
	}
}

type trainResponse struct {
	learn.Prediction
	Text   string `json:"text"`
	Status string `json:"status"`
}

type quizResponse struct {
	quiz.Result
	Text string `json:"text"`
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSONWithStatus(w, map[string]string{"error": err.Error()}, status)
}
