// Package server exposes the student analytics over a small JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/mhan0505/student-management-system/internal/analysis"
	"github.com/mhan0505/student-management-system/internal/repository"
	"github.com/mhan0505/student-management-system/internal/session"
)

// Server serves reports computed from the repository behind a session.
// Every report request loads a fresh dataset and runs its own pipeline.
type Server struct {
	sess    *session.Session
	opts    analysis.Options
	log     *zap.SugaredLogger
	metrics *metrics
	router  chi.Router
}

// New builds the router. opts are the base pipeline options that query
// parameters may override per request.
func New(sess *session.Session, opts analysis.Options, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{sess: sess, opts: opts, log: log, metrics: newMetrics()}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.metrics.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/students", s.listStudents)
		r.Delete("/students/{id}", s.deleteStudent)
		r.Get("/report", s.report)
		r.Get("/outliers/{column}", s.outliers)
		r.Get("/undo", s.listBackups)
		r.Post("/undo/{id}", s.undo)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Infow("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) listStudents(w http.ResponseWriter, r *http.Request) {
	d, err := s.sess.Repository().FetchAll(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, d)
}

func (s *Server) deleteStudent(w http.ResponseWriter, r *http.Request) {
	b, err := s.sess.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, b)
}

func (s *Server) listBackups(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.sess.Backups())
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	b, err := s.sess.Undo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, b)
}

// report runs the full pipeline. ?format=markdown returns the text report.
func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.run(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		render.PlainText(w, r, res.Markdown())
		return
	}
	render.JSON(w, r, res)
}

func (s *Server) outliers(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	col := chi.URLParam(r, "column")
	opts.OutlierColumns = []string{col}
	opts.Treatment = analysis.TreatNone
	res, err := s.run(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	set, _ := res.OutliersFor(col)
	render.JSON(w, r, set)
}

func (s *Server) run(ctx context.Context, opts analysis.Options) (*analysis.Result, error) {
	p, err := analysis.NewPipeline(opts, s.log)
	if err != nil {
		return nil, err
	}
	d, err := s.sess.Repository().FetchAll(ctx)
	if err != nil {
		s.metrics.pipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	res, err := p.Run(d)
	if err != nil {
		s.metrics.pipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	s.metrics.pipelineRuns.WithLabelValues("ok").Inc()
	for _, set := range res.Outliers {
		s.metrics.outliersFlagged.WithLabelValues(set.Bounds.Column).Set(float64(set.Count()))
	}
	return res, nil
}

// requestOptions applies multiplier, top_k and treatment query overrides.
func (s *Server) requestOptions(r *http.Request) (analysis.Options, error) {
	opts := s.opts
	q := r.URL.Query()
	if v := q.Get("multiplier"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil || !(m > 0) {
			return opts, &badRequest{fmt.Errorf("multiplier %q: %w", v, analysis.ErrInvalidMultiplier)}
		}
		opts.Multiplier = m
	}
	if v := q.Get("top_k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil || k < 1 {
			return opts, &badRequest{fmt.Errorf("top_k %q: %w", v, analysis.ErrInvalidK)}
		}
		opts.TopK = k
	}
	if v := q.Get("treatment"); v != "" {
		t, err := analysis.ParseTreatment(v)
		if err != nil {
			return opts, err
		}
		opts.Treatment = t
	}
	return opts, nil
}

type badRequest struct{ err error }

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error  string `json:"error"`
	Op     string `json:"op,omitempty"`
	Column string `json:"column,omitempty"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	var ce *analysis.ColumnError
	if errors.As(err, &ce) {
		resp.Op, resp.Column = ce.Op, ce.Column
	}
	if status >= http.StatusInternalServerError {
		s.log.Errorw("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.log.Debugw("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

func statusFor(err error) int {
	var br *badRequest
	var ce *analysis.ColumnError
	switch {
	case errors.As(err, &br), errors.As(err, &ce),
		errors.Is(err, analysis.ErrInvalidMultiplier),
		errors.Is(err, analysis.ErrInvalidK),
		errors.Is(err, analysis.ErrUnknownTreatment):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, session.ErrNoBackup):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
