// Package server exposes an editing session over HTTP for `novella serve`.
//
// The JSON API mutates the project through the session, so every accepted
// request is autosaved before it is answered. Export endpoints render from a
// snapshot through the cached export pipeline, and /metrics serves the
// Prometheus registry.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/novella/pkg/buildinfo"
	"github.com/matzehuels/novella/pkg/editor"
	errs "github.com/matzehuels/novella/pkg/errors"
	novellaio "github.com/matzehuels/novella/pkg/io"
	"github.com/matzehuels/novella/pkg/pipeline"
	"github.com/matzehuels/novella/pkg/story"
)

// maxProjectBytes bounds PUT /api/project. Projects embed images as data
// URLs, so they are much larger than other request bodies.
const maxProjectBytes = 64 << 20

// Options configures a Server.
type Options struct {
	// AllowedOrigins enables CORS for browser editors on other origins.
	AllowedOrigins []string
	// Export holds default export options; query parameters override them.
	Export pipeline.Options
	// Metrics is served at /metrics. Nil creates a fresh collector set.
	Metrics *Metrics
}

// Server routes HTTP requests to a session.
type Server struct {
	session *editor.Session
	runner  *pipeline.Runner
	logger  *log.Logger
	metrics *Metrics
	opts    Options
}

// New creates a server. A nil logger means log.Default().
func New(sess *editor.Session, runner *pipeline.Runner, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	return &Server{
		session: sess,
		runner:  runner,
		logger:  logger,
		metrics: opts.Metrics,
		opts:    opts,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.metrics.Middleware)
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "X-Cache"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/project", s.getProject)
		r.Put("/project", s.putProject)

		r.Post("/scenes", s.createScene)
		r.Patch("/scenes/{id}", s.updateScene)
		r.Delete("/scenes/{id}", s.deleteScene)
		r.Post("/scenes/{id}/choices", s.addChoice)

		r.Patch("/choices/{id}", s.updateChoice)
		r.Delete("/choices/{id}", s.deleteChoice)

		r.Post("/layers", s.addLayer)
		r.Patch("/layers/{id}", s.updateLayer)
		r.Delete("/layers/{id}", s.deleteLayer)
		r.Post("/layers/{id}/reorder", s.reorderLayer)

		r.Put("/geometry/{id}", s.updateGeometry)
		r.Post("/images", s.placeImage)

		r.Get("/play", s.play)
		r.Post("/play/choose", s.choose)
		r.Post("/play/restart", s.restart)
	})

	r.Get("/export.html", s.export(pipeline.FormatHTML, "text/html; charset=utf-8"))
	r.Get("/export.json", s.export(pipeline.FormatJSON, "application/json"))
	r.Get("/map.svg", s.export(pipeline.FormatSVG, "image/svg+xml"))
	r.Get("/map.dot", s.export(pipeline.FormatDOT, "text/vnd.graphviz; charset=utf-8"))

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving", "addr", addr, "project", s.session.Name(), "store", s.session.Backend().Backend())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Short(),
		"project": s.session.Name(),
	})
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	data, err := s.session.Document()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) putProject(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxProjectBytes+1))
	if err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "read project"))
		return
	}
	if len(data) > maxProjectBytes {
		writeError(w, errs.New(errs.ErrCodeInvalidInput, "project exceeds %d bytes", maxProjectBytes))
		return
	}
	p, err := novellaio.Unmarshal(data)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.session.Replace(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	s.getProject(w, r)
}

func (s *Server) createScene(w http.ResponseWriter, r *http.Request) {
	id, err := s.session.CreateScene(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) updateScene(w http.ResponseWriter, r *http.Request) {
	var req sceneUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	err := s.session.UpdateScene(r.Context(), chi.URLParam(r, "id"), editor.SceneUpdate{
		Title:      req.Title,
		Body:       req.Body,
		Background: req.Background,
	})
	respondNoContent(w, err)
}

func (s *Server) deleteScene(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, s.session.DeleteScene(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) addChoice(w http.ResponseWriter, r *http.Request) {
	id, err := s.session.AddChoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) updateChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u := editor.ChoiceUpdate{Text: req.Text, Target: req.Target, Group: req.Group}
	if req.Style != nil {
		style := req.Style.model()
		u.Style = &style
	}
	respondNoContent(w, s.session.UpdateChoice(r.Context(), chi.URLParam(r, "id"), u))
}

func (s *Server) deleteChoice(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, s.session.DeleteChoice(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) addLayer(w http.ResponseWriter, r *http.Request) {
	var req layerCreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := s.session.AddLayer(r.Context(), story.LayerKind(req.Type), req.Scene)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) updateLayer(w http.ResponseWriter, r *http.Request) {
	var req layerUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u := editor.LayerUpdate{Content: req.Content, Src: req.Src}
	if req.Style != nil {
		style := req.Style.model()
		u.Style = &style
	}
	respondNoContent(w, s.session.UpdateLayer(r.Context(), chi.URLParam(r, "id"), u))
}

func (s *Server) deleteLayer(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, s.session.DeleteLayer(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) reorderLayer(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	respondNoContent(w, s.session.ReorderLayer(r.Context(), chi.URLParam(r, "id"), req.Delta))
}

func (s *Server) updateGeometry(w http.ResponseWriter, r *http.Request) {
	var req geometryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rect := story.Rect{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height}
	respondNoContent(w, s.session.UpdateGeometry(r.Context(), chi.URLParam(r, "id"), rect))
}

// placeImage accepts multipart form data with an "image" file and optional
// "scene", "x" and "y" fields (the drop point in canvas coordinates).
func (s *Server) placeImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, editor.MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(editor.MaxImageBytes); err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse upload"))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, errs.New(errs.ErrCodeInvalidInput, "image is required"))
		return
	}
	defer file.Close()

	at := editor.Placement{SceneID: r.FormValue("scene")}
	if xs, ys := r.FormValue("x"), r.FormValue("y"); xs != "" || ys != "" {
		x, errX := strconv.ParseFloat(xs, 64)
		y, errY := strconv.ParseFloat(ys, 64)
		if errX != nil || errY != nil {
			writeError(w, errs.New(errs.ErrCodeInvalidInput, "x and y must both be numbers"))
			return
		}
		at.Drop = &story.Point{X: x, Y: y}
	}

	res := <-s.session.PlaceImageAsync(r.Context(), file, at)
	if res.Err != nil {
		writeError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: res.LayerID})
}

func (s *Server) play(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newPlayResponse(s.session.Play()))
}

func (s *Server) choose(w http.ResponseWriter, r *http.Request) {
	var req chooseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, moved, err := s.session.Choose(req.Choice)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := newPlayResponse(v)
	resp.Moved = &moved
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) restart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newPlayResponse(s.session.Restart()))
}

// export renders one format from a snapshot. Query parameters title, lang,
// start and detailed override the server defaults.
func (s *Server) export(format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := s.opts.Export
		opts.Formats = nil
		q := r.URL.Query()
		if v := q.Get("title"); v != "" {
			opts.Title = v
		}
		if v := q.Get("lang"); v != "" {
			opts.Lang = v
		}
		if v := q.Get("start"); v != "" {
			opts.Start = v
		}
		if v := q.Get("detailed"); v != "" {
			opts.Detailed, _ = strconv.ParseBool(v)
		}
		opts.Logger = s.logger

		data, hit, err := s.runner.Render(r.Context(), s.session.Snapshot(), format, opts)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		if hit {
			w.Header().Set("X-Cache", "HIT")
		} else {
			w.Header().Set("X-Cache", "MISS")
		}
		_, _ = w.Write(data)
	}
}

func respondNoContent(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
