package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
	"github.com/alwitt/catalog/store"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// shutdownGracePeriod time allowed for in-flight requests on shutdown
const shutdownGracePeriod = 10 * time.Second

// Server catalog editor HTTP server
type Server struct {
	goutils.RestAPIHandler
	cfg      *Config
	sessions *SessionManager
	router   chi.Router
	kinds    []string
}

/*
NewServer define a new catalog editor HTTP server

	@param ctx context.Context - execution context
	@param cfg *Config - server configuration
	@param repositories map[string]store.Repository - the repository of each entity kind
	@returns new server
*/
func NewServer(
	ctx context.Context, cfg *Config, repositories map[string]store.Repository,
) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("no server configuration given")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sessions, err := NewSessionManager(SessionManagerParams{
		Repositories:    repositories,
		DefaultPageSize: cfg.DefaultPageSize,
		IdleTTL:         cfg.SessionTTL,
		SecureCookie:    cfg.IsProduction(),
	})
	if err != nil {
		return nil, err
	}

	instance := &Server{
		RestAPIHandler: newRestAPIHandler(
			cfg, log.Fields{"module": "server", "component": "http-server"},
		),
		cfg:      cfg,
		sessions: sessions,
	}
	for kind := range repositories {
		instance.kinds = append(instance.kinds, kind)
	}
	sort.Strings(instance.kinds)

	if err := instance.installRoutes(); err != nil {
		return nil, err
	}

	log.WithFields(instance.GetLogTagsForContext(ctx)).
		WithField("kinds", instance.kinds).
		Info("HTTP server ready")
	return instance, nil
}

// installRoutes define the router
func (s *Server) installRoutes() error {
	router := chi.NewRouter()
	router.Use(middlewareStack(s.cfg)...)

	router.Group(func(r chi.Router) {
		r.Use(requestLogging(s.RestAPIHandler))
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			respond(r.Context(), s.RestAPIHandler, w, http.StatusOK, s.GetStdRESTSuccessMsg(r.Context()))
		})
		r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; version=0.0.4")
			vm.WritePrometheus(w, true)
		})
	})

	for _, kind := range s.kinds {
		handler, err := newEntityHandler(kind, s.sessions, s.cfg)
		if err != nil {
			return err
		}
		router.Route("/"+kind, func(r chi.Router) {
			// Long lived stream on a hijacked connection, outside of the access log and timeout
			r.Get("/events", handler.Events)

			r.Group(func(r chi.Router) {
				r.Use(requestLogging(handler.RestAPIHandler))
				r.Use(middleware.Timeout(s.cfg.RequestTimeout))

				r.Get("/", handler.List)
				r.Get("/editor", handler.Editor)
				r.Get("/{id}/edit", handler.Enter)
				r.Get("/{id}/history", handler.History)
				r.Post("/select/{id}", handler.Select)
				r.Post("/deselect", handler.Deselect)
				r.Post("/new", handler.StartNew)
				r.Patch("/editor/fields", handler.SetFields)
				r.Post("/editor/attachment", handler.Upload)
				r.Post("/editor/save", handler.Save)
				r.Post("/editor/delete", handler.Delete)
				r.Post("/editor/cancel", handler.Cancel)
			})
		})
	}

	s.router = router
	return nil
}

// Handler the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions the session table
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

/*
ListenAndServe serve until the context is cancelled, then shut down gracefully

	@param ctx context.Context - execution context
*/
func (s *Server) ListenAndServe(ctx context.Context) error {
	logTags := s.GetLogTagsForContext(ctx)

	httpSrv := &http.Server{
		Addr:              s.cfg.AppAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sessions.Run(sweepCtx, s.cfg.SessionTTL/2)

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logTags).WithField("addr", s.cfg.AppAddr).Info("Listening")
		serveErr <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server failed [%w]", err)
	case <-ctx.Done():
	}

	log.WithFields(logTags).Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed [%w]", err)
	}
	return nil
}
