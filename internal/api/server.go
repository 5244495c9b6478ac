// Package api serves the JSON API of the TNR manager, the health and
// metrics endpoints and the prebuilt single page application.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mesh-intelligence/tnr/internal/attachments"
	"github.com/mesh-intelligence/tnr/internal/auth"
	"github.com/mesh-intelligence/tnr/internal/store"
)

// Options configures a Server.
type Options struct {
	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
	// StaticDir holds the front-end bundle. Empty disables static serving.
	StaticDir string
}

// Server routes HTTP requests to the store, auth and attachment services.
type Server struct {
	store   *store.Backend
	auth    *auth.Service
	google  *auth.Google
	files   *attachments.Storage
	opts    Options
	router  *mux.Router
	checker Checker

	now func() time.Time
}

// NewServer wires the routes. google may be nil when Google sign-in is
// not configured.
func NewServer(b *store.Backend, authSvc *auth.Service, google *auth.Google, files *attachments.Storage, opts Options) *Server {
	s := &Server{
		store:   b,
		auth:    authSvc,
		google:  google,
		files:   files,
		opts:    opts,
		router:  mux.NewRouter(),
		checker: NewMultiChecker(NewStoreChecker(b)),
		now:     func() time.Time { return time.Now().UTC() },
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.observe)
	r.NotFoundHandler = s.observe(http.HandlerFunc(s.notFound))
	r.MethodNotAllowedHandler = r.NotFoundHandler

	r.Handle("/health", NewHealthCheckHttpHandler(s.checker)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", s.handle(s.register)).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handle(s.login)).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.handle(s.logout)).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", s.handle(s.me)).Methods(http.MethodGet)
	api.HandleFunc("/auth/google/start", s.handle(s.googleStart)).Methods(http.MethodGet)
	api.HandleFunc("/auth/google/callback", s.handle(s.googleCallback)).Methods(http.MethodGet)

	api.HandleFunc("/projects", s.authed(s.listProjects)).Methods(http.MethodGet)
	api.HandleFunc("/projects", s.authed(s.createProject)).Methods(http.MethodPost)
	api.HandleFunc("/projects/delete", s.authed(s.deleteProject)).Methods(http.MethodPost)
	api.HandleFunc("/projects/members", s.authed(s.listMembers)).Methods(http.MethodGet)
	api.HandleFunc("/projects/members", s.authed(s.addMember)).Methods(http.MethodPost)

	api.HandleFunc("/releases", s.authed(s.listReleases)).Methods(http.MethodGet)
	api.HandleFunc("/releases", s.authed(s.createRelease)).Methods(http.MethodPost)
	api.HandleFunc("/releases/delete", s.authed(s.deleteRelease)).Methods(http.MethodPost)

	api.HandleFunc("/test_cases", s.authed(s.listTestCases)).Methods(http.MethodGet)
	api.HandleFunc("/test_cases", s.authed(s.createTestCase)).Methods(http.MethodPost)
	api.HandleFunc("/test_cases", s.authed(s.updateTestCase)).Methods(http.MethodPut)
	api.HandleFunc("/test_cases/delete", s.authed(s.deleteTestCase)).Methods(http.MethodPost)

	api.HandleFunc("/testbook/params", s.authed(s.listAxes)).Methods(http.MethodGet)
	api.HandleFunc("/testbook/params_save", s.authed(s.saveAxes)).Methods(http.MethodPost)

	api.HandleFunc("/runs", s.authed(s.listRuns)).Methods(http.MethodGet)
	api.HandleFunc("/runs/create", s.authed(s.createRun)).Methods(http.MethodPost)
	api.HandleFunc("/runs/get", s.authed(s.getRun)).Methods(http.MethodGet)
	api.HandleFunc("/runs/delete", s.authed(s.deleteRun)).Methods(http.MethodPost)
	api.HandleFunc("/runs/set_result", s.authed(s.setResult)).Methods(http.MethodPost)
	api.HandleFunc("/runs/cases/create", s.authed(s.insertRunCase)).Methods(http.MethodPost)
	api.HandleFunc("/runs/cases/update", s.authed(s.updateRunCase)).Methods(http.MethodPost)
	api.HandleFunc("/runs/cases/delete", s.authed(s.deleteRunCase)).Methods(http.MethodPost)
	api.HandleFunc("/runs/overview", s.authed(s.runOverview)).Methods(http.MethodGet)
	api.HandleFunc("/runs/threshold", s.authed(s.setThreshold)).Methods(http.MethodPost)
	api.HandleFunc("/runs/status", s.authed(s.setRunStatus)).Methods(http.MethodPost)
	api.HandleFunc("/runs/export_csv", s.authed(s.exportCSV)).Methods(http.MethodGet)
	api.HandleFunc("/runs/export_pdf", s.authed(s.exportPDF)).Methods(http.MethodGet)

	api.HandleFunc("/attachments", s.authed(s.listAttachments)).Methods(http.MethodGet)
	api.HandleFunc("/attachments/upload", s.authed(s.uploadAttachment)).Methods(http.MethodPost)
	api.HandleFunc("/attachments/{id:[0-9]+}", s.authed(s.downloadAttachment)).Methods(http.MethodGet)

	// Unknown API paths answer with JSON, never with the SPA.
	api.PathPrefix("/").HandlerFunc(s.notFound)

	if s.opts.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(newSPAFileSystem(s.opts.StaticDir)))
	}
}
