package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"appdl/internal/logging"
	"appdl/internal/media"
	"appdl/internal/queue"
	"appdl/internal/services"
	"appdl/internal/workflow"
)

// Jobs is the job manager surface driven by the API.
type Jobs interface {
	Submit(ctx context.Context, rawURL string) (*queue.Job, error)
	Get(ctx context.Context, id string) (*queue.Job, error)
	List(ctx context.Context, filter queue.JobFilter) ([]*queue.Job, error)
	Retry(ctx context.Context, id string) (*queue.Job, error)
	Cancel(ctx context.Context, id string) (*queue.Job, error)
	Pause(ctx context.Context, id string) (*queue.Job, error)
	Resume(ctx context.Context, id string) (*queue.Job, error)
	Status(ctx context.Context) workflow.StatusSummary
}

// Notifications is the notification log surface.
type Notifications interface {
	List(ctx context.Context, filter queue.NotificationFilter) ([]*queue.Notification, int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) (int64, error)
	Append(ctx context.Context, n *queue.Notification) error
}

// CookieJar stores cookies pushed by the browser extension.
type CookieJar interface {
	ReplaceCookies(ctx context.Context, origin string, cookies []media.Cookie) error
}

// MediaCatalog resolves library entries.
type MediaCatalog interface {
	GetMedia(ctx context.Context, id string) (*media.Item, error)
}

// Options wires the router to its collaborators.
type Options struct {
	// Token enables bearer authentication when non-empty.
	Token          string
	AllowedOrigins []string

	Jobs          Jobs
	Notifications Notifications
	Cookies       CookieJar
	Media         MediaCatalog

	// Status reports daemon runtime state; nil falls back to the manager
	// summary alone.
	Status func(ctx context.Context) DaemonStatus
	// Health runs readiness probes; nil reports healthy with no checks.
	Health func(ctx context.Context) HealthResponse

	Logger *slog.Logger
}

type server struct {
	opts   Options
	logger *slog.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) http.Handler {
	srv := &server{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "api")}

	r := chi.NewRouter()
	r.Use(requestID, middleware.RealIP, srv.requestLogger, middleware.Recoverer, cors(opts.AllowedOrigins))

	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(opts.Token))

		r.Get("/api/status", srv.handleStatus)
		r.Post("/api/download", srv.handleDownload)

		r.Route("/api/jobs", func(r chi.Router) {
			r.Get("/", srv.handleListJobs)
			r.Get("/{id}", srv.handleGetJob)
			r.Post("/{id}/retry", srv.jobAction(srv.opts.Jobs.Retry))
			r.Post("/{id}/cancel", srv.jobAction(srv.opts.Jobs.Cancel))
			r.Post("/{id}/pause", srv.jobAction(srv.opts.Jobs.Pause))
			r.Post("/{id}/resume", srv.jobAction(srv.opts.Jobs.Resume))
		})

		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", srv.handleListNotifications)
			r.Post("/read-all", srv.handleMarkAllRead)
			r.Post("/{id}/read", srv.handleMarkRead)
		})

		r.Post("/api/update-cookies", srv.handleUpdateCookies)
		r.Get("/api/media/{id}", srv.handleGetMedia)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "route not found", Kind: string(services.KindNotFound)})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", Kind: string(services.KindValidation)})
	})
	return r
}
