package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"appdl/internal/logging"
	"appdl/internal/media"
	"appdl/internal/notifications"
	"appdl/internal/platform"
	"appdl/internal/services"
)

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Checks: []HealthCheck{}}
	if s.opts.Health != nil {
		resp = s.opts.Health(r.Context())
	}
	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Status != nil {
		writeJSON(w, http.StatusOK, s.opts.Status(r.Context()))
		return
	}
	writeJSON(w, http.StatusOK, DaemonStatus{
		Running:  true,
		Workflow: FromStatusSummary(s.opts.Jobs.Status(r.Context())),
	})
}

// handleUpdateCookies replaces the cookie set for the URL's host. Failed jobs
// are not retried; the next attempt on that host picks the cookies up.
func (s *server) handleUpdateCookies(w http.ResponseWriter, r *http.Request) {
	var req CookieUpdateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	parsed, err := platform.Normalize(req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	host := platform.CanonicalHost(parsed.Hostname())

	cookies := make([]media.Cookie, 0, len(req.Cookies))
	for _, c := range req.Cookies {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			s.writeError(w, r, services.Wrap(services.ErrValidation, "api", "update cookies", "cookie name is required", nil))
			return
		}
		cookies = append(cookies, c)
	}

	if err := s.opts.Cookies.ReplaceCookies(r.Context(), host, cookies); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.opts.Notifications.Append(r.Context(), notifications.CookiesUpdated(host, len(cookies))); err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "cookie update notification not recorded", "notification_append_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "cookies were stored; only the notification is missing"),
		)
	}
	logging.WithContext(r.Context(), s.logger).Info("cookies updated",
		logging.String(logging.FieldEventType, "cookies_updated"),
		logging.String("host", host),
		logging.Int("count", len(cookies)),
	)
	writeJSON(w, http.StatusOK, CookieUpdateResponse{Status: "ok", Count: len(cookies)})
}

func (s *server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	item, err := s.opts.Media.GetMedia(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FromMediaItem(item))
}
