package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"appdl/internal/queue"
	"appdl/internal/services"
)

func (s *server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, ok := queue.ParseNotificationFilter(query.Get("filter"))
	if !ok {
		s.writeError(w, r, services.Wrap(services.ErrValidation, "api", "list notifications",
			"unknown filter "+strconv.Quote(query.Get("filter")), nil))
		return
	}
	filter.JobID = strings.TrimSpace(query.Get("job"))
	filter.Search = strings.TrimSpace(query.Get("q"))
	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filter.Limit = limit

	notes, unread, err := s.opts.Notifications.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NotificationListResponse{Notifications: FromNotifications(notes), Unread: unread})
}

func (s *server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, r, services.Wrap(services.ErrValidation, "api", "mark read", "notification id must be a positive integer", nil))
		return
	}
	if err := s.opts.Notifications.MarkRead(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := s.opts.Notifications.MarkAllRead(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MarkAllReadResponse{Updated: updated})
}
