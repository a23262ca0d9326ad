package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"appdl/internal/platform"
	"appdl/internal/queue"
	"appdl/internal/services"
)

func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.opts.Jobs.Submit(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, DownloadResponse{JobID: job.ID, Job: FromJob(job)})
}

func (s *server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseJobFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jobs, err := s.opts.Jobs.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, JobListResponse{Jobs: FromJobs(jobs)})
}

func (s *server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.opts.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, JobResponse{Job: FromJob(job)})
}

// jobAction adapts a manager operation keyed by job id.
func (s *server) jobAction(op func(context.Context, string) (*queue.Job, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := op(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, JobResponse{Job: FromJob(job)})
	}
}

// splitList splits repeated and comma-separated query values.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for part := range strings.SplitSeq(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func parseJobFilter(r *http.Request) (queue.JobFilter, error) {
	query := r.URL.Query()
	var filter queue.JobFilter
	for _, value := range splitList(query["status"]) {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return filter, services.Wrap(services.ErrValidation, "api", "list jobs", "unknown status "+strconv.Quote(value), nil)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, value := range splitList(query["platform"]) {
		plat, ok := platform.Parse(value)
		if !ok {
			return filter, services.Wrap(services.ErrValidation, "api", "list jobs", "unknown platform "+strconv.Quote(value), nil)
		}
		filter.Platforms = append(filter.Platforms, plat)
	}
	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	return filter, nil
}

func parseLimit(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 0 {
		return 0, services.Wrap(services.ErrValidation, "api", "parse limit", "limit must be a non-negative integer", nil)
	}
	return limit, nil
}
