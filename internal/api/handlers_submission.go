package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/backlinefm/backline/internal/api/middleware"
	"github.com/backlinefm/backline/internal/ratelimit"
	"github.com/backlinefm/backline/internal/submission"
)

func (r *Router) handleCreateSubmission(w http.ResponseWriter, req *http.Request) {
	ip := middleware.ClientIP(req)
	if d := r.rateLimitService.Check(req.Context(), ip, ratelimit.OpDemoSubmission); !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "too many submissions, please try again later",
		})
		return
	}

	var in submission.Input
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sub, err := r.submissionService.Create(req.Context(), &in)
	if err != nil {
		var verr *submission.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
		case errors.Is(err, submission.ErrDuplicate):
			writeJSON(w, http.StatusConflict, map[string]string{
				"error": "a submission for this track already exists",
			})
		default:
			r.logger.Error("creating submission failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}

	r.rateLimitService.Record(req.Context(), ip, ratelimit.OpDemoSubmission, sub.Email)
	r.logger.Info("demo submission received",
		"artist", sub.ArtistName, "track", sub.TrackTitle)
	writeJSON(w, http.StatusCreated, map[string]string{"id": sub.ID, "status": sub.Status})
}

func (r *Router) handleListSubmissions(w http.ResponseWriter, req *http.Request) {
	subs, err := r.submissionService.List(req.Context(), req.URL.Query().Get("status"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"submissions": subs,
		"count":       len(subs),
	})
}

func (r *Router) handleGetSubmission(w http.ResponseWriter, req *http.Request) {
	sub, err := r.submissionService.GetByID(req.Context(), req.PathValue("id"))
	if errors.Is(err, submission.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "submission not found"})
		return
	}
	if err != nil {
		r.logger.Error("getting submission failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (r *Router) handleUpdateSubmissionStatus(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !submission.ValidStatus(body.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		return
	}

	err := r.submissionService.UpdateStatus(req.Context(), req.PathValue("id"), body.Status)
	if errors.Is(err, submission.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "submission not found"})
		return
	}
	if err != nil {
		r.logger.Error("updating submission status failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})
}

func (r *Router) handleDeleteSubmission(w http.ResponseWriter, req *http.Request) {
	err := r.submissionService.Delete(req.Context(), req.PathValue("id"))
	if errors.Is(err, submission.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "submission not found"})
		return
	}
	if err != nil {
		r.logger.Error("deleting submission failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
