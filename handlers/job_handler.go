package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"jobRadarAPI/internal/types/job"
	"jobRadarAPI/middleware"
	"jobRadarAPI/services"
)

type JobHandler struct {
	jobService     *services.JobService
	profileService *services.ProfileService
}

func NewJobHandler(jobService *services.JobService, profileService *services.ProfileService) *JobHandler {
	return &JobHandler{
		jobService:     jobService,
		profileService: profileService,
	}
}

func (h *JobHandler) userID(ctx context.Context, w http.ResponseWriter) (string, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return "", false
	}
	p, err := h.profileService.GetProfileByClerkID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Profile not found")
		return "", false
	}
	return p.ID, true
}

func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.userID(ctx, w)
	if !ok {
		return
	}

	q := r.URL.Query()
	filters := &job.Filters{
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if v := q.Get("queryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid queryId")
			return
		}
		filters.QueryID = &id
	}
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))
	filters.Offset, _ = strconv.Atoi(q.Get("offset"))

	resp, err := h.jobService.ListJobs(ctx, userID, filters)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// DeleteJob soft-deletes a job so it disappears from listings but stays
// recoverable.
func (h *JobHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	h.setDeleted(w, r, true)
}

func (h *JobHandler) RestoreJob(w http.ResponseWriter, r *http.Request) {
	h.setDeleted(w, r, false)
}

func (h *JobHandler) setDeleted(w http.ResponseWriter, r *http.Request, deleted bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.userID(ctx, w)
	if !ok {
		return
	}

	jobID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid job id")
		return
	}

	if err := h.jobService.SetDeleted(ctx, userID, jobID, deleted); err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *JobHandler) SetApplied(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.userID(ctx, w)
	if !ok {
		return
	}

	jobID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid job id")
		return
	}

	var req struct {
		Applied bool `json:"applied"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	j, err := h.jobService.SetApplied(ctx, userID, jobID, req.Applied)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, j)
}

func (h *JobHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.userID(ctx, w)
	if !ok {
		return
	}

	stats, err := h.jobService.GetDashboardStats(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
