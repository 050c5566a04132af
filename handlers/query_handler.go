package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"jobRadarAPI/internal/entitlement"
	"jobRadarAPI/internal/types/query"
	"jobRadarAPI/middleware"
	"jobRadarAPI/services"

	"github.com/gorilla/mux"
)

type QueryHandler struct {
	queryService   *services.QueryService
	profileService *services.ProfileService
}

func NewQueryHandler(queryService *services.QueryService, profileService *services.ProfileService) *QueryHandler {
	return &QueryHandler{
		queryService:   queryService,
		profileService: profileService,
	}
}

// resolveUser maps the authenticated Clerk id to the internal profile and its
// entitlement view. A missing profile still yields the free view.
func (h *QueryHandler) resolveUser(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, entitlement.View, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return "", entitlement.View{}, false
	}

	p, err := h.profileService.GetProfileByClerkID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Profile not found")
		return "", entitlement.View{}, false
	}

	return p.ID, entitlement.Resolve(p), true
}

func (h *QueryHandler) ListQueries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, _, ok := h.resolveUser(ctx, w, r)
	if !ok {
		return
	}

	queries, err := h.queryService.ListQueries(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, queries)
}

func (h *QueryHandler) GetQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, _, ok := h.resolveUser(ctx, w, r)
	if !ok {
		return
	}

	queryID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid query id")
		return
	}

	q, err := h.queryService.GetQuery(ctx, userID, queryID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Query not found")
		return
	}

	respondWithJSON(w, http.StatusOK, q)
}

func (h *QueryHandler) CreateQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, view, ok := h.resolveUser(ctx, w, r)
	if !ok {
		return
	}

	if !view.CanCreateQueries {
		respondWithError(w, http.StatusForbidden, "An active subscription is required to create queries")
		return
	}

	var req query.CreateQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if view.MaxQueries != entitlement.Unlimited {
		existing, err := h.queryService.ListQueries(ctx, userID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		active := 0
		for _, q := range existing {
			if q.IsActive {
				active++
			}
		}
		if active >= view.MaxQueries {
			respondWithError(w, http.StatusForbidden, "Active query limit reached for your plan")
			return
		}
	}

	q, err := h.queryService.CreateQuery(ctx, userID, &req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, q)
}

func (h *QueryHandler) UpdateQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, _, ok := h.resolveUser(ctx, w, r)
	if !ok {
		return
	}

	queryID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid query id")
		return
	}

	var req query.UpdateQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	q, err := h.queryService.UpdateQuery(ctx, userID, queryID, &req)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, q)
}

// PauseQuery stops a query from being scraped. Pausing never needs an
// entitlement: users can always scale down.
func (h *QueryHandler) PauseQuery(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// ResumeQuery reactivates a paused query, gated on the resume entitlement.
func (h *QueryHandler) ResumeQuery(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *QueryHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, view, ok := h.resolveUser(ctx, w, r)
	if !ok {
		return
	}

	if active && !view.CanResumeQueries {
		respondWithError(w, http.StatusForbidden, "An active subscription is required to resume queries")
		return
	}

	queryID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid query id")
		return
	}

	q, err := h.queryService.SetActive(ctx, userID, queryID, active)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, q)
}

func (h *QueryHandler) DeleteQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, _, ok := h.resolveUser(ctx, w, r)
	if !ok {
		return
	}

	queryID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid query id")
		return
	}

	if err := h.queryService.DeleteQuery(ctx, userID, queryID); err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Query deleted"})
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[key], 10, 64)
}
