package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"jobRadarAPI/internal/types/profile"
	"jobRadarAPI/middleware"

	"github.com/gorilla/mux"
)

// AdminStore is the slice of AdminService the admin endpoints need.
type AdminStore interface {
	ListUsers(ctx context.Context, page, limit int, search, accountType string) (*profile.AdminUserList, error)
	UpdateUser(ctx context.Context, userID string, accountType, fullName *string) (*profile.Profile, error)
	GetUserAccountType(ctx context.Context, userID string) (profile.AccountType, error)
	DeleteUser(ctx context.Context, userID string) error
}

// ProfileDirectory resolves the calling admin's own profile.
type ProfileDirectory interface {
	GetProfileByClerkID(ctx context.Context, clerkID string) (*profile.Profile, error)
}

type AdminHandler struct {
	store    AdminStore
	profiles ProfileDirectory
}

func NewAdminHandler(store AdminStore, profiles ProfileDirectory) *AdminHandler {
	return &AdminHandler{
		store:    store,
		profiles: profiles,
	}
}

// requireAdmin resolves the caller and enforces the admin account type.
func (h *AdminHandler) requireAdmin(ctx context.Context, w http.ResponseWriter) (*profile.Profile, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return nil, false
	}

	p, err := h.profiles.GetProfileByClerkID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusForbidden, "Admin access required")
		return nil, false
	}
	if p.AccountType != profile.AccountAdmin {
		respondWithError(w, http.StatusForbidden, "Admin access required")
		return nil, false
	}
	return p, true
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := h.requireAdmin(ctx, w); !ok {
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	list, err := h.store.ListUsers(ctx, page, limit, q.Get("search"), q.Get("accountType"))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

// UpdateUser applies an admin edit to another user. Billing-owned fields are
// rejected outright: tier and query limits only change through subscription
// events.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := h.requireAdmin(ctx, w)
	if !ok {
		return
	}

	targetID := mux.Vars(r)["id"]
	if targetID == "" {
		respondWithError(w, http.StatusBadRequest, "User id is required")
		return
	}

	var req profile.AdminUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.SubscriptionTier != nil || req.MaxActiveQueries != nil {
		respondWithError(w, http.StatusBadRequest, "Subscription tier and query limits are managed by billing")
		return
	}

	if req.AccountType != nil {
		if !profile.AccountType(*req.AccountType).Valid() {
			respondWithError(w, http.StatusBadRequest, "Invalid account type")
			return
		}
		if targetID == caller.ID {
			respondWithError(w, http.StatusBadRequest, "Admins cannot change their own account type")
			return
		}
	}

	p, err := h.store.UpdateUser(ctx, targetID, req.AccountType, req.FullName)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// DeleteUser removes a user and all their data. Self-deletion and deleting
// other admins are both blocked.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := h.requireAdmin(ctx, w)
	if !ok {
		return
	}

	targetID := mux.Vars(r)["id"]
	if targetID == "" {
		respondWithError(w, http.StatusBadRequest, "User id is required")
		return
	}
	if targetID == caller.ID {
		respondWithError(w, http.StatusBadRequest, "Admins cannot delete their own account")
		return
	}

	targetType, err := h.store.GetUserAccountType(ctx, targetID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	if targetType == profile.AccountAdmin {
		respondWithError(w, http.StatusForbidden, "Admin accounts cannot be deleted here")
		return
	}

	if err := h.store.DeleteUser(ctx, targetID); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}
