package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	respond "github.com/veilrep/repledger/internal/api/respond"
	"github.com/veilrep/repledger/internal/model"
	"github.com/veilrep/repledger/internal/services"
)

// ActivityHandler serves the encrypted activity ingestion and lookup routes.
type ActivityHandler struct {
	svc *services.LedgerService
}

func NewActivityHandler(svc *services.LedgerService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// SubmitActivity handles POST /api/activities.
func (h *ActivityHandler) SubmitActivity(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID  uint64            `json:"userId"`
		Posts   *model.Ciphertext `json:"posts"`
		Replies *model.Ciphertext `json:"replies"`
		Likes   *model.Ciphertext `json:"likes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if in.Posts == nil || in.Replies == nil || in.Likes == nil {
		respond.WriteBadRequest(w, "posts, replies and likes ciphertexts are required")
		return
	}
	rec, err := h.svc.SubmitActivity(r.Context(), in.UserID, in.Posts, in.Replies, in.Likes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, rec)
}

// GetActivity handles GET /api/activities/{id}.
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rec, err := h.svc.GetActivity(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rec)
}

// ListActivities handles GET /api/users/{userId}/activities.
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	recs, err := h.svc.ListActivities(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"activities": recs,
		"count":      len(recs),
	})
}

// pathID parses a numeric path variable, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respond.WriteBadRequest(w, name+" must be a decimal integer")
		return 0, false
	}
	return id, true
}
