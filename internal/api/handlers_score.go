package api

import (
	"encoding/json"
	"net/http"

	respond "github.com/veilrep/repledger/internal/api/respond"
	"github.com/veilrep/repledger/internal/services"
)

// ScoreHandler serves homomorphic aggregation and score lookup routes.
type ScoreHandler struct {
	svc *services.LedgerService
}

func NewScoreHandler(svc *services.LedgerService) *ScoreHandler {
	return &ScoreHandler{svc: svc}
}

// ComputeActivity handles POST /api/activities/{id}/compute. The weighted
// score of the single record replaces the user's stored score.
func (h *ScoreHandler) ComputeActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	score, err := h.svc.ComputeOne(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"encryptedScore": score})
}

// Aggregate handles POST /api/users/{userId}/score/aggregate. Records owned
// by other users are skipped; an unknown id fails the whole batch.
func (h *ScoreHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	var in struct {
		ActivityIDs []uint64 `json:"activityIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	score, err := h.svc.AggregateMany(r.Context(), userID, in.ActivityIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"encryptedScore": score})
}

// GetScore handles GET /api/users/{userId}/score.
func (h *ScoreHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	score, err := h.svc.GetEncryptedScore(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"encryptedScore": score})
}

// GetReputation handles GET /api/users/{userId}/reputation.
func (h *ScoreHandler) GetReputation(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	st, err := h.svc.GetReputation(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, st)
}
