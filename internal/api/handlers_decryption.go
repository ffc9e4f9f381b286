package api

import (
	"encoding/json"
	"net/http"

	respond "github.com/veilrep/repledger/internal/api/respond"
	"github.com/veilrep/repledger/internal/services"
)

// DecryptionHandler serves the oracle request/callback routes.
type DecryptionHandler struct {
	svc *services.DecryptionService
}

func NewDecryptionHandler(svc *services.DecryptionService) *DecryptionHandler {
	return &DecryptionHandler{svc: svc}
}

// RequestDecryption handles POST /api/users/{userId}/decryption-requests.
func (h *DecryptionHandler) RequestDecryption(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	requestID, err := h.svc.RequestDecryption(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusAccepted, map[string]interface{}{"requestId": requestID})
}

// HandleCallback handles POST /api/decryption-callbacks, the oracle's
// authenticated response carrying the decrypted score.
func (h *DecryptionHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RequestID uint64 `json:"requestId"`
		Cleartext uint32 `json:"cleartext"`
		Proof     []byte `json:"proof"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	issued, err := h.svc.HandleCallback(r.Context(), in.RequestID, in.Cleartext, in.Proof)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"badgeIssued": issued})
}
