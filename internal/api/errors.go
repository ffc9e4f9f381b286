package api

import (
	"errors"
	"net/http"

	respond "github.com/veilrep/repledger/internal/api/respond"
	"github.com/veilrep/repledger/internal/model"
)

// writeServiceError maps service-layer sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic message so internals do not leak.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrUnknownRequest):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrCiphertextFormat):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrAlreadyMinted):
		respond.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrScoreFrozen):
		respond.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrInvalidProof):
		respond.WriteError(w, http.StatusUnauthorized, err.Error())
	default:
		respond.WriteInternalError(w, "internal error")
	}
}
