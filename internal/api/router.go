package api

import (
	"github.com/gorilla/mux"

	"github.com/veilrep/repledger/internal/api/recovery"
	"github.com/veilrep/repledger/internal/services"
)

// NewRouter wires all API routes against the ledger and decryption services.
func NewRouter(ledger *services.LedgerService, decrypt *services.DecryptionService, isHealthy func() bool) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware)

	activityHandler := NewActivityHandler(ledger)
	scoreHandler := NewScoreHandler(ledger)
	decryptionHandler := NewDecryptionHandler(decrypt)
	healthHandler := NewHealthHandler(isHealthy)

	// Health endpoint
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	// Activity endpoints
	router.HandleFunc("/api/activities", activityHandler.SubmitActivity).Methods("POST")
	router.HandleFunc("/api/activities/{id:[0-9]+}", activityHandler.GetActivity).Methods("GET")
	router.HandleFunc("/api/users/{userId:[0-9]+}/activities", activityHandler.ListActivities).Methods("GET")

	// Score endpoints
	router.HandleFunc("/api/activities/{id:[0-9]+}/compute", scoreHandler.ComputeActivity).Methods("POST")
	router.HandleFunc("/api/users/{userId:[0-9]+}/score/aggregate", scoreHandler.Aggregate).Methods("POST")
	router.HandleFunc("/api/users/{userId:[0-9]+}/score", scoreHandler.GetScore).Methods("GET")
	router.HandleFunc("/api/users/{userId:[0-9]+}/reputation", scoreHandler.GetReputation).Methods("GET")

	// Decryption protocol endpoints
	router.HandleFunc("/api/users/{userId:[0-9]+}/decryption-requests", decryptionHandler.RequestDecryption).Methods("POST")
	router.HandleFunc("/api/decryption-callbacks", decryptionHandler.HandleCallback).Methods("POST")

	return router
}
