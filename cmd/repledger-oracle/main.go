// Command repledger-oracle is the development decryption oracle. It holds the
// BFV secret key and an ed25519 signing key, accepts ciphertext submissions
// from the ledger, and posts signed plaintext callbacks back.
//
// The production oracle is an external system; this binary exists so the full
// request/callback loop can run locally.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/veilrep/repledger/internal/api/recovery"
	respond "github.com/veilrep/repledger/internal/api/respond"
	"github.com/veilrep/repledger/internal/he"
	"github.com/veilrep/repledger/internal/logger"
	"github.com/veilrep/repledger/internal/model"
	"github.com/veilrep/repledger/internal/oracle"
)

type devOracle struct {
	dec     *he.Decrypter
	signKey ed25519.PrivateKey
	ledger  *resty.Client
	nextID  atomic.Uint64
	log     zerolog.Logger
}

func main() {
	listen := flag.String("listen", ":8090", "listen address")
	ledgerURL := flag.String("ledger-url", "http://localhost:8080", "ledger service base URL for callbacks")
	preset := flag.String("preset", he.PresetPN12, "BFV parameter preset")
	secretKeyPath := flag.String("secret-key", "keys/bfv.sec", "BFV secret key file")
	publicKeyPath := flag.String("public-key", "keys/bfv.pub", "BFV public key file")
	signKeyPath := flag.String("sign-key", "keys/oracle.key", "ed25519 signing key file (hex)")
	flag.Parse()

	log := logger.New("repledger-oracle")

	o, err := newDevOracle(*preset, *secretKeyPath, *publicKeyPath, *signKeyPath, *ledgerURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("oracle startup failed")
	}

	router := mux.NewRouter()
	router.Use(recovery.Middleware)
	router.HandleFunc("/api/decryptions", o.handleSubmit).Methods("POST")
	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods("GET")

	server := &http.Server{
		Addr:         *listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("listen", *listen).Str("ledger_url", *ledgerURL).Msg("oracle starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down oracle")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
}

func newDevOracle(preset, secretKeyPath, publicKeyPath, signKeyPath, ledgerURL string, log zerolog.Logger) (*devOracle, error) {
	skBytes, err := os.ReadFile(secretKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read secret key %s: %w", secretKeyPath, err)
	}
	pkBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key %s: %w", publicKeyPath, err)
	}
	dec, err := he.NewDecrypter(preset, skBytes, pkBytes)
	if err != nil {
		return nil, err
	}

	signHex, err := os.ReadFile(signKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read signing key %s: %w", signKeyPath, err)
	}
	signKey, err := hex.DecodeString(strings.TrimSpace(string(signHex)))
	if err != nil {
		return nil, fmt.Errorf("signing key %s is not valid hex: %w", signKeyPath, err)
	}
	if len(signKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d", ed25519.PrivateKeySize, len(signKey))
	}

	client := resty.New().
		SetBaseURL(ledgerURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	return &devOracle{dec: dec, signKey: signKey, ledger: client, log: log}, nil
}

// handleSubmit accepts a ciphertext, acknowledges with a request id, and
// completes the decryption out of band.
func (o *devOracle) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Ciphertext *model.Ciphertext `json:"ciphertext"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Ciphertext == nil {
		respond.WriteBadRequest(w, "ciphertext required")
		return
	}
	requestID := o.nextID.Add(1)
	go o.resolve(requestID, in.Ciphertext)
	respond.WriteJSON(w, http.StatusAccepted, map[string]interface{}{"requestId": requestID})
}

// resolve decrypts and posts the signed callback.
func (o *devOracle) resolve(requestID uint64, ct *model.Ciphertext) {
	cleartext, err := o.dec.Decrypt(ct)
	if err != nil {
		o.log.Error().Err(err).Uint64("request_id", requestID).Msg("decryption failed, dropping request")
		return
	}
	proof := oracle.Sign(o.signKey, requestID, cleartext)

	resp, err := o.ledger.R().
		SetBody(map[string]interface{}{
			"requestId": requestID,
			"cleartext": cleartext,
			"proof":     proof,
		}).
		Post("/api/decryption-callbacks")
	if err != nil {
		o.log.Error().Err(err).Uint64("request_id", requestID).Msg("callback delivery failed")
		return
	}
	if resp.IsError() {
		o.log.Warn().Uint64("request_id", requestID).Str("status", resp.Status()).Msg("ledger rejected callback")
		return
	}
	o.log.Info().Uint64("request_id", requestID).Uint32("cleartext", cleartext).Msg("decryption callback delivered")
}
