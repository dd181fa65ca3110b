package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nautilus-tee/order-signer/cryptoutils"
	"github.com/nautilus-tee/order-signer/kms"
	"github.com/nautilus-tee/order-signer/metrics"
	"github.com/nautilus-tee/order-signer/orders"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// RequestError carries an HTTP status alongside the underlying error.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

// Handler processes HTTP requests for the order-signing service. It holds
// the process-wide key manager and attestation provider; both are
// constructed once at startup and shared by all requests.
type Handler struct {
	km          *kms.KeyManager
	attestation cryptoutils.AttestationProvider
	log         *slog.Logger
}

// NewHandler creates a request handler around an initialized key manager.
func NewHandler(km *kms.KeyManager, attestation cryptoutils.AttestationProvider, log *slog.Logger) *Handler {
	return &Handler{
		km:          km,
		attestation: attestation,
		log:         log,
	}
}

// HandlePing responds to liveness pokes from humans and smoke tests.
func (h *Handler) HandlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Pong!"))
}

// HandleProcessOrder decodes an order request, computes its disposition,
// and returns the signed response.
//
// Client errors (malformed JSON, missing required fields, actions outside
// the closed set) are rejected with 400 before the pipeline runs. Pipeline
// failures are server errors; their messages never include signing input
// or key material.
func (h *Handler) HandleProcessOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	signed, rerr := h.processOrder(r)
	if rerr != nil {
		if rerr.StatusCode >= http.StatusInternalServerError {
			metrics.IncSignFailures()
			h.log.Error("Order signing failed", "err", rerr.Err)
			http.Error(w, "internal error", rerr.StatusCode)
		} else {
			metrics.IncBadRequests()
			h.log.Debug("Rejected order request", "err", rerr.Err)
			http.Error(w, rerr.Error(), rerr.StatusCode)
		}
		return
	}

	metrics.IncOrdersProcessed()
	h.log.Info("Signed order response",
		"orderID", signed.Response.OrderID,
		"action", string(signed.Response.Action),
		"status", string(signed.Response.Status),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(signed)
}

func (h *Handler) processOrder(r *http.Request) (*orders.SignedOrderResponse, *RequestError) {
	var req orders.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, &RequestError{StatusCode: http.StatusBadRequest, Err: err}
	}

	resp := orders.MakeResponse(&req)

	signed, err := orders.SealResponse(h.km, resp)
	if err != nil {
		// Both encoding and key errors are internal; an uninitialized key
		// here means requests raced server startup.
		return nil, &RequestError{StatusCode: http.StatusInternalServerError, Err: err}
	}
	return signed, nil
}

// HandleOrdersHealth reports the signing public key currently in use, so
// verifiers can learn the key without submitting an order.
func (h *Handler) HandleOrdersHealth(w http.ResponseWriter, r *http.Request) {
	pkB64, err := h.km.PublicKeyBase64()
	if err != nil {
		h.log.Error("Health check before key initialization", "err", err)
		http.Error(w, "signing key unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":             "ok",
		"ed25519_pubkey_b64": pkB64,
	})
}

// HandleAttestation returns attestation evidence whose report data binds
// the signing public key, letting a remote verifier tie the key to the
// enclave measurement.
func (h *Handler) HandleAttestation(w http.ResponseWriter, r *http.Request) {
	pub, err := h.km.PublicKey()
	if err != nil {
		if errors.Is(err, kms.ErrUninitializedKey) {
			http.Error(w, "signing key unavailable", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	evidence, err := h.attestation.Attest(cryptoutils.SigningKeyReportData(pub))
	if err != nil {
		h.log.Error("Attestation generation failed", "err", err)
		http.Error(w, "attestation unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"attestation_type": h.attestation.AttestationType(),
		"attestation":      base64.StdEncoding.EncodeToString(evidence),
	})
}
