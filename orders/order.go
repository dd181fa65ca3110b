package orders

import (
	"encoding/base64"
	"fmt"
	"time"
)

// Signer abstracts the enclave key operations the envelope needs. The
// kms.KeyManager satisfies it.
type Signer interface {
	// Sign returns the signature over exactly the given bytes.
	Sign(message []byte) ([]byte, error)

	// PublicKeyBase64 returns the base64 rendering of the signing public key.
	PublicKeyBase64() (string, error)
}

// MakeResponse computes the disposition for a request. It is a pure
// function of the request and the current wall clock: fields are copied
// through unvalidated, no cross-request state is consulted, and it never
// fails.
//
// The mapping is policy, not protocol; a later version may consult
// external escrow state before deciding.
func MakeResponse(req *OrderRequest) *SignableOrderResponse {
	var status OrderStatus
	var notes *string
	switch req.Action {
	case ActionInitiate:
		status = StatusPending
	case ActionDeposit:
		status = StatusEscrowed
	case ActionRelease:
		status = StatusReleased
	case ActionRefund:
		status = StatusRefunded
	}

	return &SignableOrderResponse{
		Version:           req.Version,
		OrderID:           req.OrderID,
		Action:            req.Action,
		Status:            status,
		Amount:            req.Amount,
		Currency:          req.Currency,
		ServerTimestampMs: unixTimeMs(),
		EscrowTxID:        nil,
		Notes:             notes,
	}
}

// SealResponse canonically encodes the response, signs
// DomainTag || canonical bytes via the signer, and assembles the signed
// artifact. Stateless; each call is independent.
func SealResponse(signer Signer, resp *SignableOrderResponse) (*SignedOrderResponse, error) {
	msg, err := resp.SigningMessage()
	if err != nil {
		return nil, err
	}

	sig, err := signer.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("orders: signing response for order %q: %w", resp.OrderID, err)
	}

	pubB64, err := signer.PublicKeyBase64()
	if err != nil {
		return nil, fmt.Errorf("orders: exporting public key: %w", err)
	}

	return &SignedOrderResponse{
		Response:  *resp,
		Signature: base64.StdEncoding.EncodeToString(sig),
		PublicKey: pubB64,
		Scheme:    SchemeEd25519,
	}, nil
}

// unixTimeMs returns wall-clock milliseconds since epoch. Disposition
// computation must never fail on a clock problem, so a pre-epoch reading
// degrades to the sentinel 0.
func unixTimeMs() uint64 {
	ms := time.Now().UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}
