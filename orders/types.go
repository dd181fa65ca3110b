package orders

import (
	"encoding/json"
	"fmt"
)

// SchemeEd25519 is the signature scheme identifier carried in every
// SignedOrderResponse.
const SchemeEd25519 = "ed25519"

// OrderAction is the caller's requested operation. The set is closed;
// anything else is rejected during JSON decoding and never reaches the
// pipeline.
type OrderAction string

const (
	ActionInitiate OrderAction = "initiate"
	ActionDeposit  OrderAction = "deposit"
	ActionRelease  OrderAction = "release"
	ActionRefund   OrderAction = "refund"
)

// UnmarshalJSON enforces the closed action set.
func (a *OrderAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch OrderAction(s) {
	case ActionInitiate, ActionDeposit, ActionRelease, ActionRefund:
		*a = OrderAction(s)
		return nil
	}
	return fmt.Errorf("orders: unknown action %q", s)
}

// variantIndex returns the action's position in the canonical encoding's
// variant order. The order is frozen wire format.
func (a OrderAction) variantIndex() (uint64, error) {
	switch a {
	case ActionInitiate:
		return 0, nil
	case ActionDeposit:
		return 1, nil
	case ActionRelease:
		return 2, nil
	case ActionRefund:
		return 3, nil
	}
	return 0, fmt.Errorf("unknown action %q", string(a))
}

// OrderStatus is the enclave's determination for a request.
//
// StatusRejected exists in the wire format but no mapping currently
// produces it; rejection criteria, if ever introduced, get their own
// documented transition table.
type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusEscrowed OrderStatus = "escrowed"
	StatusReleased OrderStatus = "released"
	StatusRefunded OrderStatus = "refunded"
	StatusRejected OrderStatus = "rejected"
)

// UnmarshalJSON enforces the closed status set.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch OrderStatus(str) {
	case StatusPending, StatusEscrowed, StatusReleased, StatusRefunded, StatusRejected:
		*s = OrderStatus(str)
		return nil
	}
	return fmt.Errorf("orders: unknown status %q", str)
}

func (s OrderStatus) variantIndex() (uint64, error) {
	switch s {
	case StatusPending:
		return 0, nil
	case StatusEscrowed:
		return 1, nil
	case StatusReleased:
		return 2, nil
	case StatusRefunded:
		return 3, nil
	case StatusRejected:
		return 4, nil
	}
	return 0, fmt.Errorf("unknown status %q", string(s))
}

// OrderRequest is the client's instruction as received at the HTTP
// boundary. All fields except Action and the timing fields are passed
// through unchanged into the response, including empty strings and zero
// amounts.
type OrderRequest struct {
	Version           uint8           `json:"version"`
	OrderID           string          `json:"order_id"`
	Customer          string          `json:"customer"`
	Merchant          string          `json:"merchant"`
	Amount            uint64          `json:"amount"`
	Currency          string          `json:"currency"`
	Action            OrderAction     `json:"action"`
	ClientTimestampMs *uint64         `json:"client_timestamp_ms"`
	Metadata          json.RawMessage `json:"metadata"`
}

// UnmarshalJSON rejects requests missing any required field. Unknown extra
// fields are ignored; empty strings and zero amounts are valid values and
// pass through.
func (r *OrderRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Version           *uint8          `json:"version"`
		OrderID           *string         `json:"order_id"`
		Customer          *string         `json:"customer"`
		Merchant          *string         `json:"merchant"`
		Amount            *uint64         `json:"amount"`
		Currency          *string         `json:"currency"`
		Action            *OrderAction    `json:"action"`
		ClientTimestampMs *uint64         `json:"client_timestamp_ms"`
		Metadata          json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for _, f := range []struct {
		name string
		ok   bool
	}{
		{"version", raw.Version != nil},
		{"order_id", raw.OrderID != nil},
		{"customer", raw.Customer != nil},
		{"merchant", raw.Merchant != nil},
		{"amount", raw.Amount != nil},
		{"currency", raw.Currency != nil},
		{"action", raw.Action != nil},
	} {
		if !f.ok {
			return fmt.Errorf("orders: missing required field %q", f.name)
		}
	}

	r.Version = *raw.Version
	r.OrderID = *raw.OrderID
	r.Customer = *raw.Customer
	r.Merchant = *raw.Merchant
	r.Amount = *raw.Amount
	r.Currency = *raw.Currency
	r.Action = *raw.Action
	r.ClientTimestampMs = raw.ClientTimestampMs
	r.Metadata = raw.Metadata
	return nil
}

// SignableOrderResponse is the exact object placed under the signature.
// Field order matches the canonical encoding; do not add, remove, or
// reorder fields.
type SignableOrderResponse struct {
	Version           uint8       `json:"version"`
	OrderID           string      `json:"order_id"`
	Action            OrderAction `json:"action"`
	Status            OrderStatus `json:"status"`
	Amount            uint64      `json:"amount"`
	Currency          string      `json:"currency"`
	ServerTimestampMs uint64      `json:"server_timestamp_ms"`
	EscrowTxID        *string     `json:"escrow_tx_id"`
	Notes             *string     `json:"notes"`
}

// SignedOrderResponse is the externally visible signed artifact.
type SignedOrderResponse struct {
	Response  SignableOrderResponse `json:"response"`
	Signature string                `json:"signature"`
	PublicKey string                `json:"public_key"`
	Scheme    string                `json:"scheme"`
}
