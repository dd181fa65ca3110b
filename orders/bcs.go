package orders

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// DomainTag is prepended to the canonical bytes before signing. It binds
// every signature to this protocol and version; a signature produced here
// can never verify under another protocol sharing the same key.
const DomainTag = "nautilus/order/v1"

// ErrEncoding indicates canonical serialization failed. All declared field
// types are encodable, so this only fires on a data-model invariant
// violation such as a status value outside the closed set.
var ErrEncoding = errors.New("orders: canonical encoding failed")

// encoder writes the canonical binary form: fixed field order, fixed-width
// little-endian integers, ULEB128 length prefixes, one-byte option tags,
// ULEB128 enum variant indices, no padding.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) uleb128(v uint64) {
	for v >= 0x80 {
		e.buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	e.buf.WriteByte(byte(v))
}

func (e *encoder) str(s string) {
	e.uleb128(uint64(len(s)))
	e.buf.WriteString(s)
}

func (e *encoder) optStr(s *string) {
	if s == nil {
		e.buf.WriteByte(0)
		return
	}
	e.buf.WriteByte(1)
	e.str(*s)
}

// CanonicalBytes returns the deterministic binary encoding of the
// response. Two field-for-field equal responses always encode to identical
// bytes, and responses differing in any field encode to different bytes.
func (r *SignableOrderResponse) CanonicalBytes() ([]byte, error) {
	actionIdx, err := r.Action.variantIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	statusIdx, err := r.Status.variantIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	var e encoder
	e.u8(r.Version)
	e.str(r.OrderID)
	e.uleb128(actionIdx)
	e.uleb128(statusIdx)
	e.u64(r.Amount)
	e.str(r.Currency)
	e.u64(r.ServerTimestampMs)
	e.optStr(r.EscrowTxID)
	e.optStr(r.Notes)
	return e.buf.Bytes(), nil
}

// SigningMessage returns DomainTag || CanonicalBytes(r), the exact byte
// string placed under the signature.
func (r *SignableOrderResponse) SigningMessage() ([]byte, error) {
	canonical, err := r.CanonicalBytes()
	if err != nil {
		return nil, err
	}
	msg := make([]byte, 0, len(DomainTag)+len(canonical))
	msg = append(msg, DomainTag...)
	msg = append(msg, canonical...)
	return msg, nil
}
