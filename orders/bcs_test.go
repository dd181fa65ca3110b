package orders

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResponse() *SignableOrderResponse {
	return &SignableOrderResponse{
		Version:           1,
		OrderID:           "o1",
		Action:            ActionDeposit,
		Status:            StatusEscrowed,
		Amount:            500,
		Currency:          "USD",
		ServerTimestampMs: 1234,
	}
}

func TestCanonicalBytes_ByteLayout(t *testing.T) {
	got, err := sampleResponse().CanonicalBytes()
	require.NoError(t, err)

	want := []byte{
		0x01,                 // version
		0x02, 'o', '1',       // order_id: uleb len + bytes
		0x01,                 // action: deposit variant
		0x01,                 // status: escrowed variant
		0xf4, 0x01, 0, 0, 0, 0, 0, 0, // amount 500 LE
		0x03, 'U', 'S', 'D',  // currency
		0xd2, 0x04, 0, 0, 0, 0, 0, 0, // server_timestamp_ms 1234 LE
		0x00, // escrow_tx_id: none
		0x00, // notes: none
	}
	assert.Equal(t, want, got)
}

func TestCanonicalBytes_Deterministic(t *testing.T) {
	a, err := sampleResponse().CanonicalBytes()
	require.NoError(t, err)
	b, err := sampleResponse().CanonicalBytes()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestCanonicalBytes_DistinctValuesDistinctBytes(t *testing.T) {
	base, err := sampleResponse().CanonicalBytes()
	require.NoError(t, err)

	tx := "0xabc"
	note := "held"
	variants := []func(*SignableOrderResponse){
		func(r *SignableOrderResponse) { r.Version = 2 },
		func(r *SignableOrderResponse) { r.OrderID = "o2" },
		func(r *SignableOrderResponse) { r.Action = ActionRelease },
		func(r *SignableOrderResponse) { r.Status = StatusReleased },
		func(r *SignableOrderResponse) { r.Amount = 501 },
		func(r *SignableOrderResponse) { r.Currency = "EUR" },
		func(r *SignableOrderResponse) { r.ServerTimestampMs = 1235 },
		func(r *SignableOrderResponse) { r.EscrowTxID = &tx },
		func(r *SignableOrderResponse) { r.Notes = &note },
	}

	for i, mutate := range variants {
		r := sampleResponse()
		mutate(r)
		enc, err := r.CanonicalBytes()
		require.NoError(t, err)
		assert.False(t, bytes.Equal(base, enc), "mutation %d should change the encoding", i)
	}
}

func TestCanonicalBytes_LongStringLengthPrefix(t *testing.T) {
	r := sampleResponse()
	r.OrderID = string(bytes.Repeat([]byte{'x'}, 300))

	enc, err := r.CanonicalBytes()
	require.NoError(t, err)

	// 300 = 0xac 0x02 as ULEB128.
	assert.Equal(t, byte(0xac), enc[1])
	assert.Equal(t, byte(0x02), enc[2])
	assert.Equal(t, byte('x'), enc[3])
}

func TestCanonicalBytes_InvalidVariant(t *testing.T) {
	r := sampleResponse()
	r.Status = OrderStatus("voided")

	_, err := r.CanonicalBytes()
	assert.ErrorIs(t, err, ErrEncoding)

	r = sampleResponse()
	r.Action = OrderAction("settle")
	_, err = r.CanonicalBytes()
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestSigningMessage_DomainTagPrefix(t *testing.T) {
	r := sampleResponse()
	msg, err := r.SigningMessage()
	require.NoError(t, err)

	canonical, err := r.CanonicalBytes()
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(msg, []byte(DomainTag)))
	assert.Equal(t, canonical, msg[len(DomainTag):])
}
