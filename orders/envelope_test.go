package orders

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/nautilus-tee/order-signer/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) *kms.KeyManager {
	t.Helper()
	km := kms.NewKeyManager()
	require.NoError(t, km.EnsureInitialized())
	return km
}

func verifySigned(t *testing.T, signed *SignedOrderResponse) {
	t.Helper()

	pub, err := base64.StdEncoding.DecodeString(signed.PublicKey)
	require.NoError(t, err)
	sig, err := base64.StdEncoding.DecodeString(signed.Signature)
	require.NoError(t, err)
	require.Len(t, sig, ed25519.SignatureSize)

	msg, err := signed.Response.SigningMessage()
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(pub), msg, sig))
}

func TestSealResponse_Verifies(t *testing.T) {
	km := newTestSigner(t)

	signed, err := SealResponse(km, sampleResponse())
	require.NoError(t, err)

	assert.Equal(t, SchemeEd25519, signed.Scheme)
	assert.Equal(t, *sampleResponse(), signed.Response)
	verifySigned(t, signed)
}

func TestSealResponse_BitFlipFailsVerification(t *testing.T) {
	km := newTestSigner(t)
	resp := sampleResponse()

	signed, err := SealResponse(km, resp)
	require.NoError(t, err)

	pub, err := km.PublicKey()
	require.NoError(t, err)
	sig, err := base64.StdEncoding.DecodeString(signed.Signature)
	require.NoError(t, err)

	msg, err := resp.SigningMessage()
	require.NoError(t, err)

	// Flipping any single bit of the signed message breaks verification.
	for i := 0; i < len(msg); i++ {
		mutated := make([]byte, len(msg))
		copy(mutated, msg)
		mutated[i] ^= 0x01
		assert.False(t, ed25519.Verify(pub, mutated, sig), "bit flip at byte %d must fail", i)
	}
}

func TestSealResponse_DomainSeparation(t *testing.T) {
	km := newTestSigner(t)
	resp := sampleResponse()

	signed, err := SealResponse(km, resp)
	require.NoError(t, err)

	pub, err := km.PublicKey()
	require.NoError(t, err)
	sig, err := base64.StdEncoding.DecodeString(signed.Signature)
	require.NoError(t, err)

	// The same canonical bytes under a different tag must not verify.
	canonical, err := resp.CanonicalBytes()
	require.NoError(t, err)
	otherTag := append([]byte("nautilus/order/v2"), canonical...)
	assert.False(t, ed25519.Verify(pub, otherTag, sig))

	// Bare canonical bytes without the tag must not verify either.
	assert.False(t, ed25519.Verify(pub, canonical, sig))
}

func TestSealResponse_UninitializedSigner(t *testing.T) {
	km := kms.NewKeyManager()

	_, err := SealResponse(km, sampleResponse())
	assert.ErrorIs(t, err, kms.ErrUninitializedKey)
}

func TestSealResponse_EncodingFailure(t *testing.T) {
	km := newTestSigner(t)
	resp := sampleResponse()
	resp.Status = OrderStatus("voided")

	_, err := SealResponse(km, resp)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestSealResponse_RepeatSigningBothVerify(t *testing.T) {
	km := newTestSigner(t)
	resp := sampleResponse()

	s1, err := SealResponse(km, resp)
	require.NoError(t, err)
	s2, err := SealResponse(km, resp)
	require.NoError(t, err)

	assert.Equal(t, s1.Response, s2.Response)
	assert.Equal(t, s1.PublicKey, s2.PublicKey)
	verifySigned(t, s1)
	verifySigned(t, s2)
}
