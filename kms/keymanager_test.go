package kms

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("entropy pool exhausted")
}

func TestKeyManager_EnsureInitialized(t *testing.T) {
	km := NewKeyManager()
	require.NoError(t, km.EnsureInitialized())

	pub, err := km.PublicKey()
	require.NoError(t, err)
	assert.Len(t, pub, ed25519.PublicKeySize)

	// Repeated calls keep the same key.
	require.NoError(t, km.EnsureInitialized())
	pub2, err := km.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, pub, pub2)
}

func TestKeyManager_ConcurrentInit(t *testing.T) {
	km := NewKeyManager()

	const callers = 32
	keys := make([]ed25519.PublicKey, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := km.EnsureInitialized(); err != nil {
				t.Error(err)
				return
			}
			pub, err := km.PublicKey()
			if err != nil {
				t.Error(err)
				return
			}
			keys[i] = pub
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.True(t, bytes.Equal(keys[0], keys[i]), "all callers must observe the same key")
	}
}

func TestKeyManager_UninitializedAccess(t *testing.T) {
	km := NewKeyManager()

	_, err := km.PublicKey()
	assert.ErrorIs(t, err, ErrUninitializedKey)

	_, err = km.PublicKeyBase64()
	assert.ErrorIs(t, err, ErrUninitializedKey)

	_, err = km.Sign([]byte("message"))
	assert.ErrorIs(t, err, ErrUninitializedKey)
}

func TestKeyManager_RandomnessUnavailable(t *testing.T) {
	km := NewKeyManager().WithRand(failingReader{})

	err := km.EnsureInitialized()
	require.ErrorIs(t, err, ErrRandomnessUnavailable)

	// A failed draw must leave the manager uninitialized.
	_, err = km.Sign([]byte("message"))
	assert.ErrorIs(t, err, ErrUninitializedKey)
}

func TestKeyManager_WithSeedDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, SeedSize)

	km1, err := NewKeyManager().WithSeed(seed)
	require.NoError(t, err)
	km2, err := NewKeyManager().WithSeed(seed)
	require.NoError(t, err)

	require.NoError(t, km1.EnsureInitialized())
	require.NoError(t, km2.EnsureInitialized())

	pk1, err := km1.PublicKeyBase64()
	require.NoError(t, err)
	pk2, err := km2.PublicKeyBase64()
	require.NoError(t, err)
	assert.Equal(t, pk1, pk2, "same seed must derive the same key")

	_, err = NewKeyManager().WithSeed([]byte("short"))
	assert.Error(t, err, "should reject seeds shorter than SeedSize")
}

func TestKeyManager_WithPreservesGeneratedKey(t *testing.T) {
	km := NewKeyManager()
	require.NoError(t, km.EnsureInitialized())
	pk, err := km.PublicKeyBase64()
	require.NoError(t, err)

	// Deriving after initialization must not drop the generated key.
	derived := km.WithRand(failingReader{})
	require.NoError(t, derived.EnsureInitialized())
	pkDerived, err := derived.PublicKeyBase64()
	require.NoError(t, err)
	assert.Equal(t, pk, pkDerived)

	seeded, err := km.WithSeed(bytes.Repeat([]byte{0x42}, SeedSize))
	require.NoError(t, err)
	pkSeeded, err := seeded.PublicKeyBase64()
	require.NoError(t, err)
	assert.Equal(t, pk, pkSeeded)
}

func TestKeyManager_SignVerifies(t *testing.T) {
	km := NewKeyManager()
	require.NoError(t, km.EnsureInitialized())

	msg := []byte("attested disposition")
	sig, err := km.Sign(msg)
	require.NoError(t, err)
	require.Len(t, sig, ed25519.SignatureSize)

	pub, err := km.PublicKey()
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(pub, msg, sig))
	assert.False(t, ed25519.Verify(pub, append([]byte("x"), msg...), sig))
}
