package kms

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/crypto/hkdf"
)

// SeedSize is the number of bytes drawn from the randomness source to
// derive the signing key.
const SeedSize = ed25519.SeedSize

// hkdfInfo domain-separates seed-derived signing keys from any other key
// material that might share the same seed.
var hkdfInfo = []byte("order-signer/signing-key/v1")

var (
	// ErrRandomnessUnavailable indicates the secure randomness source could
	// not supply seed bytes during initialization. Fatal at startup.
	ErrRandomnessUnavailable = errors.New("kms: secure randomness unavailable")

	// ErrUninitializedKey indicates Sign or PublicKey was called before
	// EnsureInitialized completed. This is a contract violation by the
	// integrator, surfaced as an error rather than a panic.
	ErrUninitializedKey = errors.New("kms: signing key not initialized")
)

// KeyManager holds the process-wide ephemeral ed25519 signing key.
//
// The zero value is not usable; construct with NewKeyManager (or the With*
// variants) and call EnsureInitialized before serving requests. Once
// initialized, Sign and PublicKey are read-only over the stored key and
// safe for unbounded concurrent use.
type KeyManager struct {
	rand io.Reader

	ready atomic.Bool
	mu    sync.Mutex
	priv  ed25519.PrivateKey
	pub   ed25519.PublicKey
}

// NewKeyManager creates an uninitialized KeyManager that will draw its seed
// from crypto/rand.
func NewKeyManager() *KeyManager {
	return &KeyManager{rand: rand.Reader}
}

// WithRand creates a KeyManager drawing its seed from r, carrying over
// any key the receiver already generated. Used in tests to inject failing
// or deterministic sources.
func (k *KeyManager) WithRand(r io.Reader) *KeyManager {
	newkm := &KeyManager{
		rand: r,
		priv: k.priv,
		pub:  k.pub,
	}
	newkm.ready.Store(k.ready.Load())
	return newkm
}

// WithSeed creates a KeyManager whose key is derived deterministically
// from seed via HKDF-SHA256, carrying over any key the receiver already
// generated. Development and testing only; the seed must be at least
// SeedSize bytes.
func (k *KeyManager) WithSeed(seed []byte) (*KeyManager, error) {
	if len(seed) < SeedSize {
		return nil, fmt.Errorf("kms: seed must be at least %d bytes", SeedSize)
	}
	return k.WithRand(hkdf.New(sha256.New, seed, nil, hkdfInfo)), nil
}

// EnsureInitialized generates the signing key on first call and is a no-op
// afterwards. Safe to call concurrently; exactly one caller generates the
// key. A failed randomness draw returns ErrRandomnessUnavailable and
// leaves the manager uninitialized, so a later call may retry.
func (k *KeyManager) EnsureInitialized() error {
	if k.ready.Load() {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.ready.Load() {
		return nil
	}

	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(k.rand, seed); err != nil {
		return fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
	}

	priv := ed25519.NewKeyFromSeed(seed)
	k.priv = priv
	k.pub = priv.Public().(ed25519.PublicKey)
	k.ready.Store(true)
	return nil
}

// PublicKey returns the raw ed25519 public key, or ErrUninitializedKey if
// EnsureInitialized has not completed.
func (k *KeyManager) PublicKey() (ed25519.PublicKey, error) {
	if !k.ready.Load() {
		return nil, ErrUninitializedKey
	}
	return k.pub, nil
}

// PublicKeyBase64 returns the standard-base64 rendering of the public key.
func (k *KeyManager) PublicKeyBase64() (string, error) {
	pub, err := k.PublicKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(pub), nil
}

// Sign returns the 64-byte ed25519 signature over exactly the given
// message bytes, or ErrUninitializedKey if initialization has not
// completed. The key is never mutated.
func (k *KeyManager) Sign(message []byte) ([]byte, error) {
	if !k.ready.Load() {
		return nil, ErrUninitializedKey
	}
	return ed25519.Sign(k.priv, message), nil
}
