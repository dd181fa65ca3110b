// Package kms manages the enclave's ephemeral signing key.
//
// The KeyManager owns a single ed25519 keypair for the lifetime of the
// process. The key is generated exactly once, from a cryptographically
// secure randomness source, and is never rotated, persisted, or exported
// in private form. All request handlers share one KeyManager value that is
// constructed at startup and passed down explicitly; there is no
// package-level key state.
//
// # Initialization Contract
//
// EnsureInitialized must complete successfully before PublicKey or Sign
// are usable. It is safe to call from any number of goroutines: exactly one
// caller performs the randomness draw and key derivation, all others
// observe the same key. A failed draw leaves the manager uninitialized and
// is reported as ErrRandomnessUnavailable; the server treats this as fatal
// and refuses to start.
//
// Calling PublicKey or Sign before initialization is an integration bug,
// not an environmental condition. It is reported as ErrUninitializedKey
// rather than allowed to crash the process, so a caller racing requests
// against startup sees an error response instead of taking the enclave
// down.
//
// # Deterministic Keys
//
// WithSeed derives the keypair from a caller-supplied seed via HKDF,
// producing the same key on every run. This mirrors production key
// generation byte-for-byte apart from the randomness source and exists for
// development and tests only.
package kms
