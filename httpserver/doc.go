// Package httpserver exposes the order-signing pipeline over HTTP.
//
// The server owns no order state. Each POST /orders/process request runs
// the stateless pipeline (disposition mapping, canonical encoding, ed25519
// signing) against the process-wide KeyManager and returns the signed
// artifact. Malformed requests are rejected at the JSON boundary and never
// reach the pipeline.
//
// Endpoints:
//
//	GET  /                 - ping
//	POST /orders/process   - compute and sign a disposition
//	GET  /orders/health    - current signing public key + status
//	GET  /get_attestation  - attestation evidence over the signing key
//	GET  /livez, /readyz   - kubernetes probes
//	GET  /drain, /undrain  - load-balancer rotation control
//
// A second listener serves Prometheus metrics, and pprof can be mounted
// under /debug when enabled.
package httpserver
