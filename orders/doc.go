// Package orders implements the order disposition pipeline: mapping a
// request to its resulting status, canonically encoding the response, and
// sealing it under the enclave's signing key.
//
// The pipeline is stateless. Each request produces exactly one response as
// a pure function of the request and the current wall clock; no order state
// is kept between calls and no ordering between actions on the same order
// is enforced. The signature attests only to the disposition the enclave
// computed for the request it was handed.
//
// # Wire Compatibility
//
// SignableOrderResponse is the exact object that gets signed. Its canonical
// encoding (see CanonicalBytes) and the domain tag are frozen: adding,
// removing, or reordering fields breaks every deployed verifier.
package orders
