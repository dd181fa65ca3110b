// Package cryptoutils provides TEE attestation evidence generation and
// verification for the order-signing enclave. Report data always binds the
// enclave's ed25519 signing public key, so a verified quote proves which
// key the attested enclave signs with.
package cryptoutils

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"

	tdx_abi "github.com/google/go-tdx-guest/abi"
	tdx_client "github.com/google/go-tdx-guest/client"
	tdx_pb "github.com/google/go-tdx-guest/proto/tdx"
	"github.com/google/go-tdx-guest/verify"
)

// Supported attestation provider identifiers, selected via the
// --attestation-type flag.
const (
	DCAPAttestation  = "qemu-tdx"
	DummyAttestation = "dummy"
)

// AttestationProvider produces attestation evidence binding the given
// 64-byte report data to the running TEE.
type AttestationProvider interface {
	AttestationType() string
	Attest(reportData [64]byte) ([]byte, error)
}

// AttestationProviderFromString selects a provider implementation by its
// string identifier.
func AttestationProviderFromString(str string) (AttestationProvider, error) {
	switch str {
	case DCAPAttestation:
		return &DCAPAttestationProvider{}, nil
	case DummyAttestation:
		return &DummyAttestationProvider{}, nil
	default:
		return nil, fmt.Errorf("unsupported attestation type %q: %w", str, errors.ErrUnsupported)
	}
}

// SigningKeyReportData builds the report data for an attestation over the
// enclave's signing key. The raw public key occupies the first 32 bytes;
// the remainder is zero.
func SigningKeyReportData(pub ed25519.PublicKey) [64]byte {
	var reportData [64]byte
	copy(reportData[:ed25519.PublicKeySize], pub)
	return reportData
}

// DCAPAttestationProvider obtains TDX quotes from the local quote
// provider, preferring the configfs interface over the legacy device.
type DCAPAttestationProvider struct{}

func (DCAPAttestationProvider) AttestationType() string { return DCAPAttestation }

func (DCAPAttestationProvider) Attest(reportData [64]byte) ([]byte, error) {
	qp := &tdx_client.LinuxConfigFsQuoteProvider{}
	if qp.IsSupported() == nil {
		return qp.GetRawQuote(reportData)
	}

	qd, err := tdx_client.OpenDevice()
	if err != nil {
		return nil, err
	}
	defer qd.Close()

	return tdx_client.GetRawQuote(qd, reportData)
}

// RemoteAttestationProvider fetches quotes from a sidecar quote service,
// for deployments where the enclave has no direct quote device access.
type RemoteAttestationProvider struct {
	Address string
}

func (*RemoteAttestationProvider) AttestationType() string { return DCAPAttestation }

func (p *RemoteAttestationProvider) Attest(reportData [64]byte) ([]byte, error) {
	url := fmt.Sprintf("%s/attest/%s", p.Address, hex.EncodeToString(reportData[:]))
	resp, err := http.DefaultClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("calling remote quote provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("remote quote provider returned status %d: %s", resp.StatusCode, string(body))
	}

	rawQuote, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading quote from response: %w", err)
	}
	return rawQuote, nil
}

// DummyAttestationProvider returns fake evidence for environments without
// TEE hardware. Never use outside development.
type DummyAttestationProvider struct{}

func (DummyAttestationProvider) AttestationType() string { return DummyAttestation }

func (DummyAttestationProvider) Attest(reportData [64]byte) ([]byte, error) {
	return []byte(fmt.Sprintf("dummy attestation over %x", reportData)), nil
}

// VerifyDCAPAttestation verifies a raw TDX quote against the expected
// report data and returns the quote's measurement registers by index.
func VerifyDCAPAttestation(reportData [64]byte, quote []byte) (map[int]string, error) {
	protoQuote, err := tdx_abi.QuoteToProto(quote)
	if err != nil {
		return nil, fmt.Errorf("could not parse quote: %w", err)
	}

	v4Quote, ok := protoQuote.(*tdx_pb.QuoteV4)
	if !ok {
		return nil, fmt.Errorf("unsupported quote type: %T", protoQuote)
	}

	if err := verify.TdxQuote(protoQuote, verify.DefaultOptions()); err != nil {
		return nil, fmt.Errorf("quote verification failed: %w", err)
	}

	if !bytes.Equal(v4Quote.TdQuoteBody.ReportData, reportData[:]) {
		return nil, fmt.Errorf("invalid report data %x, expected %x", v4Quote.TdQuoteBody.ReportData, reportData[:])
	}

	return map[int]string{
		0: hex.EncodeToString(v4Quote.TdQuoteBody.MrTd),
		1: hex.EncodeToString(v4Quote.TdQuoteBody.Rtmrs[0]),
		2: hex.EncodeToString(v4Quote.TdQuoteBody.Rtmrs[1]),
		3: hex.EncodeToString(v4Quote.TdQuoteBody.Rtmrs[2]),
		4: hex.EncodeToString(v4Quote.TdQuoteBody.Rtmrs[3]),
		5: hex.EncodeToString(v4Quote.TdQuoteBody.MrConfigId),
		6: hex.EncodeToString(v4Quote.TdQuoteBody.MrOwner),
		7: hex.EncodeToString(v4Quote.TdQuoteBody.MrOwnerConfig),
	}, nil
}
