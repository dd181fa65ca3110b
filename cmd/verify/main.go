// Command verify checks a signed order response offline. It recomputes
// the canonical signing message from the embedded response and verifies
// the ed25519 signature against the embedded public key, without talking
// to the signing service. Given a raw TDX quote it additionally checks
// that the quote's report data binds the same public key, tying the
// signature to an attested enclave.
package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/nautilus-tee/order-signer/cryptoutils"
	"github.com/nautilus-tee/order-signer/orders"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "verify",
		Usage:     "Verify a signed order response produced by the order-signer service",
		ArgsUsage: "[file, or - for stdin]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "expect-pubkey",
				Value: "",
				Usage: "base64 public key the response must be signed with (e.g. from /orders/health)",
			},
			&cli.StringFlag{
				Name:  "dcap-quote",
				Value: "",
				Usage: "file with a raw TDX quote (from /get_attestation) that must bind the signing key",
			},
		},
		Action: func(cCtx *cli.Context) error {
			input := os.Stdin
			if path := cCtx.Args().First(); path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				input = f
			}

			raw, err := io.ReadAll(input)
			if err != nil {
				return err
			}

			var signed orders.SignedOrderResponse
			if err := json.Unmarshal(raw, &signed); err != nil {
				return fmt.Errorf("parsing signed response: %w", err)
			}

			if signed.Scheme != orders.SchemeEd25519 {
				return fmt.Errorf("unsupported scheme %q", signed.Scheme)
			}

			if expected := cCtx.String("expect-pubkey"); expected != "" && expected != signed.PublicKey {
				return fmt.Errorf("public key mismatch: response signed by %s", signed.PublicKey)
			}

			pub, err := base64.StdEncoding.DecodeString(signed.PublicKey)
			if err != nil {
				return fmt.Errorf("decoding public key: %w", err)
			}
			if len(pub) != ed25519.PublicKeySize {
				return fmt.Errorf("invalid public key length %d", len(pub))
			}

			sig, err := base64.StdEncoding.DecodeString(signed.Signature)
			if err != nil {
				return fmt.Errorf("decoding signature: %w", err)
			}

			msg, err := signed.Response.SigningMessage()
			if err != nil {
				return err
			}

			if !ed25519.Verify(ed25519.PublicKey(pub), msg, sig) {
				return fmt.Errorf("signature verification failed for order %q", signed.Response.OrderID)
			}

			if quotePath := cCtx.String("dcap-quote"); quotePath != "" {
				quote, err := os.ReadFile(quotePath)
				if err != nil {
					return err
				}

				reportData := cryptoutils.SigningKeyReportData(ed25519.PublicKey(pub))
				measurements, err := cryptoutils.VerifyDCAPAttestation(reportData, quote)
				if err != nil {
					return fmt.Errorf("attestation verification failed: %w", err)
				}
				for i := 0; i < len(measurements); i++ {
					fmt.Printf("measurement %d: %s\n", i, measurements[i])
				}
			}

			fmt.Printf("OK order=%s action=%s status=%s amount=%d %s signed-by=%s\n",
				signed.Response.OrderID,
				signed.Response.Action,
				signed.Response.Status,
				signed.Response.Amount,
				signed.Response.Currency,
				signed.PublicKey,
			)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
