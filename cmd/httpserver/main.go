package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nautilus-tee/order-signer/common"
	"github.com/nautilus-tee/order-signer/cryptoutils"
	"github.com/nautilus-tee/order-signer/httpserver"
	"github.com/nautilus-tee/order-signer/kms"
	"github.com/urfave/cli/v2"
)

var flags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:3100",
		Usage: "address to listen on for API",
	},
	&cli.StringFlag{
		Name:  "metrics-addr",
		Value: "127.0.0.1:8090",
		Usage: "address to listen on for Prometheus metrics",
	},
	&cli.StringFlag{
		Name:  "attestation-type",
		Value: cryptoutils.DummyAttestation,
		Usage: "attestation provider: 'qemu-tdx' or 'dummy'",
	},
	&cli.StringFlag{
		Name:  "remote-attestation-addr",
		Value: "",
		Usage: "address of a remote quote provider to use instead of local attestation",
	},
	&cli.StringFlag{
		Name:  "signing-seed",
		Value: "",
		Usage: "hex-encoded 32-byte seed for a deterministic signing key (development only)",
	},
	&cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	},
	&cli.BoolFlag{
		Name:  "log-uid",
		Value: false,
		Usage: "generate a uuid and add to all log messages",
	},
	&cli.StringFlag{
		Name:  "log-service",
		Value: "order-signer",
		Usage: "add 'service' tag to logs",
	},
	&cli.BoolFlag{
		Name:  "pprof",
		Value: false,
		Usage: "enable pprof debug endpoint",
	},
	&cli.Int64Flag{
		Name:  "drain-seconds",
		Value: 45,
		Usage: "seconds to wait in drain HTTP request",
	},
}

func main() {
	app := &cli.App{
		Name:  "order-signer",
		Usage: "Serve enclave-signed order dispositions",
		Flags: flags,
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String("listen-addr")
			metricsAddr := cCtx.String("metrics-addr")
			attestationType := cCtx.String("attestation-type")
			remoteAttestationAddr := cCtx.String("remote-attestation-addr")
			signingSeed := cCtx.String("signing-seed")
			logJSON := cCtx.Bool("log-json")
			logDebug := cCtx.Bool("log-debug")
			logUID := cCtx.Bool("log-uid")
			logService := cCtx.String("log-service")
			enablePprof := cCtx.Bool("pprof")
			drainDuration := time.Duration(cCtx.Int64("drain-seconds")) * time.Second

			logger := common.SetupLogger(&common.LoggingOpts{
				Debug:   logDebug,
				JSON:    logJSON,
				Service: logService,
				Version: common.Version,
			})

			if logUID {
				id := uuid.Must(uuid.NewRandom())
				logger = logger.With("uid", id.String())
			}

			// Production draws the key seed from crypto/rand; the flag
			// switches to a deterministic dev key.
			keyManager := kms.NewKeyManager()
			if signingSeed != "" {
				seed, err := hex.DecodeString(signingSeed)
				if err != nil || len(seed) != kms.SeedSize {
					logger.Error("Invalid signing-seed - must be 64 hex chars (32 bytes)", "err", err)
					return fmt.Errorf("invalid signing-seed: %v", err)
				}
				logger.Warn("Using deterministic signing key from seed, do not use in production")
				keyManager, err = keyManager.WithSeed(seed)
				if err != nil {
					return err
				}
			}

			// The key must exist before the server accepts a single
			// request; a failed randomness draw aborts startup.
			logger.Info("Initializing enclave signing key")
			if err := keyManager.EnsureInitialized(); err != nil {
				logger.Error("Failed to initialize signing key", "err", err)
				return err
			}

			pubkey, err := keyManager.PublicKeyBase64()
			if err != nil {
				return err
			}
			logger.Info("Signing key ready", "publicKey", pubkey)

			var attestationProvider cryptoutils.AttestationProvider
			if remoteAttestationAddr != "" {
				logger.Info("Using remote quote provider", "address", remoteAttestationAddr)
				attestationProvider = &cryptoutils.RemoteAttestationProvider{Address: remoteAttestationAddr}
			} else {
				attestationProvider, err = cryptoutils.AttestationProviderFromString(attestationType)
				if err != nil {
					logger.Error("Invalid attestation-type", "type", attestationType)
					return err
				}
			}

			cfg := &httpserver.HTTPServerConfig{
				ListenAddr:               listenAddr,
				MetricsAddr:              metricsAddr,
				Log:                      logger,
				EnablePprof:              enablePprof,
				DrainDuration:            drainDuration,
				GracefulShutdownDuration: 30 * time.Second,
				ReadTimeout:              60 * time.Second,
				WriteTimeout:             30 * time.Second,
			}

			handler := httpserver.NewHandler(keyManager, attestationProvider, logger)

			server, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server")
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
