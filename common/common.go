// Package common holds shared service identity and logger setup.
package common

// PackageName identifies the service in metrics and logs.
const PackageName = "order-signer"

// Version is set at build time via -ldflags.
var Version = "dev"
