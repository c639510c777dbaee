// Command verify fetches and verifies an enclave's attestation document.
//
// The document is fetched from the responder's attestation endpoint and
// checked end to end: COSE envelope parse, image identity, COSE signature
// under the leaf certificate, certificate chain walk at the document's own
// timestamp, and byte-exact root pinning. Only when every gate passes is
// the attested public key written to the output file, ready for the
// initiator command.
//
// --max-age additionally rejects documents whose hardware timestamp is
// older than the given duration; the chain walk itself deliberately uses
// the document's timestamp, so freshness is this command's policy, not the
// verifier's.
//
// With --db-url the outcome is recorded in PostgreSQL for audit.
//
// # Usage
//
//	go run ./cmd/verify --endpoint=http://enclave:8080/attestation/raw \
//	    --root=root.pem --image-id=<hex> --out=responder.pub --max-age=5m
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/flashbots/attested-channel/cmd/common"
	"github.com/flashbots/attested-channel/metrics"
	"github.com/flashbots/attested-channel/nitro"
	"github.com/flashbots/attested-channel/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		endpoint   = flag.String("endpoint", "", "Attestation document URL")
		rootPath   = flag.String("root", "", "Pinned root certificate, PEM")
		imageID    = flag.String("image-id", "", "Expected image identity, hex")
		outPath    = flag.String("out", "", "Output file for the attested public key")
		maxAge     = flag.Duration("max-age", 0, "Reject documents older than this (0 disables)")
		dbURL      = flag.String("db-url", "", "PostgreSQL URL for recording outcomes (disabled if empty)")
		timeout    = flag.Duration("timeout", 30*time.Second, "Fetch timeout")
	)
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if *endpoint != "" {
		cfg.Attestation.Endpoint = *endpoint
	}
	if *rootPath != "" {
		cfg.Attestation.RootCert = *rootPath
	}
	if *imageID != "" {
		cfg.Attestation.ImageID = *imageID
	}
	if cfg.Attestation.Endpoint == "" || cfg.Attestation.RootCert == "" || cfg.Attestation.ImageID == "" {
		fmt.Println("Error: --endpoint, --root and --image-id are required")
		os.Exit(1)
	}

	root, err := common.LoadRootCertificate(cfg.Attestation.RootCert)
	if err != nil {
		fmt.Printf("Root certificate error: %v\n", err)
		os.Exit(1)
	}

	verifier, err := nitro.NewVerifier(nitro.VerifierConfig{
		Root:            root,
		ExpectedImageID: cfg.Attestation.ImageID,
	})
	if err != nil {
		fmt.Printf("Create verifier error: %v\n", err)
		os.Exit(1)
	}

	var auditStore store.Store
	if *dbURL != "" {
		auditStore, err = store.NewPostgresStore(*dbURL)
		if err != nil {
			fmt.Printf("Audit store error: %v\n", err)
			os.Exit(1)
		}
		defer auditStore.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fetcher := &nitro.Fetcher{Endpoint: cfg.Attestation.Endpoint, Timeout: *timeout}
	docBytes, err := fetcher.Fetch(ctx)
	if err != nil {
		fmt.Printf("Fetch error: %v\n", err)
		os.Exit(1)
	}

	result, err := verifier.Verify(docBytes)
	if err == nil && *maxAge > 0 && time.Since(result.Timestamp) > *maxAge {
		err = fmt.Errorf("document timestamp %s is older than %s", result.Timestamp.UTC().Format(time.RFC3339), *maxAge)
	}

	record(ctx, auditStore, cfg.Attestation.ImageID, result, err)

	if err != nil {
		metrics.IncVerification(store.OutcomeFailure)
		fmt.Printf("Verification failed: %v\n", err)
		os.Exit(1)
	}
	metrics.IncVerification(store.OutcomeSuccess)

	fmt.Printf("Image ID:     %s\n", result.ImageID)
	fmt.Printf("Timestamp:    %s\n", result.Timestamp.UTC().Format(time.RFC3339))
	fmt.Printf("Attested key: %s\n", hex.EncodeToString(result.PublicKey))

	if *outPath != "" {
		if err := common.WriteKeyFile(*outPath, result.PublicKey); err != nil {
			fmt.Printf("Write key error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote attested public key to %s\n", *outPath)
	}
}

// record logs the verification outcome to the audit store, if configured.
func record(ctx context.Context, auditStore store.Store, imageID string, result *nitro.Result, verifyErr error) {
	if auditStore == nil {
		return
	}

	rec := store.VerificationRecord{
		ImageID:    imageID,
		VerifiedAt: time.Now().UTC(),
		Outcome:    store.OutcomeSuccess,
	}
	if verifyErr != nil {
		rec.Outcome = store.OutcomeFailure
		rec.Reason = verifyErr.Error()
	}
	if result != nil {
		rec.PublicKeyHex = hex.EncodeToString(result.PublicKey)
		rec.DocTimestamp = result.Timestamp
	}

	if err := auditStore.Record(ctx, rec); err != nil {
		fmt.Printf("Warning: recording outcome failed: %v\n", err)
	}
}
