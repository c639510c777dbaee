// Command responder runs the enclave side of the attested channel.
//
// The responder listens on a TCP port and answers single-shot encrypted
// requests: a Deliver stores the decrypted payload, a Compute returns the
// sum of the first two stored bytes. Each connection carries exactly one
// request; the response is written and the connection closed.
//
// # Attestation
//
// With --attestation-addr the responder also serves its attestation
// document over HTTP at GET /attestation/raw. Inside a Nitro enclave,
// --nsm requests documents from the hypervisor with the responder's
// public key embedded; outside an enclave, --doc serves a pre-generated
// document file for testing.
//
// # Usage
//
//	go run ./cmd/responder --addr=:9000 --key=responder.key --peer-key=initiator.pub
//	go run ./cmd/responder --config=responder.yaml --attestation-addr=:8080 --nsm
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flashbots/attested-channel/cmd/common"
	"github.com/flashbots/attested-channel/httpserver"
	"github.com/flashbots/attested-channel/nitro"
	"github.com/flashbots/attested-channel/server"
)

func main() {
	var (
		configPath      = flag.String("config", "", "YAML config file")
		addr            = flag.String("addr", "", "TCP listen address (default :9000)")
		keyPath         = flag.String("key", "", "Private key file (generated if missing)")
		peerKeyPath     = flag.String("peer-key", "", "Initiator public key file")
		useKDF          = flag.Bool("kdf", false, "Derive the channel key via HKDF instead of using the raw shared secret")
		attestationAddr = flag.String("attestation-addr", "", "HTTP listen address for the attestation server (disabled if empty)")
		useNSM          = flag.Bool("nsm", false, "Request attestation documents from the Nitro hypervisor")
		docPath         = flag.String("doc", "", "Static attestation document file (testing)")
		metricsAddr     = flag.String("metrics-addr", "", "Metrics listen address (disabled if empty)")
		enablePprof     = flag.Bool("pprof", false, "Enable the pprof debugging API")
	)
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9000"
	}
	if *keyPath != "" {
		cfg.Keys.PrivateKey = *keyPath
	}
	if *peerKeyPath != "" {
		cfg.Keys.PeerPublicKey = *peerKeyPath
	}
	if *useKDF {
		cfg.KDF = true
	}

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	privateKey, err := common.LoadOrGeneratePrivateKey(cfg.Keys.PrivateKey)
	if err != nil {
		fmt.Printf("Private key error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Responder public key: %s\n", privateKey.PublicKey().String())

	peerKey, err := common.LoadPublicKey(cfg.Keys.PeerPublicKey)
	if err != nil {
		fmt.Printf("Peer public key error: %v\n", err)
		os.Exit(1)
	}

	cipher, err := common.NewCipher(privateKey, peerKey, cfg.KDF)
	if err != nil {
		fmt.Printf("Channel cipher error: %v\n", err)
		os.Exit(1)
	}

	responder, err := server.NewResponder(server.ResponderConfig{
		Addr:   cfg.Addr,
		Cipher: cipher,
		Log:    log,
	})
	if err != nil {
		fmt.Printf("Create responder error: %v\n", err)
		os.Exit(1)
	}
	if err := responder.Listen(); err != nil {
		fmt.Printf("Listen error: %v\n", err)
		os.Exit(1)
	}

	var attestationSrv *httpserver.Server
	if *attestationAddr != "" {
		provider, err := newProvider(*useNSM, *docPath, privateKey.PublicKey().Bytes())
		if err != nil {
			fmt.Printf("Attestation provider error: %v\n", err)
			os.Exit(1)
		}
		attestationSrv, err = httpserver.New(&httpserver.ServerConfig{
			ListenAddr:               *attestationAddr,
			MetricsAddr:              *metricsAddr,
			EnablePprof:              *enablePprof,
			Log:                      log,
			Provider:                 provider,
			DrainDuration:            5 * time.Second,
			GracefulShutdownDuration: 10 * time.Second,
			ReadTimeout:              10 * time.Second,
			WriteTimeout:             10 * time.Second,
		})
		if err != nil {
			fmt.Printf("Attestation server error: %v\n", err)
			os.Exit(1)
		}
		attestationSrv.RunInBackground()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Responder listening", "address", responder.Addr().String())
	if err := responder.Serve(ctx); err != nil {
		log.Error("Responder stopped", "err", err)
	}

	if attestationSrv != nil {
		attestationSrv.Shutdown()
	}
}

// newProvider selects the attestation document source: the NSM device
// inside an enclave, or a static file outside one.
func newProvider(useNSM bool, docPath string, publicKey []byte) (nitro.Provider, error) {
	if useNSM {
		return &nitro.NSMProvider{PublicKey: publicKey}, nil
	}
	if docPath == "" {
		return nil, fmt.Errorf("either --nsm or --doc is required with --attestation-addr")
	}
	doc, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("reading document file: %w", err)
	}
	return &nitro.StaticProvider{Document: doc}, nil
}
