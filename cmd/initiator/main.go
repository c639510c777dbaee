// Command initiator runs the client side of the attested channel.
//
// The initiator loads its own private key and the responder's public key,
// normally the file written by the verify command, so the key is only ever
// one that came out of a successful attestation verification. It then sends
// an encrypted Deliver request. With --compute it follows up with a Compute
// request and prints the responder's result.
//
// # Usage
//
//	go run ./cmd/initiator --addr=enclave:9000 --key=initiator.key \
//	    --peer-key=responder.pub --payload=0c2b --compute
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/flashbots/attested-channel/client"
	"github.com/flashbots/attested-channel/cmd/common"
)

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config file")
		addr        = flag.String("addr", "", "Responder TCP address")
		keyPath     = flag.String("key", "", "Private key file (generated if missing)")
		peerKeyPath = flag.String("peer-key", "", "Responder public key file (from cmd/verify)")
		payloadHex  = flag.String("payload", "0c2b", "Payload to deliver, hex")
		compute     = flag.Bool("compute", false, "Request the computed sum after delivering")
		useKDF      = flag.Bool("kdf", false, "Derive the channel key via HKDF instead of using the raw shared secret")
		timeout     = flag.Duration("timeout", 10*time.Second, "Per-request timeout")
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
		fmt.Println("Error: --addr is required")
		os.Exit(1)
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

	payload, err := hex.DecodeString(*payloadHex)
	if err != nil {
		fmt.Printf("Invalid payload hex: %v\n", err)
		os.Exit(1)
	}

	privateKey, err := common.LoadOrGeneratePrivateKey(cfg.Keys.PrivateKey)
	if err != nil {
		fmt.Printf("Private key error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Initiator public key: %s\n", privateKey.PublicKey().String())

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

	initiator, err := client.NewInitiator(cfg.Addr, cipher)
	if err != nil {
		fmt.Printf("Create initiator error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := initiator.Deliver(ctx, payload)
	if err != nil {
		fmt.Printf("Deliver error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deliver response: %s\n", resp)

	if *compute {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()

		resp, err := initiator.Compute(ctx)
		if err != nil {
			fmt.Printf("Compute error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Compute response: %s\n", resp)
	}
}
