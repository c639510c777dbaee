// Package cmd provides the CLI commands for the attested channel.
//
// # Commands
//
// responder: Runs the enclave side of the channel. Listens for encrypted
// Deliver/Compute requests over TCP and optionally serves its attestation
// document over HTTP.
//
//	go run ./cmd/responder --addr=:9000 --key=responder.key --peer-key=initiator.pub
//	go run ./cmd/responder --attestation-addr=:8080 --nsm
//
// verify: Fetches an attestation document from a responder, verifies it
// against a pinned root certificate and an expected image identity, and
// writes the attested public key to a file on success.
//
//	go run ./cmd/verify --endpoint=http://enclave:8080/attestation/raw \
//	    --root=root.pem --image-id=<hex> --out=responder.pub
//
// initiator: Runs the client side of the channel. Loads its own private key
// and the verified responder key, then sends an encrypted Deliver (and
// optionally a Compute).
//
//	go run ./cmd/initiator --addr=enclave:9000 --key=initiator.key \
//	    --peer-key=responder.pub --payload=0c2b --compute
//
// # Configuration
//
// All commands support YAML configuration files via the --config flag.
// Command-line flags override config file values.
//
// Example config:
//
//	addr: ":9000"
//	kdf: false
//	keys:
//	  private_key: "responder.key"
//	  peer_public_key: "initiator.pub"
//	attestation:
//	  endpoint: "http://enclave:8080/attestation/raw"
//	  image_id: ""
//	  root_cert: "root.pem"
package cmd
