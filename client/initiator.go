package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/flashbots/attested-channel/crypto"
	"github.com/flashbots/attested-channel/nitro"
	"github.com/flashbots/attested-channel/protocol"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultMaxResponseSize = 64 << 10
)

// Initiator sends single-shot requests over the attested channel.
type Initiator struct {
	// Addr is the responder's TCP address.
	Addr string

	// Cipher is the channel cipher under the shared key.
	Cipher *crypto.ChannelCipher

	// DialTimeout bounds connection establishment. Defaults to 10s.
	DialTimeout time.Duration

	// MaxResponseSize caps the EOF-delimited response read. Defaults to
	// 64 KiB.
	MaxResponseSize int64
}

// NewInitiator creates an initiator for a responder whose channel key is
// already established out of band.
func NewInitiator(addr string, cipher *crypto.ChannelCipher) (*Initiator, error) {
	if addr == "" {
		return nil, errors.New("responder address cannot be empty")
	}
	if cipher == nil {
		return nil, errors.New("channel cipher cannot be nil")
	}
	return &Initiator{Addr: addr, Cipher: cipher}, nil
}

// NewAttestedInitiator derives the channel key from a verified attestation
// result. The peer public key is taken exclusively from the verifier's
// output, so a channel key never exists for an unattested peer.
//
// With useKDF the shared secret is stretched through HKDF instead of being
// used raw; the responder must be configured identically.
func NewAttestedInitiator(addr string, privateKey crypto.PrivateKey, attested *nitro.Result, useKDF bool) (*Initiator, error) {
	if attested == nil {
		return nil, errors.New("attestation result cannot be nil")
	}
	peer, err := crypto.NewPublicKeyFromBytes(attested.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("attested public key: %w", err)
	}

	var key crypto.SharedKey
	if useKDF {
		key, err = crypto.DeriveSessionKey(privateKey, peer, nil)
		if err != nil {
			return nil, err
		}
	} else {
		key = crypto.DeriveSharedKey(privateKey, peer)
	}

	cipher, err := crypto.NewChannelCipher(key)
	if err != nil {
		return nil, err
	}
	return NewInitiator(addr, cipher)
}

// Deliver seals the payload under a fresh random nonce and sends it as a
// Deliver frame, returning the responder's reply.
func (c *Initiator) Deliver(ctx context.Context, payload []byte) (string, error) {
	nonce, err := crypto.NewNonce()
	if err != nil {
		return "", err
	}
	ciphertext, err := c.Cipher.Seal(nonce[:], payload, protocol.AAD)
	if err != nil {
		return "", err
	}
	return c.roundTrip(ctx, protocol.EncodeDeliver(nonce, ciphertext))
}

// Compute sends a Compute frame and returns the responder's reply.
func (c *Initiator) Compute(ctx context.Context) (string, error) {
	return c.roundTrip(ctx, protocol.EncodeCompute())
}

// roundTrip performs one request/response exchange: connect, write the
// frame, close the write side, read the EOF-delimited response.
func (c *Initiator) roundTrip(ctx context.Context, frame []byte) (string, error) {
	dialTimeout := c.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = defaultDialTimeout
	}
	maxResponse := c.MaxResponseSize
	if maxResponse == 0 {
		maxResponse = defaultMaxResponseSize
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return "", fmt.Errorf("connecting to responder: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(frame); err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.CloseWrite(); err != nil {
			return "", fmt.Errorf("closing write side: %w", err)
		}
	}

	response, err := io.ReadAll(io.LimitReader(conn, maxResponse))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return string(response), nil
}
