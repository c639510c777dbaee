// Package common provides shared utilities for the attested-channel CLI
// commands.
//
// This package contains helper functions used across the standalone
// binaries (responder, initiator, verify) to reduce code duplication:
//
//   - X25519 key file handling (32 raw bytes on disk)
//   - Pinned root certificate loading
//   - YAML configuration with flag overrides
//   - Channel cipher construction from a key pair
package common

import (
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flashbots/attested-channel/crypto"
	"github.com/flashbots/attested-channel/nitro"
)

// Config is the YAML configuration shared by the CLI commands. Zero values
// mean "not set"; flags override any field.
type Config struct {
	// Addr is the responder's TCP address (listen address for the
	// responder command, dial address for the initiator command).
	Addr string `yaml:"addr"`

	// KDF enables HKDF session-key derivation instead of using the raw
	// X25519 secret. Both ends must agree.
	KDF bool `yaml:"kdf"`

	Keys        KeysConfig        `yaml:"keys"`
	Attestation AttestationConfig `yaml:"attestation"`
}

// KeysConfig holds paths to key files.
type KeysConfig struct {
	// PrivateKey is the path to this side's 32-byte X25519 private key.
	PrivateKey string `yaml:"private_key"`

	// PeerPublicKey is the path to the peer's 32-byte X25519 public key.
	PeerPublicKey string `yaml:"peer_public_key"`
}

// AttestationConfig holds verification inputs.
type AttestationConfig struct {
	// Endpoint is the URL serving the raw attestation document.
	Endpoint string `yaml:"endpoint"`

	// ImageID is the expected image identity, hex.
	ImageID string `yaml:"image_id"`

	// RootCert is the path to the PEM-encoded pinned root certificate.
	RootCert string `yaml:"root_cert"`
}

// LoadConfig reads a YAML config file. An empty path returns an empty
// config so flags alone can drive a command.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadOrGeneratePrivateKey loads a 32-byte X25519 private key from a file,
// or generates one and writes it to the path if the file does not exist.
func LoadOrGeneratePrivateKey(path string) (crypto.PrivateKey, error) {
	if path == "" {
		return crypto.PrivateKey{}, errors.New("private key path cannot be empty")
	}

	data, err := os.ReadFile(path)
	if err == nil {
		return crypto.NewPrivateKeyFromBytes(data)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return crypto.PrivateKey{}, fmt.Errorf("reading private key: %w", err)
	}

	_, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return crypto.PrivateKey{}, err
	}
	if err := WriteKeyFile(path, priv.Bytes()); err != nil {
		return crypto.PrivateKey{}, err
	}
	return priv, nil
}

// LoadPublicKey loads a 32-byte X25519 public key from a file.
func LoadPublicKey(path string) (crypto.PublicKey, error) {
	if path == "" {
		return crypto.PublicKey{}, errors.New("public key path cannot be empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return crypto.PublicKey{}, fmt.Errorf("reading public key: %w", err)
	}
	return crypto.NewPublicKeyFromBytes(data)
}

// WriteKeyFile writes raw key bytes with owner-only permissions.
func WriteKeyFile(path string, key []byte) error {
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

// LoadRootCertificate loads the pinned PEM root certificate from a file.
func LoadRootCertificate(path string) (*x509.Certificate, error) {
	if path == "" {
		return nil, errors.New("root certificate path cannot be empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading root certificate: %w", err)
	}
	return nitro.ParseRootPEM(data)
}

// NewCipher builds the channel cipher for a key pair, optionally stretching
// the shared secret through HKDF.
func NewCipher(priv crypto.PrivateKey, peer crypto.PublicKey, useKDF bool) (*crypto.ChannelCipher, error) {
	var key crypto.SharedKey
	if useKDF {
		derived, err := crypto.DeriveSessionKey(priv, peer, nil)
		if err != nil {
			return nil, err
		}
		key = derived
	} else {
		key = crypto.DeriveSharedKey(priv, peer)
	}
	return crypto.NewChannelCipher(key)
}
