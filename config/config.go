// Package config loads and validates the node's JSON configuration file:
// the validator key path, block cadence, listen addresses, seed peers,
// genesis state, and optional TLS material.
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TLSConfig holds paths to the PEM files needed for mTLS.
// When nil or all paths empty, the node falls back to plain TCP.
type TLSConfig struct {
	CACert   string `json:"ca_cert"`   // CA certificate PEM path
	NodeCert string `json:"node_cert"` // node certificate PEM path
	NodeKey  string `json:"node_key"`  // node private key PEM path
}

// SeedPeer identifies a remote node to connect to on startup.
type SeedPeer struct {
	ID   string `json:"id"`   // remote node ID
	Addr string `json:"addr"` // host:port
}

// GenesisConfig describes the chain's initial state.
type GenesisConfig struct {
	ChainID string `json:"chain_id"`
	// Alloc seeds initial state key/value pairs before genesis is sealed.
	// Keys are hex-encoded state keys; values are base64 per encoding/json's
	// default []byte handling.
	Alloc map[string][]byte `json:"alloc,omitempty"`
}

// Config holds all node configuration.
type Config struct {
	NodeID      string `json:"node_id"`
	DataDir     string `json:"data_dir"`
	RPCAddr     string `json:"rpc_addr"` // host:port for the read-only RPC surface
	P2PAddr     string `json:"p2p_addr"` // host:port this node advertises and listens on

	// ValidatorKeyPath/ValidatorKeyPassword locate the encrypted keystore
	// holding the single pre-configured validator key. Empty KeyPath means
	// this node does not mint blocks (listen-only).
	ValidatorKeyPath     string        `json:"validator_key_path,omitempty"`
	ValidatorKeyPassword string        `json:"validator_key_password,omitempty"`
	BlockPeriod          time.Duration `json:"block_period"` // nanoseconds

	Genesis      GenesisConfig `json:"genesis"`
	SeedPeers    []SeedPeer    `json:"seed_peers,omitempty"`
	TLS          *TLSConfig    `json:"tls,omitempty"`           // nil → plain TCP
	RPCAuthToken string        `json:"rpc_auth_token,omitempty"` // empty → no auth
}

// DefaultConfig returns a single-node development configuration: no
// validator key configured, plain TCP, in-memory genesis.
func DefaultConfig() *Config {
	return &Config{
		NodeID:      "node0",
		DataDir:     "./data",
		RPCAddr:     "127.0.0.1:8545",
		P2PAddr:     "127.0.0.1:30303",
		BlockPeriod: 2 * time.Second,
		Genesis: GenesisConfig{
			ChainID: "poachain-dev",
		},
	}
}

// Load reads a JSON config file from path and validates required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Genesis.ChainID == "" {
		return fmt.Errorf("genesis.chain_id must not be empty")
	}
	if c.RPCAddr == "" {
		return fmt.Errorf("rpc_addr must not be empty")
	}
	if c.P2PAddr == "" {
		return fmt.Errorf("p2p_addr must not be empty")
	}
	if c.RPCAddr == c.P2PAddr {
		return fmt.Errorf("rpc_addr and p2p_addr must not be the same (%s)", c.RPCAddr)
	}
	if c.BlockPeriod <= 0 {
		return fmt.Errorf("block_period must be positive, got %s", c.BlockPeriod)
	}
	for key := range c.Genesis.Alloc {
		if _, err := hex.DecodeString(key); err != nil {
			return fmt.Errorf("genesis.alloc key %q: must be hex, %w", key, err)
		}
	}
	if c.TLS != nil {
		t := c.TLS
		allSet := t.CACert != "" && t.NodeCert != "" && t.NodeKey != ""
		allEmpty := t.CACert == "" && t.NodeCert == "" && t.NodeKey == ""
		if !allSet && !allEmpty {
			return fmt.Errorf("tls: all three paths (ca_cert, node_cert, node_key) must be set or all empty")
		}
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
