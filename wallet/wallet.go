package wallet

import (
	"github.com/coreledger/poachain/core"
	"github.com/coreledger/poachain/crypto"
)

// Wallet holds a key pair and provides transaction-building helpers for
// tests and the cmd/node CLI.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the public key.
func (w *Wallet) PubKey() crypto.PublicKey {
	return w.pub
}

// Address returns the short human-readable address derived from the
// public key.
func (w *Wallet) Address() crypto.Address {
	return w.pub.Address()
}

// NewTx builds and signs a transaction wrapping the given program bytes.
func (w *Wallet) NewTx(data []byte) (*core.Transaction, error) {
	tx := core.NewTransaction(data)
	if err := tx.Sign(w.priv); err != nil {
		return nil, err
	}
	return tx, nil
}
