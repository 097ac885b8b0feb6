package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ErrOffCurve is returned when a generated public key fails point decoding.
var ErrOffCurve = errors.New("public key is not on the ed25519 curve")

// Keypair is an ed25519 signing key and its Solana address.
type Keypair struct {
	private solana.PrivateKey
}

// FromSeed builds a keypair from a 32-byte ed25519 seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	kp := &Keypair{private: solana.PrivateKey(ed25519.NewKeyFromSeed(seed))}
	pub := kp.PublicKey()
	if !IsOnCurve(pub[:]) {
		return nil, ErrOffCurve
	}
	return kp, nil
}

// FromMnemonic derives the keypair at SolanaPath.
func FromMnemonic(phrase string) (*Keypair, error) {
	return FromMnemonicPath(phrase, SolanaPath)
}

// FromMnemonicPath derives the keypair at an arbitrary hardened path.
func FromMnemonicPath(phrase, path string) (*Keypair, error) {
	key, _, err := DeriveKey(SeedFromMnemonic(phrase, ""), path)
	if err != nil {
		return nil, err
	}
	return FromSeed(key)
}

// NewRandomKeypair generates a fresh keypair from crypto/rand.
func NewRandomKeypair() (*Keypair, error) {
	return NewRandomKeypairFrom(rand.Reader)
}

// NewRandomKeypairFrom generates a keypair reading entropy from r.
func NewRandomKeypairFrom(r io.Reader) (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return FromSeed(priv.Seed())
}

// PublicKey returns the account public key.
func (k *Keypair) PublicKey() solana.PublicKey {
	return k.private.PublicKey()
}

// PrivateKey returns the 64-byte ed25519 private key.
func (k *Keypair) PrivateKey() solana.PrivateKey {
	return k.private
}

// Address returns the base58 account address.
func (k *Keypair) Address() string {
	pub := k.PublicKey()
	return base58.Encode(pub[:])
}

func (k *Keypair) String() string {
	return k.Address()
}
