// Package wallet derives and generates ed25519 keypairs for Solana accounts.
package wallet

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// SolanaPath is the derivation path used by Phantom, Solflare and the Solana CLI
// for the first account of a seed phrase.
const SolanaPath = "m/44'/501'/0'/0'"

const (
	hardenedOffset = 0x80000000
	curveSeed      = "ed25519 seed"
)

// ErrInvalidPath is returned for paths that are not fully hardened SLIP-0010 paths.
var ErrInvalidPath = errors.New("invalid derivation path")

var pathPattern = regexp.MustCompile(`^m(/[0-9]+')+$`)

// SeedFromMnemonic converts a BIP-39 mnemonic into its 64-byte seed.
// The checksum is not enforced.
func SeedFromMnemonic(phrase, passphrase string) []byte {
	return bip39.NewSeed(strings.TrimSpace(phrase), passphrase)
}

type extendedKey struct {
	key       []byte
	chainCode []byte
}

func masterKey(seed []byte) extendedKey {
	return split(hmacSHA512([]byte(curveSeed), seed))
}

// child derives a hardened child. ed25519 has no public derivation.
func (k extendedKey) child(index uint32) extendedKey {
	data := make([]byte, 0, 1+len(k.key)+4)
	data = append(data, 0x00)
	data = append(data, k.key...)
	data = binary.BigEndian.AppendUint32(data, index)
	return split(hmacSHA512(k.chainCode, data))
}

func hmacSHA512(key, data []byte) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func split(sum []byte) extendedKey {
	return extendedKey{key: sum[:32], chainCode: sum[32:]}
}

// parsePath returns hardened child indexes for a path like m/44'/501'/0'/0'.
func parsePath(path string) ([]uint32, error) {
	if !pathPattern.MatchString(path) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	segments := strings.Split(path, "/")[1:]
	indexes := make([]uint32, 0, len(segments))
	for _, seg := range segments {
		n, err := strconv.ParseUint(strings.TrimSuffix(seg, "'"), 10, 31)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q out of range", ErrInvalidPath, seg)
		}
		indexes = append(indexes, uint32(n)+hardenedOffset)
	}
	return indexes, nil
}

// DeriveKey walks a SLIP-0010 ed25519 path from a BIP-39 seed and returns
// the 32-byte private seed and chain code of the final node.
func DeriveKey(seed []byte, path string) (key, chainCode []byte, err error) {
	indexes, err := parsePath(path)
	if err != nil {
		return nil, nil, err
	}

	node := masterKey(seed)
	for _, idx := range indexes {
		node = node.child(idx)
	}
	return node.key, node.chainCode, nil
}
