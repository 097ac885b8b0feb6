package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// SLIP-0010 test vector 1 for ed25519.
func TestDeriveKey_SLIP10Vector1(t *testing.T) {
	seed := mustHex(t, "000102030405060708090a0b0c0d0e0f")

	master := masterKey(seed)
	assert.Equal(t, "2b4be7f19ee27bbf30c667b642d5f4aa69fd169872f8fc3059c08ebae2eb19e7", hex.EncodeToString(master.key))
	assert.Equal(t, "90046a93de5380a72b5e45010748567d5ea02bbf6522f979e05c0d8d8ca9fffb", hex.EncodeToString(master.chainCode))

	tests := []struct {
		path      string
		key       string
		chainCode string
	}{
		{
			path:      "m/0'",
			key:       "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3",
			chainCode: "8b59aa11380b624e81507a27fedda59fea6d0b779a778918a2fd3590e16e9c69",
		},
		{
			path:      "m/0'/1'",
			key:       "b1d0bad404bf35da785a64ca1ac54b2617211d2777696fbffaf208f746ae84f2",
			chainCode: "a320425f77d1b5c2505a6b1b27382b37368ee640e3557c315416801243552f14",
		},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			key, chainCode, err := DeriveKey(seed, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.key, hex.EncodeToString(key))
			assert.Equal(t, tt.chainCode, hex.EncodeToString(chainCode))
		})
	}
}

func TestDeriveKey_InvalidPath(t *testing.T) {
	seed := SeedFromMnemonic(testMnemonic, "")

	paths := []string{
		"",
		"m",
		"m/44/501'",
		"44'/501'",
		"m/44'/501'/",
		"m/2147483648'",
	}

	for _, p := range paths {
		_, _, err := DeriveKey(seed, p)
		if !errors.Is(err, ErrInvalidPath) {
			t.Errorf("path %q: expected ErrInvalidPath, got %v", p, err)
		}
	}
}

func TestFromMnemonic_Deterministic(t *testing.T) {
	a, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)
	b, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)

	assert.Equal(t, a.Address(), b.Address())
	assert.Equal(t, a.PrivateKey(), b.PrivateKey())

	// Surrounding whitespace from .env files does not change the account.
	c, err := FromMnemonic("  " + testMnemonic + "\n")
	require.NoError(t, err)
	assert.Equal(t, a.Address(), c.Address())
}

func TestFromMnemonic_PathMatters(t *testing.T) {
	first, err := FromMnemonicPath(testMnemonic, SolanaPath)
	require.NoError(t, err)
	second, err := FromMnemonicPath(testMnemonic, "m/44'/501'/1'/0'")
	require.NoError(t, err)

	assert.NotEqual(t, first.Address(), second.Address())
}

func TestFromMnemonic_MatchesManualDerivation(t *testing.T) {
	kp, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)

	key, _, err := DeriveKey(SeedFromMnemonic(testMnemonic, ""), SolanaPath)
	require.NoError(t, err)

	assert.Equal(t, key, []byte(kp.PrivateKey()[:32]))
}

func TestKeypair_Address(t *testing.T) {
	kp, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)

	decoded, err := base58.Decode(kp.Address())
	require.NoError(t, err)
	require.Len(t, decoded, 32)

	pub := kp.PublicKey()
	assert.Equal(t, pub[:], decoded)
	assert.Equal(t, kp.Address(), kp.String())
	assert.Equal(t, kp.Address(), pub.String())
}

func TestFromSeed_WrongLength(t *testing.T) {
	_, err := FromSeed(make([]byte, 31))
	require.Error(t, err)
}

func TestNewRandomKeypair(t *testing.T) {
	a, err := NewRandomKeypair()
	require.NoError(t, err)
	b, err := NewRandomKeypair()
	require.NoError(t, err)

	assert.NotEqual(t, a.Address(), b.Address())
}

func TestNewRandomKeypairFrom_Reader(t *testing.T) {
	entropy := bytes.Repeat([]byte{7}, 32)

	a, err := NewRandomKeypairFrom(bytes.NewReader(entropy))
	require.NoError(t, err)
	b, err := NewRandomKeypairFrom(bytes.NewReader(entropy))
	require.NoError(t, err)
	assert.Equal(t, a.Address(), b.Address())

	_, err = NewRandomKeypairFrom(bytes.NewReader(nil))
	require.Error(t, err)
}

func TestIsOnCurve(t *testing.T) {
	kp, err := NewRandomKeypair()
	require.NoError(t, err)
	pub := kp.PublicKey()

	assert.True(t, IsOnCurve(pub[:]))
	assert.False(t, IsOnCurve(pub[:31]))

	// y = 2 has no x: (y^2-1)/(d*y^2+1) is not a square mod p.
	offCurve := make([]byte, 32)
	offCurve[0] = 2
	assert.False(t, IsOnCurve(offCurve))

	// y = 1 is the identity point (x = 0).
	identity := make([]byte, 32)
	identity[0] = 1
	assert.True(t, IsOnCurve(identity))

	// y = p + 1 is a non-canonical encoding of the identity.
	nonCanonical := bytes.Repeat([]byte{0xff}, 32)
	nonCanonical[0] = 0xee
	nonCanonical[31] = 0x7f
	assert.True(t, IsOnCurve(nonCanonical))
}

func TestFromMnemonic_KnownAddress(t *testing.T) {
	kp, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)
	assert.Equal(t, "HAgk14JpMQLgt6rVgv7cBQFJWFto5Dqxi472uT3DKpqk", kp.Address())
}
