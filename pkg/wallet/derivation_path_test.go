package wallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hardened = hdkeychain.HardenedKeyStart

func TestParseDerivationPath(t *testing.T) {
	tests := []struct {
		in   string
		want DerivationPath
	}{
		{"m/44'/0'/0'/0/0", DerivationPath{hardened + 44, hardened, hardened, 0, 0}},
		{"44'/0'/0'", DerivationPath{hardened + 44, hardened, hardened}},
		{"m/0/2147483647", DerivationPath{0, 2147483647}},
		{"m/0'/1", DerivationPath{hardened, 1}},
	}
	for _, tt := range tests {
		got, err := ParseDerivationPath(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseDerivationPathErrors(t *testing.T) {
	tests := []string{
		"",
		"m/",
		"/44'/0'",
		"m//0",
		"m/44'/0'/",
		"m/wrong",
		"m/-1",
		"m/4294967296",
		"m/2147483648",  // unhardened index beyond 2^31-1
		"m/3000000000",  // would silently act as a hardened step
		"m/2147483648'", // hardened index beyond 2^31-1
	}
	for _, tt := range tests {
		_, err := ParseDerivationPath(tt)
		assert.Error(t, err, "path %q", tt)
	}
}

func TestDerivationPathString(t *testing.T) {
	tests := []string{
		"m/44'/0'/0'/0/0",
		"m/84'/2'/1'/0/42",
		"m/0/1",
	}
	for _, tt := range tests {
		path, err := ParseDerivationPath(tt)
		require.NoError(t, err)
		assert.Equal(t, tt, path.String())
	}
}

func TestPurposePaths(t *testing.T) {
	assert.Equal(
		t,
		DerivationPath{hardened + 44, hardened + 2, hardened, 1, 7},
		BIP44(2, 0, 1, 7),
	)
	assert.Equal(t, "m/49'/0'/0'/0/0", BIP49(0, 0, 0, 0).String())
	assert.Equal(t, "m/84'/0'/3'/1/2", BIP84(0, 3, 1, 2).String())
}
