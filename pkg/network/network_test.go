package network

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupBuiltins(t *testing.T) {
	tests := []struct {
		id     string
		coin   string
		segwit bool
		rbf    bool
	}{
		{"bitcoin", "BTC", true, true},
		{"bitcoin-testnet", "BTC", true, true},
		{"litecoin", "LTC", true, true},
		{"litecoin-testnet", "LTC", true, true},
		{"dogecoin", "DOGE", false, false},
		{"dash", "DASH", false, false},
	}
	for _, tt := range tests {
		profile, err := Lookup(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.coin, profile.Coin)
		assert.Equal(t, tt.segwit, profile.SupportsSegwit())
		assert.Equal(t, tt.rbf, profile.SupportsRBF)
		assert.NotNil(t, profile.ChainParams())
		assert.Equal(t, profile.PubKeyHashVersion, profile.ChainParams().PubKeyHashAddrID)
	}
}

func TestLookupUnknownNetwork(t *testing.T) {
	_, err := Lookup("monopoly-money")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownNetwork))
	assert.Contains(t, err.Error(), "monopoly-money")
}

func TestRegisterDuplicate(t *testing.T) {
	err := Register(Profile{Name: "bitcoin", Coin: "BTC"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateNetwork))
}

func TestRegisterInvalidProfile(t *testing.T) {
	err := Register(Profile{Name: "nameless"})
	assert.True(t, errors.Is(err, ErrInvalidProfile))
}

func TestBuiltinHandles(t *testing.T) {
	require.NotNil(t, Bitcoin)
	fromLookup, err := Lookup("bitcoin")
	require.NoError(t, err)
	assert.Same(t, fromLookup, Bitcoin)
}
