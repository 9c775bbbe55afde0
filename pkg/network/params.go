package network

import (
	"github.com/btcsuite/btcd/chaincfg"

	log "github.com/sirupsen/logrus"
)

// Handles to the built-in profiles, assigned at registration time. Always
// identical to the result of Lookup with the matching id.
var (
	Bitcoin         *Profile
	BitcoinTestnet  *Profile
	Litecoin        *Profile
	LitecoinTestnet *Profile
	Dogecoin        *Profile
	Dash            *Profile
)

// Built-in profile tables. Version bytes and HD magics follow the reference
// clients; dust thresholds follow each network's relay policy.
var builtins = []Profile{
	{
		Name:              "bitcoin",
		Coin:              "BTC",
		PubKeyHashVersion: 0x00,
		ScriptHashVersion: 0x05,
		WIFVersion:        0x80,
		Bech32HRP:         "bc",
		HDCoinType:        0,
		HDPrivateKeyID:    [4]byte{0x04, 0x88, 0xad, 0xe4}, // xprv
		HDPublicKeyID:     [4]byte{0x04, 0x88, 0xb2, 0x1e}, // xpub
		DustThreshold:     546,
		SupportsRBF:       true,
		chainParams:       &chaincfg.MainNetParams,
	},
	{
		Name:              "bitcoin-testnet",
		Coin:              "BTC",
		Testnet:           true,
		PubKeyHashVersion: 0x6f,
		ScriptHashVersion: 0xc4,
		WIFVersion:        0xef,
		Bech32HRP:         "tb",
		HDCoinType:        1,
		HDPrivateKeyID:    [4]byte{0x04, 0x35, 0x83, 0x94}, // tprv
		HDPublicKeyID:     [4]byte{0x04, 0x35, 0x87, 0xcf}, // tpub
		DustThreshold:     546,
		SupportsRBF:       true,
		chainParams:       &chaincfg.TestNet3Params,
	},
	{
		Name:              "litecoin",
		Coin:              "LTC",
		PubKeyHashVersion: 0x30,
		ScriptHashVersion: 0x32,
		WIFVersion:        0xb0,
		Bech32HRP:         "ltc",
		HDCoinType:        2,
		HDPrivateKeyID:    [4]byte{0x01, 0x9d, 0x9c, 0xfe}, // Ltpv
		HDPublicKeyID:     [4]byte{0x01, 0x9d, 0xa4, 0x62}, // Ltub
		DustThreshold:     5460,
		SupportsRBF:       true,
		magic:             0xdbb6c0fb,
	},
	{
		Name:              "litecoin-testnet",
		Coin:              "LTC",
		Testnet:           true,
		PubKeyHashVersion: 0x6f,
		ScriptHashVersion: 0x3a,
		WIFVersion:        0xef,
		Bech32HRP:         "tltc",
		HDCoinType:        1,
		HDPrivateKeyID:    [4]byte{0x04, 0x36, 0xef, 0x7d}, // ttpv
		HDPublicKeyID:     [4]byte{0x04, 0x36, 0xf6, 0xe1}, // ttub
		DustThreshold:     5460,
		SupportsRBF:       true,
		magic:             0xf1c8d2fd,
	},
	{
		Name:              "dogecoin",
		Coin:              "DOGE",
		PubKeyHashVersion: 0x1e,
		ScriptHashVersion: 0x16,
		WIFVersion:        0x9e,
		HDCoinType:        3,
		HDPrivateKeyID:    [4]byte{0x02, 0xfa, 0xc3, 0x98}, // dgpv
		HDPublicKeyID:     [4]byte{0x02, 0xfa, 0xca, 0xfd}, // dgub
		DustThreshold:     1000000,
		magic:             0xc0c0c0c0,
	},
	{
		Name:              "dash",
		Coin:              "DASH",
		PubKeyHashVersion: 0x4c,
		ScriptHashVersion: 0x10,
		WIFVersion:        0xcc,
		HDCoinType:        5,
		HDPrivateKeyID:    [4]byte{0x04, 0x88, 0xad, 0xe4}, // bitcoin-style, for wallet compatibility
		HDPublicKeyID:     [4]byte{0x04, 0x88, 0xb2, 0x1e},
		DustThreshold:     546,
		magic:             0xbd6b0cbf,
	},
}

func init() {
	for _, profile := range builtins {
		if err := Register(profile); err != nil {
			log.WithError(err).Panicf("registering built-in network %s", profile.Name)
		}
	}

	handles := map[string]**Profile{
		"bitcoin":          &Bitcoin,
		"bitcoin-testnet":  &BitcoinTestnet,
		"litecoin":         &Litecoin,
		"litecoin-testnet": &LitecoinTestnet,
		"dogecoin":         &Dogecoin,
		"dash":             &Dash,
	}
	for id, handle := range handles {
		profile, err := Lookup(id)
		if err != nil {
			log.WithError(err).Panic("network registry is inconsistent")
		}
		*handle = profile
	}
}
