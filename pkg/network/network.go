package network

import (
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrUnknownNetwork is returned by Lookup for unregistered network ids.
	ErrUnknownNetwork = errors.New("unknown network")
	// ErrDuplicateNetwork ...
	ErrDuplicateNetwork = errors.New("network is already registered")
	// ErrInvalidProfile ...
	ErrInvalidProfile = errors.New("profile must have a name and a coin ticker")
)

// Profile is the constant table of a supported network: address version
// bytes, bech32 prefix, HD serialization magics and fee conventions. Profiles
// are registered once at process start and are read-only afterwards.
type Profile struct {
	// Name is the registry identifier, e.g. "bitcoin", "litecoin-testnet".
	Name string
	// Coin is the ticker, e.g. "BTC".
	Coin string
	// Testnet marks test networks.
	Testnet bool

	// PubKeyHashVersion is the base58 version byte of legacy addresses.
	PubKeyHashVersion byte
	// ScriptHashVersion is the base58 version byte of script-hash addresses.
	ScriptHashVersion byte
	// WIFVersion is the version byte for WIF-encoded private keys.
	WIFVersion byte
	// Bech32HRP is the human-readable part of segwit addresses. Empty means
	// the network has no segwit address format.
	Bech32HRP string

	// HDCoinType is the BIP44 coin type.
	HDCoinType uint32
	// HDPrivateKeyID and HDPublicKeyID are the BIP32 serialization magics.
	HDPrivateKeyID [4]byte
	HDPublicKeyID  [4]byte

	// DustThreshold is the minimum spendable output amount in the smallest
	// unit. Change below it is folded into the transaction fee.
	DustThreshold uint64
	// SupportsRBF tells whether BIP125 replace-by-fee signaling is
	// meaningful on this network.
	SupportsRBF bool

	// magic distinguishes the network when registering chain params. Zero
	// for networks already known to the btcd chaincfg registry.
	magic wire.BitcoinNet

	chainParams *chaincfg.Params
}

// SupportsSegwit reports whether the network has a segwit address encoding.
func (p *Profile) SupportsSegwit() bool {
	return p.Bech32HRP != ""
}

// ChainParams returns the btcd chain parameters matching the profile, usable
// with hdkeychain and txscript.
func (p *Profile) ChainParams() *chaincfg.Params {
	return p.chainParams
}

func (p *Profile) validate() error {
	if p.Name == "" || p.Coin == "" {
		return ErrInvalidProfile
	}
	return nil
}

// buildChainParams assembles (and registers with chaincfg, so that extended
// key neutering resolves the right version bytes) the chain parameters of a
// profile that is not covered by the btcd built-ins.
func (p *Profile) buildChainParams() error {
	if p.chainParams != nil {
		return nil
	}

	params := &chaincfg.Params{
		Name:             p.Name,
		Net:              p.magic,
		PubKeyHashAddrID: p.PubKeyHashVersion,
		ScriptHashAddrID: p.ScriptHashVersion,
		PrivateKeyID:     p.WIFVersion,
		Bech32HRPSegwit:  p.Bech32HRP,
		HDPrivateKeyID:   p.HDPrivateKeyID,
		HDPublicKeyID:    p.HDPublicKeyID,
		HDCoinType:       p.HDCoinType,
	}
	if err := chaincfg.Register(params); err != nil &&
		!errors.Is(err, chaincfg.ErrDuplicateNet) {
		return err
	}
	p.chainParams = params
	return nil
}

var (
	registryMtx sync.RWMutex
	registry    = make(map[string]*Profile)
)

// Register adds a profile to the process-wide registry. It must be called at
// process start, before any Lookup; registering the same name twice fails.
func Register(profile Profile) error {
	if err := profile.validate(); err != nil {
		return err
	}

	registryMtx.Lock()
	defer registryMtx.Unlock()

	if _, ok := registry[profile.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNetwork, profile.Name)
	}
	if err := profile.buildChainParams(); err != nil {
		return err
	}
	registry[profile.Name] = &profile
	return nil
}

// Lookup returns the profile registered under the given network id.
func Lookup(networkID string) (*Profile, error) {
	registryMtx.RLock()
	defer registryMtx.RUnlock()

	profile, ok := registry[networkID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, networkID)
	}
	return profile, nil
}

// Networks returns the ids of all registered profiles.
func Networks() []string {
	registryMtx.RLock()
	defer registryMtx.RUnlock()

	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}
