package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"

	"github.com/polywallet/polywallet/pkg/network"
)

var (
	// ErrNilSeed ...
	ErrNilSeed = errors.New("seed must not be null")
	// ErrNilNetwork ...
	ErrNilNetwork = errors.New("network profile must not be null")
	// ErrInvalidSeedLength ...
	ErrInvalidSeedLength = errors.New(
		"seed length must be in the range [16, 64] bytes",
	)
	// ErrDeriveHardenedFromPublic is returned when a hardened step is
	// requested on a public-only extended key.
	ErrDeriveHardenedFromPublic = errors.New(
		"cannot derive a hardened child from a public-only extended key",
	)
	// ErrPublicOnlyKey is returned when private key material is requested
	// from a neutered extended key.
	ErrPublicOnlyKey = errors.New("extended key holds no private material")
)

// DerivationError wraps any failure of a derivation operation together with
// the offending path. Key material never appears in the message.
type DerivationError struct {
	Path string
	Err  error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("deriving %s: %v", e.Path, e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }

// ExtendedKey is a BIP32 extended key bound to a network profile. A key
// either carries private material (can sign, can derive hardened children)
// or is public-only (can neither). Derivation is deterministic: the same
// seed and path always produce the same key material.
type ExtendedKey struct {
	key *hdkeychain.ExtendedKey
	net *network.Profile
}

// NewMasterKey stretches a seed into the master extended key of the given
// network (BIP32 HMAC-SHA512 with the "Bitcoin seed" salt).
func NewMasterKey(seed []byte, net *network.Profile) (*ExtendedKey, error) {
	if len(seed) == 0 {
		return nil, ErrNilSeed
	}
	if net == nil {
		return nil, ErrNilNetwork
	}
	if len(seed) < hdkeychain.MinSeedBytes || len(seed) > hdkeychain.MaxSeedBytes {
		return nil, ErrInvalidSeedLength
	}

	masterKey, err := hdkeychain.NewMaster(seed, net.ChainParams())
	if err != nil {
		return nil, err
	}
	return &ExtendedKey{key: masterKey, net: net}, nil
}

// NewKeyFromString parses a base58-serialized extended key (xprv/xpub style,
// using the profile's HD magics).
func NewKeyFromString(encoded string, net *network.Profile) (*ExtendedKey, error) {
	if net == nil {
		return nil, ErrNilNetwork
	}
	key, err := hdkeychain.NewKeyFromString(encoded)
	if err != nil {
		return nil, err
	}
	return &ExtendedKey{key: key, net: net}, nil
}

// Derive walks the given path, one child at a time. Hardened steps fail on
// public-only keys; the failure reports the path, never the key material.
func (k *ExtendedKey) Derive(path DerivationPath) (*ExtendedKey, error) {
	derived := k.key
	for i, childIndex := range path {
		if childIndex >= hdkeychain.HardenedKeyStart && !derived.IsPrivate() {
			return nil, &DerivationError{
				Path: path[:i+1].String(),
				Err:  ErrDeriveHardenedFromPublic,
			}
		}
		child, err := derived.Derive(childIndex)
		if err != nil {
			if errors.Is(err, hdkeychain.ErrDeriveHardFromPublic) {
				err = ErrDeriveHardenedFromPublic
			}
			return nil, &DerivationError{Path: path[:i+1].String(), Err: err}
		}
		derived = child
	}
	return &ExtendedKey{key: derived, net: k.net}, nil
}

// DerivePath parses and derives a path given in string form.
func (k *ExtendedKey) DerivePath(path string) (*ExtendedKey, error) {
	parsed, err := ParseDerivationPath(path)
	if err != nil {
		return nil, &DerivationError{Path: path, Err: err}
	}
	return k.Derive(parsed)
}

// PublicOnly strips the private material from the key. The operation is
// irreversible: the result can derive non-hardened children and render
// addresses but can never sign.
func (k *ExtendedKey) PublicOnly() (*ExtendedKey, error) {
	neutered, err := k.key.Neuter()
	if err != nil {
		return nil, err
	}
	return &ExtendedKey{key: neutered, net: k.net}, nil
}

// IsPrivate reports whether the key carries private material.
func (k *ExtendedKey) IsPrivate() bool {
	return k.key.IsPrivate()
}

// ECPubKey returns the public key of this node.
func (k *ExtendedKey) ECPubKey() (*btcec.PublicKey, error) {
	return k.key.ECPubKey()
}

// ECPrivKey returns the private key of this node, failing on public-only
// keys.
func (k *ExtendedKey) ECPrivKey() (*btcec.PrivateKey, error) {
	if !k.key.IsPrivate() {
		return nil, ErrPublicOnlyKey
	}
	return k.key.ECPrivKey()
}

// Network returns the profile the key is bound to.
func (k *ExtendedKey) Network() *network.Profile {
	return k.net
}

// String returns the base58 serialization of the extended key.
func (k *ExtendedKey) String() string {
	return k.key.String()
}
