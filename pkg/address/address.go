package address

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/polywallet/polywallet/pkg/network"
)

var (
	// ErrInvalidAddress ...
	ErrInvalidAddress = errors.New("address is not valid for the network")
	// ErrInvalidHashLength ...
	ErrInvalidHashLength = errors.New("hash length does not match the script type")
	// ErrNilPublicKey ...
	ErrNilPublicKey = errors.New("public key must not be nil")
	// ErrNilNetwork ...
	ErrNilNetwork = errors.New("network profile must not be nil")
)

// UnsupportedScriptTypeError is returned when a (script type, network) pair
// has no address encoding, or when the script type cannot be constructed
// from the given material (e.g. a spendable P2SH from a bare public key).
type UnsupportedScriptTypeError struct {
	Network    string
	ScriptType ScriptType
}

func (e *UnsupportedScriptTypeError) Error() string {
	return fmt.Sprintf(
		"script type %s is not supported on network %s",
		e.ScriptType, e.Network,
	)
}

// ScriptType is the closed set of locking script templates understood by the
// engine. Each variant carries its own encoding and sighash rule; variants
// outside this set are decode-only and cannot be constructed.
type ScriptType int

const (
	// P2PKH is a legacy pay-to-pubkey-hash output.
	P2PKH ScriptType = iota
	// P2SH is a pay-to-script-hash output. Decode and receive only: the
	// engine never spends from script-hash sources.
	P2SH
	// P2WPKH is a segwit v0 pay-to-witness-pubkey-hash output.
	P2WPKH
	// P2WSH is a segwit v0 pay-to-witness-script-hash output. Decode and
	// receive only.
	P2WSH
)

func (t ScriptType) String() string {
	switch t {
	case P2PKH:
		return "p2pkh"
	case P2SH:
		return "p2sh"
	case P2WPKH:
		return "p2wpkh"
	case P2WSH:
		return "p2wsh"
	default:
		return "unknown"
	}
}

// Segwit reports whether the script type spends through the witness.
func (t ScriptType) Segwit() bool {
	return t == P2WPKH || t == P2WSH
}

// Address is a rendered address string together with its locking script,
// script type and owning network. Addresses are immutable value objects.
type Address struct {
	encoded    string
	script     []byte
	scriptType ScriptType
	net        *network.Profile
}

// FromPublicKey projects a public key to an address of the given script type.
// Only P2PKH and P2WPKH can be built from a bare public key.
func FromPublicKey(
	pubKey *btcec.PublicKey, net *network.Profile, scriptType ScriptType,
) (*Address, error) {
	if pubKey == nil {
		return nil, ErrNilPublicKey
	}
	if net == nil {
		return nil, ErrNilNetwork
	}

	pubKeyHash := btcutil.Hash160(pubKey.SerializeCompressed())

	switch scriptType {
	case P2PKH:
		return newPubKeyHashAddress(pubKeyHash, net)
	case P2WPKH:
		if !net.SupportsSegwit() {
			return nil, &UnsupportedScriptTypeError{net.Name, scriptType}
		}
		return newWitnessAddress(pubKeyHash, net, P2WPKH)
	default:
		return nil, &UnsupportedScriptTypeError{net.Name, scriptType}
	}
}

// FromScriptHash projects a script hash to a P2SH or P2WSH address. The
// resulting addresses can receive funds but are never used as spending
// sources by the transaction builder.
func FromScriptHash(
	hash []byte, net *network.Profile, scriptType ScriptType,
) (*Address, error) {
	if net == nil {
		return nil, ErrNilNetwork
	}

	switch scriptType {
	case P2SH:
		if len(hash) != 20 {
			return nil, ErrInvalidHashLength
		}
		return newScriptHashAddress(hash, net)
	case P2WSH:
		if !net.SupportsSegwit() {
			return nil, &UnsupportedScriptTypeError{net.Name, scriptType}
		}
		if len(hash) != 32 {
			return nil, ErrInvalidHashLength
		}
		return newWitnessAddress(hash, net, P2WSH)
	default:
		return nil, &UnsupportedScriptTypeError{net.Name, scriptType}
	}
}

// Decode parses an address string against a network profile and returns the
// address with its locking script. It is the exact inverse of the encoding
// used by FromPublicKey/FromScriptHash.
func Decode(encoded string, net *network.Profile) (*Address, error) {
	if net == nil {
		return nil, ErrNilNetwork
	}
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidAddress)
	}

	if net.SupportsSegwit() {
		lowered := strings.ToLower(encoded)
		if strings.HasPrefix(lowered, net.Bech32HRP+"1") {
			return decodeSegwit(encoded, net)
		}
	}
	return decodeBase58(encoded, net)
}

func newPubKeyHashAddress(hash []byte, net *network.Profile) (*Address, error) {
	script, err := payToPubKeyHashScript(hash)
	if err != nil {
		return nil, err
	}
	return &Address{
		encoded:    base58.CheckEncode(hash, net.PubKeyHashVersion),
		script:     script,
		scriptType: P2PKH,
		net:        net,
	}, nil
}

func newScriptHashAddress(hash []byte, net *network.Profile) (*Address, error) {
	script, err := payToScriptHashScript(hash)
	if err != nil {
		return nil, err
	}
	return &Address{
		encoded:    base58.CheckEncode(hash, net.ScriptHashVersion),
		script:     script,
		scriptType: P2SH,
		net:        net,
	}, nil
}

func newWitnessAddress(
	program []byte, net *network.Profile, scriptType ScriptType,
) (*Address, error) {
	script, err := payToWitnessScript(program)
	if err != nil {
		return nil, err
	}

	converted, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return nil, err
	}
	// Witness version 0 prepended as a raw 5-bit value.
	encoded, err := bech32.Encode(net.Bech32HRP, append([]byte{0x00}, converted...))
	if err != nil {
		return nil, err
	}

	return &Address{
		encoded:    encoded,
		script:     script,
		scriptType: scriptType,
		net:        net,
	}, nil
}

func decodeBase58(encoded string, net *network.Profile) (*Address, error) {
	hash, version, err := base58.CheckDecode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(hash) != 20 {
		return nil, ErrInvalidHashLength
	}

	switch version {
	case net.PubKeyHashVersion:
		return newPubKeyHashAddress(hash, net)
	case net.ScriptHashVersion:
		return newScriptHashAddress(hash, net)
	default:
		return nil, fmt.Errorf(
			"%w: version byte %d does not belong to %s",
			ErrInvalidAddress, version, net.Name,
		)
	}
}

func decodeSegwit(encoded string, net *network.Profile) (*Address, error) {
	hrp, data, err := bech32.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if hrp != net.Bech32HRP {
		return nil, fmt.Errorf(
			"%w: prefix %s does not belong to %s", ErrInvalidAddress, hrp, net.Name,
		)
	}
	if len(data) < 1 || data[0] != 0x00 {
		return nil, fmt.Errorf("%w: unsupported witness version", ErrInvalidAddress)
	}

	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	switch len(program) {
	case 20:
		return newWitnessAddress(program, net, P2WPKH)
	case 32:
		return newWitnessAddress(program, net, P2WSH)
	default:
		return nil, ErrInvalidHashLength
	}
}

// String returns the rendered address.
func (a *Address) String() string {
	return a.encoded
}

// Script returns a copy of the locking script.
func (a *Address) Script() []byte {
	script := make([]byte, len(a.script))
	copy(script, a.script)
	return script
}

// Type returns the script type tag.
func (a *Address) Type() ScriptType {
	return a.scriptType
}

// Network returns the owning network profile.
func (a *Address) Network() *network.Profile {
	return a.net
}

// Equal reports whether two addresses lock to the same script on the same
// network, regardless of how they were encoded.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.net.Name == other.net.Name && bytes.Equal(a.script, other.script)
}
