package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/polywallet/polywallet/pkg/address"
)

var (
	// ErrKeyNotFound is returned when no derived key matches an address.
	ErrKeyNotFound = errors.New("no key in the ring matches the address")
)

// KeyRing indexes derived keys by the locking script of their rendered
// address, so the transaction signer can resolve the private key of each
// input it consumes. A ring built from a public-only tree can render
// addresses but resolving a private key from it fails.
type KeyRing struct {
	mtx  sync.RWMutex
	net  string
	keys map[string]*ExtendedKey
}

// NewKeyRing returns an empty ring.
func NewKeyRing() *KeyRing {
	return &KeyRing{keys: make(map[string]*ExtendedKey)}
}

// Add derives the child at the given path, renders its address with the
// requested script type and indexes the node under the address script.
func (r *KeyRing) Add(
	master *ExtendedKey, path DerivationPath, scriptType address.ScriptType,
) (*address.Address, error) {
	child, err := master.Derive(path)
	if err != nil {
		return nil, err
	}

	pubKey, err := child.ECPubKey()
	if err != nil {
		return nil, err
	}
	addr, err := address.FromPublicKey(pubKey, master.Network(), scriptType)
	if err != nil {
		return nil, err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.net == "" {
		r.net = master.Network().Name
	}
	if r.net != master.Network().Name {
		return nil, fmt.Errorf(
			"key ring is bound to network %s, got %s", r.net, master.Network().Name,
		)
	}
	r.keys[hex.EncodeToString(addr.Script())] = child
	return addr, nil
}

// PrivateKeyFor resolves the private key able to spend from the given
// address. It fails with ErrKeyNotFound for unknown addresses and with
// ErrPublicOnlyKey when the ring was built from a neutered tree.
func (r *KeyRing) PrivateKeyFor(addr *address.Address) (*btcec.PrivateKey, error) {
	r.mtx.RLock()
	child, ok := r.keys[hex.EncodeToString(addr.Script())]
	r.mtx.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, addr.String())
	}
	return child.ECPrivKey()
}

// Size returns the number of indexed addresses.
func (r *KeyRing) Size() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.keys)
}
