package wallet

import (
	"errors"

	"github.com/tyler-smith/go-bip39"
)

var (
	// ErrInvalidMnemonic ...
	ErrInvalidMnemonic = errors.New("mnemonic is invalid")
)

// NewMnemonic generates a fresh 24-word BIP39 mnemonic sentence.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// SeedFromMnemonic converts a BIP39 mnemonic sentence (plus optional
// passphrase) into the seed bytes consumed by NewMasterKey.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return bip39.NewSeed(mnemonic, passphrase), nil
}
