package txbuilder

import (
	"errors"
	"fmt"
)

var (
	// ErrNullNetwork ...
	ErrNullNetwork = errors.New("network profile must not be null")
	// ErrNoDestinations ...
	ErrNoDestinations = errors.New("at least one destination is required")
	// ErrNullFeeRate ...
	ErrNullFeeRate = errors.New("fee rate must be positive")
	// ErrNullChangeAddress ...
	ErrNullChangeAddress = errors.New("change address must not be null")
	// ErrNetworkMismatch is returned when a destination or change address
	// belongs to a different network than the draft.
	ErrNetworkMismatch = errors.New("address network does not match draft network")
	// ErrDustDestination is returned when a requested output is below the
	// network's dust threshold.
	ErrDustDestination = errors.New("destination amount is below the dust threshold")
	// ErrRBFNotSupported is returned when replaceability is requested on a
	// network where BIP125 signaling is meaningless.
	ErrRBFNotSupported = errors.New("network does not support replace-by-fee")
	// ErrNotReplaceable is returned by BumpFee when the original draft did
	// not signal replaceability.
	ErrNotReplaceable = errors.New("transaction did not signal replace-by-fee")
	// ErrFeeRateTooLow is returned by BumpFee when the new rate is not
	// strictly higher than the original one.
	ErrFeeRateTooLow = errors.New("replacement fee rate must be strictly higher")
)

// InsufficientFundsError is returned when the available UTXO set cannot
// cover the requested amount plus fees.
type InsufficientFundsError struct {
	Need uint64
	Have uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"insufficient funds: need %d, have %d, short %d",
		e.Need, e.Have, e.Need-e.Have,
	)
}

// Shortfall returns the missing amount in the smallest unit.
func (e *InsufficientFundsError) Shortfall() uint64 {
	return e.Need - e.Have
}

// SigningError is returned when a draft cannot be signed. No partially
// signed artifact is ever produced alongside it.
type SigningError struct {
	InputIndex int
	Address    string
	Err        error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf(
		"cannot sign input %d (%s): %v", e.InputIndex, e.Address, e.Err,
	)
}

func (e *SigningError) Unwrap() error { return e.Err }
