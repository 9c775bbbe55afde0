// Package txbuilder assembles, signs and replaces transactions from a
// reconciled UTXO view. Drafts and signed transactions are plain values
// exclusively owned by their caller; nothing in this package keeps shared
// mutable state.
package txbuilder

import (
	"github.com/polywallet/polywallet/pkg/address"
	"github.com/polywallet/polywallet/pkg/explorer"
	"github.com/polywallet/polywallet/pkg/network"
)

// Destination is one requested output of a draft.
type Destination struct {
	Address *address.Address
	Amount  uint64
}

// TransactionDraft is the outcome of input selection and fee computation,
// ready to be signed. The conservation rule always holds: the sum of the
// inputs equals the sum of the outputs (destinations plus change) plus Fee.
type TransactionDraft struct {
	net          *network.Profile
	inputs       []explorer.Utxo
	destinations []Destination
	change       *address.Address
	changeAmount uint64
	fee          uint64
	feeRate      explorer.FeeRate
	rbf          bool
}

// BuildOpts is the struct given to Build.
type BuildOpts struct {
	// Network is the profile the transaction is built for.
	Network *network.Profile
	// Utxos is the spendable set, typically the aggregator's reconciled
	// view of the owned addresses.
	Utxos []explorer.Utxo
	// Destinations are the requested outputs.
	Destinations []Destination
	// FeeRate is the fee rate in smallest units per virtual byte.
	FeeRate explorer.FeeRate
	// ChangeAddress receives any remainder above the dust threshold.
	ChangeAddress *address.Address
	// EnableRBF signals BIP125 replaceability on every input.
	EnableRBF bool
}

func (o BuildOpts) validate() error {
	if o.Network == nil {
		return ErrNullNetwork
	}
	if len(o.Destinations) == 0 {
		return ErrNoDestinations
	}
	if o.FeeRate == 0 {
		return ErrNullFeeRate
	}
	if o.ChangeAddress == nil {
		return ErrNullChangeAddress
	}
	if o.ChangeAddress.Network().Name != o.Network.Name {
		return ErrNetworkMismatch
	}
	for _, destination := range o.Destinations {
		if destination.Address == nil ||
			destination.Address.Network().Name != o.Network.Name {
			return ErrNetworkMismatch
		}
		if destination.Amount < o.Network.DustThreshold {
			return ErrDustDestination
		}
	}
	if o.EnableRBF && !o.Network.SupportsRBF {
		return ErrRBFNotSupported
	}
	return nil
}

// Build selects inputs and computes the fee for the requested outputs.
//
// Fee computation is two-pass: input selection works against a running
// worst-case size estimate, then the fee is recomputed from the exact shape
// of the final transaction. A remainder above the dust threshold goes to
// the change address; a remainder below it is folded into the fee instead
// of creating an unspendable output.
func Build(opts BuildOpts) (*TransactionDraft, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var target uint64
	outputTypes := make([]address.ScriptType, 0, len(opts.Destinations)+1)
	for _, destination := range opts.Destinations {
		target += destination.Amount
		outputTypes = append(outputTypes, destination.Address.Type())
	}
	outputTypes = append(outputTypes, opts.ChangeAddress.Type())

	inputs, err := selectUtxos(opts.Utxos, target, opts.FeeRate, outputTypes)
	if err != nil {
		return nil, err
	}

	inputTypes := make([]address.ScriptType, 0, len(inputs))
	var totalIn uint64
	for _, input := range inputs {
		inputTypes = append(inputTypes, input.ScriptType)
		totalIn += input.Amount
	}

	fee := estimateFee(inputTypes, outputTypes, opts.FeeRate)
	changeAmount := totalIn - target - fee
	if changeAmount < opts.Network.DustThreshold {
		fee += changeAmount
		changeAmount = 0
	}

	return &TransactionDraft{
		net:          opts.Network,
		inputs:       inputs,
		destinations: opts.Destinations,
		change:       opts.ChangeAddress,
		changeAmount: changeAmount,
		fee:          fee,
		feeRate:      opts.FeeRate,
		rbf:          opts.EnableRBF,
	}, nil
}

// Inputs returns the selected inputs.
func (d *TransactionDraft) Inputs() []explorer.Utxo {
	inputs := make([]explorer.Utxo, len(d.inputs))
	copy(inputs, d.inputs)
	return inputs
}

// Destinations returns the requested outputs.
func (d *TransactionDraft) Destinations() []Destination {
	destinations := make([]Destination, len(d.destinations))
	copy(destinations, d.destinations)
	return destinations
}

// Fee returns the computed fee in the smallest unit.
func (d *TransactionDraft) Fee() uint64 {
	return d.fee
}

// FeeRate returns the rate the fee was computed at.
func (d *TransactionDraft) FeeRate() explorer.FeeRate {
	return d.feeRate
}

// ChangeAmount returns the remainder sent to the change address. Zero means
// the remainder was folded into the fee.
func (d *TransactionDraft) ChangeAmount() uint64 {
	return d.changeAmount
}

// Replaceable reports whether the draft signals BIP125 replaceability.
func (d *TransactionDraft) Replaceable() bool {
	return d.rbf
}

// Network returns the profile the draft was built for.
func (d *TransactionDraft) Network() *network.Profile {
	return d.net
}
