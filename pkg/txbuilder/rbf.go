package txbuilder

import (
	"github.com/polywallet/polywallet/pkg/address"
	"github.com/polywallet/polywallet/pkg/explorer"
)

// BumpFee rebuilds the transaction at a strictly higher fee rate over the
// same selected inputs and the same destination outputs, and signs the
// replacement with the key source retained from the original signing. Only
// transactions whose draft signaled replaceability can be replaced.
func (s *SignedTransaction) BumpFee(newRate explorer.FeeRate) (*SignedTransaction, error) {
	draft := s.draft
	if !draft.rbf {
		return nil, ErrNotReplaceable
	}
	if newRate <= draft.feeRate {
		return nil, ErrFeeRateTooLow
	}

	var target, totalIn uint64
	inputTypes := make([]address.ScriptType, 0, len(draft.inputs))
	outputTypes := make([]address.ScriptType, 0, len(draft.destinations)+1)
	for _, destination := range draft.destinations {
		target += destination.Amount
		outputTypes = append(outputTypes, destination.Address.Type())
	}
	outputTypes = append(outputTypes, draft.change.Type())
	for _, input := range draft.inputs {
		totalIn += input.Amount
		inputTypes = append(inputTypes, input.ScriptType)
	}

	fee := estimateFee(inputTypes, outputTypes, newRate)
	if totalIn < target+fee {
		return nil, &InsufficientFundsError{Need: target + fee, Have: totalIn}
	}

	changeAmount := totalIn - target - fee
	if changeAmount < draft.net.DustThreshold {
		fee += changeAmount
		changeAmount = 0
	}

	replacement := &TransactionDraft{
		net:          draft.net,
		inputs:       draft.inputs,
		destinations: draft.destinations,
		change:       draft.change,
		changeAmount: changeAmount,
		fee:          fee,
		feeRate:      newRate,
		rbf:          true,
	}
	return Sign(replacement, s.keys)
}
