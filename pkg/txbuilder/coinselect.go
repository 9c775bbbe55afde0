package txbuilder

import (
	"sort"

	"github.com/polywallet/polywallet/pkg/address"
	"github.com/polywallet/polywallet/pkg/explorer"
)

func spendable(scriptType address.ScriptType) bool {
	return scriptType == address.P2PKH || scriptType == address.P2WPKH
}

// selectUtxos accumulates inputs until the target amount plus the running
// fee estimate is covered. Candidates are consumed best-first: highest
// confirmation count, then highest amount. Outputs passed in must already
// include the provisional change output so the estimate accounts for it.
func selectUtxos(
	utxos []explorer.Utxo,
	target uint64,
	feeRate explorer.FeeRate,
	outputs []address.ScriptType,
) ([]explorer.Utxo, error) {
	candidates := make([]explorer.Utxo, 0, len(utxos))
	for _, utxo := range utxos {
		if spendable(utxo.ScriptType) {
			candidates = append(candidates, utxo)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confirmations != candidates[j].Confirmations {
			return candidates[i].Confirmations > candidates[j].Confirmations
		}
		return candidates[i].Amount > candidates[j].Amount
	})

	selected := make([]explorer.Utxo, 0, len(candidates))
	inputTypes := make([]address.ScriptType, 0, len(candidates))
	var total uint64
	for _, utxo := range candidates {
		selected = append(selected, utxo)
		inputTypes = append(inputTypes, utxo.ScriptType)
		total += utxo.Amount

		need := target + estimateFee(inputTypes, outputs, feeRate)
		if total >= need {
			return selected, nil
		}
	}

	need := target
	if len(inputTypes) > 0 {
		need += estimateFee(inputTypes, outputs, feeRate)
	}
	return nil, &InsufficientFundsError{Need: need, Have: total}
}
