package txbuilder

import (
	"github.com/polywallet/polywallet/pkg/address"
	"github.com/polywallet/polywallet/pkg/explorer"
)

// Serialized size contributions in bytes. Script sizes include their
// leading compact-size length prefix. Signature sizes assume the worst
// case (73-byte DER signature), so estimates never undershoot.
const (
	txBaseOverhead     = 10 // version + locktime + in/out counts
	txWitnessOverhead  = 2  // segwit marker + flag
	inputBaseSize      = 40 // outpoint + sequence
	inputSigScriptSize = 108
	inputEmptyScript   = 1
	witnessP2WPKHSize  = 108

	outputBaseSize    = 8
	pkScriptP2PKHSize = 26
	pkScriptP2SHSize  = 24
	pkScriptV0KeySize = 23
	pkScriptV0ShSize  = 35
)

func pkScriptSize(scriptType address.ScriptType) int {
	switch scriptType {
	case address.P2SH:
		return pkScriptP2SHSize
	case address.P2WPKH:
		return pkScriptV0KeySize
	case address.P2WSH:
		return pkScriptV0ShSize
	default:
		return pkScriptP2PKHSize
	}
}

// estimateVSize returns the virtual size of a transaction spending the
// given input script types into the given output script types, as if every
// input carried a worst-case signature.
func estimateVSize(inputs, outputs []address.ScriptType) uint64 {
	base := txBaseOverhead
	witness := 0
	for _, inputType := range inputs {
		base += inputBaseSize
		if inputType.Segwit() {
			base += inputEmptyScript
			witness += witnessP2WPKHSize
		} else {
			base += inputSigScriptSize
		}
	}
	for _, outputType := range outputs {
		base += outputBaseSize + pkScriptSize(outputType)
	}

	if witness == 0 {
		return uint64(base)
	}
	total := base + txWitnessOverhead + witness
	weight := base*3 + total
	return uint64((weight + 3) / 4)
}

// estimateFee returns the worst-case fee for the given shape at the given
// rate.
func estimateFee(
	inputs, outputs []address.ScriptType, feeRate explorer.FeeRate,
) uint64 {
	return estimateVSize(inputs, outputs) * uint64(feeRate)
}
