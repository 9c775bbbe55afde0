package loadbalancer

import (
	"testing"

	"github.com/polywallet/polywallet/pkg/explorer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileUtxosMajority(t *testing.T) {
	corroborated := explorer.Utxo{TxID: "aa01", Index: 0, Amount: 50000, Confirmations: 10}
	lonely := explorer.Utxo{TxID: "bb02", Index: 1, Amount: 30000, Confirmations: 5}

	// Two of three providers report the output, one reports it spent.
	reconciled := reconcileUtxos([][]explorer.Utxo{
		{corroborated, lonely},
		{corroborated},
		{},
	})
	require.Len(t, reconciled, 1)
	assert.Equal(t, "aa01", reconciled[0].TxID)
}

func TestReconcileUtxosAmountDisagreement(t *testing.T) {
	// Two of three providers agree on the amount, the third reports a
	// divergent one with fewer confirmations. The majority amount must win
	// and the outlier record must not lend it its confirmation count.
	reconciled := reconcileUtxos([][]explorer.Utxo{
		{{TxID: "aa01", Index: 0, Amount: 50000, Confirmations: 10}},
		{{TxID: "aa01", Index: 0, Amount: 50000, Confirmations: 12}},
		{{TxID: "aa01", Index: 0, Amount: 999, Confirmations: 1}},
	})
	require.Len(t, reconciled, 1)
	assert.Equal(t, uint64(50000), reconciled[0].Amount)
	assert.Equal(t, int64(10), reconciled[0].Confirmations)

	// With no majority on any amount the outpoint is dropped entirely.
	reconciled = reconcileUtxos([][]explorer.Utxo{
		{{TxID: "aa01", Index: 0, Amount: 50000, Confirmations: 10}},
		{{TxID: "aa01", Index: 0, Amount: 40000, Confirmations: 10}},
		{{TxID: "aa01", Index: 0, Amount: 999, Confirmations: 1}},
	})
	assert.Empty(t, reconciled)
}

func TestReconcileUtxosMinConfirmations(t *testing.T) {
	reconciled := reconcileUtxos([][]explorer.Utxo{
		{{TxID: "aa01", Index: 0, Amount: 50000, Confirmations: 12}},
		{{TxID: "aa01", Index: 0, Amount: 50000, Confirmations: 10}},
		{{TxID: "aa01", Index: 0, Amount: 50000, Confirmations: 11}},
	})
	require.Len(t, reconciled, 1)
	assert.Equal(t, int64(10), reconciled[0].Confirmations)
}

func TestReconcileUtxosSingleResponder(t *testing.T) {
	reconciled := reconcileUtxos([][]explorer.Utxo{
		{{TxID: "aa01", Index: 0, Amount: 50000, Confirmations: 1}},
	})
	assert.Len(t, reconciled, 1)
}

func TestReconcileBalances(t *testing.T) {
	agreed := explorer.Balance{Total: 80000, Confirmed: 50000}

	balance, ok := reconcileBalances([]explorer.Balance{
		agreed, agreed, {Total: 79000, Confirmed: 50000},
	})
	require.True(t, ok)
	assert.Equal(t, agreed, balance)

	_, ok = reconcileBalances([]explorer.Balance{
		{Total: 1}, {Total: 2}, {Total: 3},
	})
	assert.False(t, ok)
}

func TestMergeHistory(t *testing.T) {
	merged := mergeHistory([][]explorer.TxRecord{
		{
			{TxID: "aa01", Height: 100, Confirmations: 20},
			{TxID: "bb02", Confirmations: 0},
		},
		{
			{TxID: "aa01", Height: 100, Confirmations: 21},
			{TxID: "cc03", Height: 90, Confirmations: 31},
		},
	})
	require.Len(t, merged, 3)

	// Newest first, duplicates resolved to the higher confirmation count.
	assert.Equal(t, "bb02", merged[0].TxID)
	assert.Equal(t, "aa01", merged[1].TxID)
	assert.Equal(t, int64(21), merged[1].Confirmations)
	assert.Equal(t, "cc03", merged[2].TxID)
}

func TestMedianFeeRate(t *testing.T) {
	assert.Equal(t, explorer.FeeRate(0), medianFeeRate(nil, 3))
	assert.Equal(t, explorer.FeeRate(10), medianFeeRate(
		[]explorer.FeeRate{8, 10, 12}, 3,
	))
	// Even count rounds the midpoint up.
	assert.Equal(t, explorer.FeeRate(10), medianFeeRate(
		[]explorer.FeeRate{9, 10}, 3,
	))
}

func TestMedianFeeRateRejectsOutliers(t *testing.T) {
	// 500 deviates from the median 12 by more than 3x and is dropped.
	rate := medianFeeRate([]explorer.FeeRate{10, 12, 500}, 3)
	assert.Equal(t, explorer.FeeRate(11), rate)

	// With rejection disabled the outlier stays in the sample.
	rate = medianFeeRate([]explorer.FeeRate{10, 12, 500}, 0)
	assert.Equal(t, explorer.FeeRate(12), rate)
}
