package dbbadger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polywallet/polywallet/internal/core/domain"
)

func newTestDb(t *testing.T) *DbManager {
	t.Helper()
	db, err := NewDbManager(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testUtxos() []domain.Utxo {
	return []domain.Utxo{
		{
			TxID: "aa01", VOut: 0, Value: 50000, Address: "addr1",
			ScriptType: "p2wpkh", Network: "bitcoin", Confirmations: 10,
		},
		{
			TxID: "bb02", VOut: 1, Value: 30000, Address: "addr1",
			ScriptType: "p2wpkh", Network: "bitcoin", Confirmations: 0,
		},
		{
			TxID: "cc03", VOut: 0, Value: 20000, Address: "addr2",
			ScriptType: "p2pkh", Network: "bitcoin", Confirmations: 5,
		},
	}
}

func TestAddAndGetUtxos(t *testing.T) {
	db := newTestDb(t)
	repo := NewUtxoRepositoryImpl(db)
	ctx := context.Background()

	require.NoError(t, repo.AddOrUpdateUtxos(ctx, testUtxos()))

	all, err := repo.GetAllUtxos(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byAddr, err := repo.GetUtxosForAddresses(ctx, []string{"addr1"})
	require.NoError(t, err)
	assert.Len(t, byAddr, 2)

	utxo, err := repo.GetUtxoForKey(ctx, domain.UtxoKey{TxID: "aa01", VOut: 0})
	require.NoError(t, err)
	assert.Equal(t, uint64(50000), utxo.Value)

	_, err = repo.GetUtxoForKey(ctx, domain.UtxoKey{TxID: "none", VOut: 0})
	assert.ErrorIs(t, err, domain.ErrUtxoNotFound)
}

func TestUpsertRefreshesConfirmations(t *testing.T) {
	db := newTestDb(t)
	repo := NewUtxoRepositoryImpl(db)
	ctx := context.Background()

	utxos := testUtxos()
	require.NoError(t, repo.AddOrUpdateUtxos(ctx, utxos))

	utxos[1].Confirmations = 3
	require.NoError(t, repo.AddOrUpdateUtxos(ctx, utxos[1:2]))

	utxo, err := repo.GetUtxoForKey(ctx, domain.UtxoKey{TxID: "bb02", VOut: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), utxo.Confirmations)
}

func TestSpendableUtxos(t *testing.T) {
	db := newTestDb(t)
	repo := NewUtxoRepositoryImpl(db)
	ctx := context.Background()

	require.NoError(t, repo.AddOrUpdateUtxos(ctx, testUtxos()))

	// The unconfirmed bb02 is not spendable.
	spendable, err := repo.GetSpendableUtxos(ctx, []string{"addr1", "addr2"})
	require.NoError(t, err)
	assert.Len(t, spendable, 2)

	// Locking removes an output from the spendable view without spending it.
	id := uuid.New()
	key := domain.UtxoKey{TxID: "aa01", VOut: 0}
	require.NoError(t, repo.LockUtxos(ctx, []domain.UtxoKey{key}, id))

	spendable, err = repo.GetSpendableUtxos(ctx, []string{"addr1", "addr2"})
	require.NoError(t, err)
	assert.Len(t, spendable, 1)

	locked, err := repo.GetUtxoForKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, locked.LockedBy)
	assert.Equal(t, id, *locked.LockedBy)

	require.NoError(t, repo.UnlockUtxos(ctx, []domain.UtxoKey{key}))
	spendable, err = repo.GetSpendableUtxos(ctx, []string{"addr1", "addr2"})
	require.NoError(t, err)
	assert.Len(t, spendable, 2)
}

func TestSpendUtxosAndBalance(t *testing.T) {
	db := newTestDb(t)
	repo := NewUtxoRepositoryImpl(db)
	ctx := context.Background()

	require.NoError(t, repo.AddOrUpdateUtxos(ctx, testUtxos()))

	balance, err := repo.GetBalance(ctx, []string{"addr1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(80000), balance)

	key := domain.UtxoKey{TxID: "aa01", VOut: 0}
	require.NoError(t, repo.SpendUtxos(ctx, []domain.UtxoKey{key}))

	balance, err = repo.GetBalance(ctx, []string{"addr1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(30000), balance)

	spent, err := repo.GetUtxoForKey(ctx, key)
	require.NoError(t, err)
	assert.True(t, spent.Spent)
	assert.False(t, spent.Locked)
}

func TestTransactionRepository(t *testing.T) {
	db := newTestDb(t)
	repo := NewTransactionRepositoryImpl(db)
	ctx := context.Background()

	txs := []domain.Transaction{
		{
			TxID: "aa01", Address: "addr1", Network: "bitcoin",
			Height: 100, Confirmations: 20, Fee: 150,
			Timestamp: time.Unix(1700000000, 0),
		},
		{TxID: "bb02", Address: "addr1", Network: "bitcoin"},
		{TxID: "cc03", Address: "addr2", Network: "bitcoin", Height: 90, Confirmations: 31},
	}
	require.NoError(t, repo.AddOrUpdateTransactions(ctx, txs))

	history, err := repo.GetTransactionsForAddress(ctx, "addr1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "bb02", history[0].TxID)
	assert.Equal(t, "aa01", history[1].TxID)

	// Upserting the confirmed version replaces the pending record.
	txs[1].Height = 101
	txs[1].Confirmations = 19
	require.NoError(t, repo.AddOrUpdateTransactions(ctx, txs[1:2]))

	tx, err := repo.GetTransaction(ctx, "bb02")
	require.NoError(t, err)
	assert.Equal(t, int64(101), tx.Height)

	_, err = repo.GetTransaction(ctx, "none")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}
