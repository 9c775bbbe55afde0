package application

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polywallet/polywallet/internal/core/domain"
	dbbadger "github.com/polywallet/polywallet/internal/infrastructure/storage/db/badger"
	"github.com/polywallet/polywallet/pkg/address"
	"github.com/polywallet/polywallet/pkg/crawler"
	"github.com/polywallet/polywallet/pkg/explorer"
	"github.com/polywallet/polywallet/pkg/network"
	"github.com/polywallet/polywallet/pkg/txbuilder"
	"github.com/polywallet/polywallet/pkg/wallet"
)

func newTestRepos(t *testing.T) (domain.UtxoRepository, domain.TransactionRepository) {
	t.Helper()

	db, err := dbbadger.NewDbManager(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return dbbadger.NewUtxoRepositoryImpl(db), dbbadger.NewTransactionRepositoryImpl(db)
}

func newTestListener(t *testing.T) (*blockchainListener, domain.UtxoRepository, domain.TransactionRepository) {
	t.Helper()

	utxoRepo, txRepo := newTestRepos(t)
	listener := &blockchainListener{
		utxoRepository: utxoRepo,
		txRepository:   txRepo,
		net:            network.Bitcoin,
	}
	return listener, utxoRepo, txRepo
}

func testTxID(b byte) string {
	return strings.Repeat(hex.EncodeToString([]byte{b}), 32)
}

func TestSyncAddressUpsertsUnspents(t *testing.T) {
	listener, utxoRepo, _ := newTestListener(t)
	ctx := context.Background()

	err := listener.syncAddress(crawler.AddressEvent{
		EventType: crawler.AddressUnspents,
		Address:   "addr1",
		Utxos: []explorer.Utxo{
			{TxID: testTxID(0xaa), Index: 0, Address: "addr1", Amount: 50000, Confirmations: 6},
			{TxID: testTxID(0xbb), Index: 1, Address: "addr1", Amount: 30000, Confirmations: 0},
		},
	})
	require.NoError(t, err)

	balance, err := utxoRepo.GetBalance(ctx, []string{"addr1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(80000), balance)
}

func TestSyncAddressMarksMissingAsSpent(t *testing.T) {
	listener, utxoRepo, _ := newTestListener(t)
	ctx := context.Background()

	first := crawler.AddressEvent{
		EventType: crawler.AddressUnspents,
		Address:   "addr1",
		Utxos: []explorer.Utxo{
			{TxID: testTxID(0xaa), Index: 0, Address: "addr1", Amount: 50000, Confirmations: 6},
			{TxID: testTxID(0xbb), Index: 1, Address: "addr1", Amount: 30000, Confirmations: 3},
		},
	}
	require.NoError(t, listener.syncAddress(first))

	// The second poll no longer reports the first output.
	second := crawler.AddressEvent{
		EventType: crawler.AddressUnspents,
		Address:   "addr1",
		Utxos: []explorer.Utxo{
			{TxID: testTxID(0xbb), Index: 1, Address: "addr1", Amount: 30000, Confirmations: 4},
		},
	}
	require.NoError(t, listener.syncAddress(second))

	balance, err := utxoRepo.GetBalance(ctx, []string{"addr1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(30000), balance)

	stored, err := utxoRepo.GetUtxoForKey(ctx, domain.UtxoKey{TxID: testTxID(0xaa), VOut: 0})
	require.NoError(t, err)
	assert.True(t, stored.Spent)
}

func TestSyncAddressKeepsLocalBookkeeping(t *testing.T) {
	listener, utxoRepo, _ := newTestListener(t)
	ctx := context.Background()

	event := crawler.AddressEvent{
		EventType: crawler.AddressUnspents,
		Address:   "addr1",
		Utxos: []explorer.Utxo{
			{TxID: testTxID(0xaa), Index: 0, Address: "addr1", Amount: 50000, Confirmations: 6},
			{TxID: testTxID(0xbb), Index: 1, Address: "addr1", Amount: 30000, Confirmations: 6},
		},
	}
	require.NoError(t, listener.syncAddress(event))

	// The wallet retires one output and reserves the other; providers keep
	// reporting both unspent until the signed transaction propagates.
	spentKey := domain.UtxoKey{TxID: testTxID(0xaa), VOut: 0}
	lockedKey := domain.UtxoKey{TxID: testTxID(0xbb), VOut: 1}
	require.NoError(t, utxoRepo.SpendUtxos(ctx, []domain.UtxoKey{spentKey}))
	lockID := uuid.New()
	require.NoError(t, utxoRepo.LockUtxos(ctx, []domain.UtxoKey{lockedKey}, lockID))

	event.Utxos[0].Confirmations = 7
	event.Utxos[1].Confirmations = 7
	require.NoError(t, listener.syncAddress(event))

	stored, err := utxoRepo.GetUtxoForKey(ctx, spentKey)
	require.NoError(t, err)
	assert.True(t, stored.Spent)

	stored, err = utxoRepo.GetUtxoForKey(ctx, lockedKey)
	require.NoError(t, err)
	assert.True(t, stored.Locked)
	require.NotNil(t, stored.LockedBy)
	assert.Equal(t, lockID, *stored.LockedBy)
	// Explorer-side fields still refresh.
	assert.Equal(t, int64(7), stored.Confirmations)

	spendable, err := utxoRepo.GetSpendableUtxos(ctx, []string{"addr1"})
	require.NoError(t, err)
	assert.Empty(t, spendable)
}

func TestSyncTransactionCreatesAndConfirms(t *testing.T) {
	listener, _, txRepo := newTestListener(t)
	ctx := context.Background()

	txid := testTxID(0xcc)
	err := listener.syncTransaction(crawler.TransactionEvent{
		EventType: crawler.TransactionUnconfirmed,
		TxID:      txid,
		Address:   "addr1",
	})
	require.NoError(t, err)

	stored, err := txRepo.GetTransaction(ctx, txid)
	require.NoError(t, err)
	assert.Equal(t, "addr1", stored.Address)
	assert.Equal(t, network.Bitcoin.Name, stored.Network)
	assert.False(t, stored.IsConfirmed())

	err = listener.syncTransaction(crawler.TransactionEvent{
		EventType:     crawler.TransactionConfirmed,
		TxID:          txid,
		Address:       "addr1",
		Height:        700000,
		Confirmations: 2,
	})
	require.NoError(t, err)

	stored, err = txRepo.GetTransaction(ctx, txid)
	require.NoError(t, err)
	assert.True(t, stored.IsConfirmed())
	assert.Equal(t, int64(700000), stored.Height)
}

type stubListener struct {
	watchedAddresses []string
	watchedTxids     []string
}

func (s *stubListener) ObserveBlockchain()     {}
func (s *stubListener) StopObserveBlockchain() {}
func (s *stubListener) WatchAddress(addr string) {
	s.watchedAddresses = append(s.watchedAddresses, addr)
}
func (s *stubListener) UnwatchAddress(addr string) {}
func (s *stubListener) WatchTransaction(txid, addr string) {
	s.watchedTxids = append(s.watchedTxids, txid)
}

type stubFeeSource struct {
	rate explorer.FeeRate
}

func (s stubFeeSource) GetFeeRate(ctx context.Context) (explorer.FeeRate, error) {
	return s.rate, nil
}

func newTestWallet(t *testing.T) (*WalletService, *stubListener, domain.UtxoRepository) {
	t.Helper()

	utxoRepo, txRepo := newTestRepos(t)
	seed, err := hex.DecodeString(
		"000102030405060708090a0b0c0d0e0f000102030405060708090a0b0c0d0e0f",
	)
	require.NoError(t, err)
	master, err := wallet.NewMasterKey(seed, network.Bitcoin)
	require.NoError(t, err)

	listener := &stubListener{}
	svc := NewWalletService(WalletServiceOpts{
		Network:               network.Bitcoin,
		Master:                master,
		UtxoRepository:        utxoRepo,
		TransactionRepository: txRepo,
		Listener:              listener,
		FeeSource:             stubFeeSource{rate: explorer.FeeRate(10)},
	})
	return svc, listener, utxoRepo
}

func TestWalletDeriveAddress(t *testing.T) {
	svc, listener, _ := newTestWallet(t)

	first, err := svc.DeriveAddress()
	require.NoError(t, err)
	second, err := svc.DeriveAddress()
	require.NoError(t, err)

	assert.NotEqual(t, first.String(), second.String())
	assert.True(t, strings.HasPrefix(first.String(), "bc1"))
	assert.Equal(t, []string{first.String(), second.String()}, listener.watchedAddresses)
}

func TestWalletSendToAddress(t *testing.T) {
	svc, listener, utxoRepo := newTestWallet(t)
	ctx := context.Background()

	addr, err := svc.DeriveAddress()
	require.NoError(t, err)

	require.NoError(t, utxoRepo.AddOrUpdateUtxos(ctx, []domain.Utxo{{
		TxID:          testTxID(0xaa),
		VOut:          0,
		Value:         100000,
		Address:       addr.String(),
		ScriptType:    "p2wpkh",
		Network:       network.Bitcoin.Name,
		Confirmations: 6,
	}}))

	balance, err := svc.GetBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(100000), balance)

	destination, err := svc.DeriveAddress()
	require.NoError(t, err)

	signed, err := svc.SendToAddress(ctx, []txbuilder.Destination{
		{Address: destination, Amount: 40000},
	}, true)
	require.NoError(t, err)
	require.NotNil(t, signed)

	assert.Equal(t, []string{signed.TxID()}, listener.watchedTxids)
	assert.True(t, signed.Draft().Replaceable())

	// The funding output is gone from the spendable view.
	stored, err := utxoRepo.GetUtxoForKey(ctx, domain.UtxoKey{TxID: testTxID(0xaa), VOut: 0})
	require.NoError(t, err)
	assert.True(t, stored.Spent)

	balance, err = svc.GetBalance(ctx)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestWalletSendFailureDoesNotBurnChangeIndex(t *testing.T) {
	svc, listener, utxoRepo := newTestWallet(t)
	ctx := context.Background()

	addr, err := svc.DeriveAddress()
	require.NoError(t, err)
	require.NoError(t, utxoRepo.AddOrUpdateUtxos(ctx, []domain.Utxo{{
		TxID:          testTxID(0xaa),
		VOut:          0,
		Value:         100000,
		Address:       addr.String(),
		ScriptType:    "p2wpkh",
		Network:       network.Bitcoin.Name,
		Confirmations: 6,
	}}))
	watchedBefore := len(listener.watchedAddresses)

	// A failed build must not register a change watch or consume an index.
	_, err = svc.SendToAddress(ctx, []txbuilder.Destination{
		{Address: addr, Amount: 500000},
	}, false)
	require.Error(t, err)
	assert.Len(t, listener.watchedAddresses, watchedBefore)

	_, err = svc.SendToAddress(ctx, []txbuilder.Destination{
		{Address: addr, Amount: 40000},
	}, false)
	require.NoError(t, err)
	require.Len(t, listener.watchedAddresses, watchedBefore+1)

	// The successful send still uses the first change-chain address.
	seed, err := hex.DecodeString(
		"000102030405060708090a0b0c0d0e0f000102030405060708090a0b0c0d0e0f",
	)
	require.NoError(t, err)
	master, err := wallet.NewMasterKey(seed, network.Bitcoin)
	require.NoError(t, err)
	ring := wallet.NewKeyRing()
	expected, err := ring.Add(
		master, wallet.BIP84(network.Bitcoin.HDCoinType, 0, 1, 0), address.P2WPKH,
	)
	require.NoError(t, err)
	assert.Equal(t, expected.String(), listener.watchedAddresses[watchedBefore])
}

func TestWalletSendToAddressInsufficientFunds(t *testing.T) {
	svc, _, utxoRepo := newTestWallet(t)
	ctx := context.Background()

	addr, err := svc.DeriveAddress()
	require.NoError(t, err)
	require.NoError(t, utxoRepo.AddOrUpdateUtxos(ctx, []domain.Utxo{{
		TxID:          testTxID(0xaa),
		VOut:          0,
		Value:         1000,
		Address:       addr.String(),
		ScriptType:    "p2wpkh",
		Network:       network.Bitcoin.Name,
		Confirmations: 6,
	}}))

	_, err = svc.SendToAddress(ctx, []txbuilder.Destination{
		{Address: addr, Amount: 40000},
	}, false)
	require.Error(t, err)
	var insufficient *txbuilder.InsufficientFundsError
	assert.ErrorAs(t, err, &insufficient)
}
