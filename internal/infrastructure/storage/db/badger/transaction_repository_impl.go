package dbbadger

import (
	"context"
	"fmt"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/polywallet/polywallet/internal/core/domain"
)

type transactionRepositoryImpl struct {
	db *DbManager
}

// NewTransactionRepositoryImpl returns a badger-backed
// domain.TransactionRepository.
func NewTransactionRepositoryImpl(db *DbManager) domain.TransactionRepository {
	return transactionRepositoryImpl{db: db}
}

func txStoreKey(tx domain.Transaction) string {
	return fmt.Sprintf("%s:%s", tx.TxID, tx.Address)
}

func (t transactionRepositoryImpl) AddOrUpdateTransactions(
	ctx context.Context, txs []domain.Transaction,
) error {
	for _, tx := range txs {
		if err := t.db.TxStore.Upsert(txStoreKey(tx), tx); err != nil {
			return err
		}
	}
	return nil
}

func (t transactionRepositoryImpl) GetTransactionsForAddress(
	ctx context.Context, addr string,
) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	query := badgerhold.Where("Address").Eq(addr)
	if err := t.db.TxStore.Find(&txs, query); err != nil {
		return nil, err
	}

	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Confirmations != txs[j].Confirmations {
			return txs[i].Confirmations < txs[j].Confirmations
		}
		return txs[i].TxID < txs[j].TxID
	})
	return txs, nil
}

func (t transactionRepositoryImpl) GetTransaction(
	ctx context.Context, txid string,
) (*domain.Transaction, error) {
	var txs []domain.Transaction
	query := badgerhold.Where("TxID").Eq(txid).Limit(1)
	if err := t.db.TxStore.Find(&txs, query); err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, txid)
	}
	return &txs[0], nil
}
