package dbbadger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/polywallet/polywallet/internal/core/domain"
)

type utxoRepositoryImpl struct {
	db *DbManager
}

// NewUtxoRepositoryImpl returns a badger-backed domain.UtxoRepository.
func NewUtxoRepositoryImpl(db *DbManager) domain.UtxoRepository {
	return utxoRepositoryImpl{db: db}
}

func utxoStoreKey(key domain.UtxoKey) string {
	return fmt.Sprintf("%s:%d", key.TxID, key.VOut)
}

func (u utxoRepositoryImpl) AddOrUpdateUtxos(
	ctx context.Context, utxos []domain.Utxo,
) error {
	for _, utxo := range utxos {
		if err := u.db.UtxoStore.Upsert(utxoStoreKey(utxo.Key()), utxo); err != nil {
			return err
		}
	}
	return nil
}

func (u utxoRepositoryImpl) GetAllUtxos(ctx context.Context) ([]domain.Utxo, error) {
	var utxos []domain.Utxo
	if err := u.db.UtxoStore.Find(&utxos, nil); err != nil {
		return nil, err
	}
	return utxos, nil
}

func (u utxoRepositoryImpl) GetUtxosForAddresses(
	ctx context.Context, addresses []string,
) ([]domain.Utxo, error) {
	return u.findUtxos(badgerhold.Where("Address").In(toIfaces(addresses)...))
}

func (u utxoRepositoryImpl) GetSpendableUtxos(
	ctx context.Context, addresses []string,
) ([]domain.Utxo, error) {
	query := badgerhold.Where("Spent").Eq(false).
		And("Locked").Eq(false).
		And("Confirmations").Gt(int64(0)).
		And("Address").In(toIfaces(addresses)...)
	return u.findUtxos(query)
}

func (u utxoRepositoryImpl) GetBalance(
	ctx context.Context, addresses []string,
) (uint64, error) {
	query := badgerhold.Where("Spent").Eq(false).
		And("Address").In(toIfaces(addresses)...)
	utxos, err := u.findUtxos(query)
	if err != nil {
		return 0, err
	}

	var balance uint64
	for _, utxo := range utxos {
		balance += utxo.Value
	}
	return balance, nil
}

func (u utxoRepositoryImpl) SpendUtxos(
	ctx context.Context, keys []domain.UtxoKey,
) error {
	return u.updateUtxos(keys, func(utxo *domain.Utxo) {
		utxo.Spend()
	})
}

func (u utxoRepositoryImpl) LockUtxos(
	ctx context.Context, keys []domain.UtxoKey, id uuid.UUID,
) error {
	return u.updateUtxos(keys, func(utxo *domain.Utxo) {
		utxo.Lock(id)
	})
}

func (u utxoRepositoryImpl) UnlockUtxos(
	ctx context.Context, keys []domain.UtxoKey,
) error {
	return u.updateUtxos(keys, func(utxo *domain.Utxo) {
		utxo.Unlock()
	})
}

func (u utxoRepositoryImpl) GetUtxoForKey(
	ctx context.Context, key domain.UtxoKey,
) (*domain.Utxo, error) {
	var utxo domain.Utxo
	if err := u.db.UtxoStore.Get(utxoStoreKey(key), &utxo); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf(
				"%w: %s:%d", domain.ErrUtxoNotFound, key.TxID, key.VOut,
			)
		}
		return nil, err
	}
	return &utxo, nil
}

func (u utxoRepositoryImpl) findUtxos(query *badgerhold.Query) ([]domain.Utxo, error) {
	var utxos []domain.Utxo
	if err := u.db.UtxoStore.Find(&utxos, query); err != nil {
		return nil, err
	}
	return utxos, nil
}

func (u utxoRepositoryImpl) updateUtxos(
	keys []domain.UtxoKey, update func(*domain.Utxo),
) error {
	for _, key := range keys {
		var utxo domain.Utxo
		if err := u.db.UtxoStore.Get(utxoStoreKey(key), &utxo); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return fmt.Errorf(
					"%w: %s:%d", domain.ErrUtxoNotFound, key.TxID, key.VOut,
				)
			}
			return err
		}
		update(&utxo)
		if err := u.db.UtxoStore.Update(utxoStoreKey(key), utxo); err != nil {
			return err
		}
	}
	return nil
}

func toIfaces(values []string) []interface{} {
	ifaces := make([]interface{}, 0, len(values))
	for _, value := range values {
		ifaces = append(ifaces, value)
	}
	return ifaces
}
