package domain

import (
	"context"

	"github.com/google/uuid"
)

// UtxoRepository persists the wallet's UTXO view between syncs.
type UtxoRepository interface {
	// AddOrUpdateUtxos upserts the given outputs by key.
	AddOrUpdateUtxos(ctx context.Context, utxos []Utxo) error
	// GetAllUtxos returns every stored output.
	GetAllUtxos(ctx context.Context) ([]Utxo, error)
	// GetUtxosForAddresses returns the stored outputs of the addresses.
	GetUtxosForAddresses(ctx context.Context, addresses []string) ([]Utxo, error)
	// GetSpendableUtxos returns the confirmed, unspent, unlocked outputs
	// of the addresses.
	GetSpendableUtxos(ctx context.Context, addresses []string) ([]Utxo, error)
	// GetBalance sums the unspent output values of the addresses.
	GetBalance(ctx context.Context, addresses []string) (uint64, error)
	// SpendUtxos marks the outputs as consumed.
	SpendUtxos(ctx context.Context, keys []UtxoKey) error
	// LockUtxos reserves the outputs for the given draft id.
	LockUtxos(ctx context.Context, keys []UtxoKey, id uuid.UUID) error
	// UnlockUtxos releases the outputs.
	UnlockUtxos(ctx context.Context, keys []UtxoKey) error
	// GetUtxoForKey returns a single output by key.
	GetUtxoForKey(ctx context.Context, key UtxoKey) (*Utxo, error)
}

// TransactionRepository persists address histories between syncs.
type TransactionRepository interface {
	// AddOrUpdateTransactions upserts the given records by txid and address.
	AddOrUpdateTransactions(ctx context.Context, txs []Transaction) error
	// GetTransactionsForAddress returns the stored history of an address,
	// newest first.
	GetTransactionsForAddress(ctx context.Context, addr string) ([]Transaction, error)
	// GetTransaction returns a single record by txid.
	GetTransaction(ctx context.Context, txid string) (*Transaction, error)
}
