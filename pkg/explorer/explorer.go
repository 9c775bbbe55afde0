package explorer

import (
	"context"
	"fmt"
	"time"

	"github.com/polywallet/polywallet/pkg/address"
)

// Utxo is a normalized unspent transaction output as reported by a data
// provider. Utxos are immutable value records: a newer view replaces the
// record, it never mutates it in place.
type Utxo struct {
	TxID          string
	Index         uint32
	Address       string
	Amount        uint64
	Confirmations int64
	ScriptType    address.ScriptType
}

// Key identifies the output across providers.
func (u Utxo) Key() string {
	return fmt.Sprintf("%s:%d", u.TxID, u.Index)
}

// Confirmed reports whether the output is included in a block.
func (u Utxo) Confirmed() bool {
	return u.Confirmations > 0
}

// TxRecord is one entry of an address's transaction history.
type TxRecord struct {
	TxID          string
	Height        int64
	Confirmations int64
	Fee           uint64
	Timestamp     time.Time
}

// Balance carries the total and confirmed balance of an address in the
// smallest unit.
type Balance struct {
	Total     uint64
	Confirmed uint64
}

// FeeRate is a fee estimate in smallest units per virtual byte.
type FeeRate uint64

// Provider is a single blockchain-data backend for one network. Providers
// are untrusted: they may be slow, wrong or down, and their answers are
// reconciled by the load balancer before any caller sees them.
type Provider interface {
	// Name identifies the provider in logs, metrics and error causes.
	Name() string
	// GetUtxos fetches the unspent outputs of an address.
	GetUtxos(ctx context.Context, addr string) ([]Utxo, error)
	// GetBalance fetches the total and confirmed balance of an address.
	GetBalance(ctx context.Context, addr string) (Balance, error)
	// GetHistory fetches one page of the address's transaction history,
	// starting at page 0.
	GetHistory(ctx context.Context, addr string, page int) ([]TxRecord, error)
	// GetFeeRate fetches the provider's current fee-rate estimate.
	GetFeeRate(ctx context.Context) (FeeRate, error)
}

// BalanceFromUtxos folds a UTXO set into a balance.
func BalanceFromUtxos(utxos []Utxo) Balance {
	var balance Balance
	for _, utxo := range utxos {
		balance.Total += utxo.Amount
		if utxo.Confirmed() {
			balance.Confirmed += utxo.Amount
		}
	}
	return balance
}
