package domain

import (
	"time"

	"github.com/polywallet/polywallet/pkg/explorer"
)

// Transaction is one persisted entry of an address's history.
type Transaction struct {
	TxID          string
	Address       string
	Network       string
	Height        int64
	Confirmations int64
	Fee           uint64
	Timestamp     time.Time
}

// IsConfirmed reports whether the transaction is included in a block.
func (t *Transaction) IsConfirmed() bool {
	return t.Confirmations > 0
}

// TransactionFromExplorer converts a merged aggregator record into the
// persisted form.
func TransactionFromExplorer(
	record explorer.TxRecord, addr, networkName string,
) Transaction {
	return Transaction{
		TxID:          record.TxID,
		Address:       addr,
		Network:       networkName,
		Height:        record.Height,
		Confirmations: record.Confirmations,
		Fee:           record.Fee,
		Timestamp:     record.Timestamp,
	}
}
