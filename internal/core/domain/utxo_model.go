package domain

import (
	"github.com/google/uuid"

	"github.com/polywallet/polywallet/pkg/explorer"
)

// UtxoKey represents the ID of a Utxo, composed by its txid and vout.
type UtxoKey struct {
	TxID string
	VOut uint32
}

// Utxo is the persisted view of an unspent output together with its local
// bookkeeping state: whether it has been spent by a transaction we built,
// and whether it is locked by an in-flight draft.
type Utxo struct {
	TxID          string
	VOut          uint32
	Value         uint64
	Address       string
	ScriptType    string
	Network       string
	Confirmations int64
	Spent         bool
	Locked        bool
	LockedBy      *uuid.UUID
}

// Key returns the identifier of the output.
func (u *Utxo) Key() UtxoKey {
	return UtxoKey{TxID: u.TxID, VOut: u.VOut}
}

// IsConfirmed reports whether the output is included in a block.
func (u *Utxo) IsConfirmed() bool {
	return u.Confirmations > 0
}

// Lock marks the output as reserved by the given draft id.
func (u *Utxo) Lock(id uuid.UUID) {
	u.Locked = true
	u.LockedBy = &id
}

// Unlock releases the output.
func (u *Utxo) Unlock() {
	u.Locked = false
	u.LockedBy = nil
}

// Spend marks the output as consumed.
func (u *Utxo) Spend() {
	u.Spent = true
	u.Unlock()
}

// UtxoFromExplorer converts a reconciled aggregator record into the
// persisted form.
func UtxoFromExplorer(utxo explorer.Utxo, networkName string) Utxo {
	return Utxo{
		TxID:          utxo.TxID,
		VOut:          utxo.Index,
		Value:         utxo.Amount,
		Address:       utxo.Address,
		ScriptType:    utxo.ScriptType.String(),
		Network:       networkName,
		Confirmations: utxo.Confirmations,
	}
}
