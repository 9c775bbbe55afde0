package crawler

import (
	"github.com/google/uuid"
	"github.com/polywallet/polywallet/pkg/explorer"
)

const (
	QuitSignal EventType = iota
	AddressUnspents
	TransactionConfirmed
	TransactionUnconfirmed
)

type EventType int

func (et EventType) String() string {
	switch et {
	case QuitSignal:
		return "QuitSignal"
	case AddressUnspents:
		return "AddressUnspents"
	case TransactionConfirmed:
		return "TransactionConfirmed"
	case TransactionUnconfirmed:
		return "TransactionUnconfirmed"
	default:
		return "Unknown"
	}
}

type QuitEvent struct{}

func (q QuitEvent) Type() EventType {
	return QuitSignal
}

// AddressEvent carries the source's current view of an address's unspents.
type AddressEvent struct {
	ID        uuid.UUID
	EventType EventType
	Address   string
	Utxos     []explorer.Utxo
}

func (a AddressEvent) Type() EventType {
	return a.EventType
}

// TransactionEvent reports the confirmation state of a watched transaction.
type TransactionEvent struct {
	ID            uuid.UUID
	EventType     EventType
	TxID          string
	Address       string
	Height        int64
	Confirmations int64
}

func (t TransactionEvent) Type() EventType {
	return t.EventType
}
