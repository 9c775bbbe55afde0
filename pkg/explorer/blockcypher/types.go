package blockcypher

import (
	"time"

	"github.com/polywallet/polywallet/pkg/address"
	"github.com/polywallet/polywallet/pkg/explorer"
	"github.com/polywallet/polywallet/pkg/network"
)

// Wire schemas of the BlockCypher v1 API.

type txRef struct {
	TxHash        string    `json:"tx_hash"`
	BlockHeight   int64     `json:"block_height"`
	TxOutputN     int32     `json:"tx_output_n"`
	Value         uint64    `json:"value"`
	Confirmations int64     `json:"confirmations"`
	Spent         bool      `json:"spent"`
	Confirmed     time.Time `json:"confirmed"`
}

type addressResponse struct {
	Address            string  `json:"address"`
	Balance            uint64  `json:"balance"`
	UnconfirmedBalance int64   `json:"unconfirmed_balance"`
	FinalBalance       uint64  `json:"final_balance"`
	TxRefs             []txRef `json:"txrefs"`
	UnconfirmedTxRefs  []txRef `json:"unconfirmed_txrefs"`
	HasMore            bool    `json:"hasMore"`
}

type chainResponse struct {
	Height         int64 `json:"height"`
	HighFeePerKb   int64 `json:"high_fee_per_kb"`
	MediumFeePerKb int64 `json:"medium_fee_per_kb"`
	LowFeePerKb    int64 `json:"low_fee_per_kb"`
}

func (r txRef) normalizeUtxo(addr string, net *network.Profile) explorer.Utxo {
	scriptType := address.P2PKH
	if decoded, err := address.Decode(addr, net); err == nil {
		scriptType = decoded.Type()
	}

	return explorer.Utxo{
		TxID:          r.TxHash,
		Index:         uint32(r.TxOutputN),
		Address:       addr,
		Amount:        r.Value,
		Confirmations: r.Confirmations,
		ScriptType:    scriptType,
	}
}

func (r txRef) normalizeRecord() explorer.TxRecord {
	record := explorer.TxRecord{
		TxID:          r.TxHash,
		Confirmations: r.Confirmations,
	}
	if r.Confirmations > 0 {
		record.Height = r.BlockHeight
		record.Timestamp = r.Confirmed
	}
	return record
}
