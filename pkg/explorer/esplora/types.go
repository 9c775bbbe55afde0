package esplora

import (
	"time"

	"github.com/polywallet/polywallet/pkg/address"
	"github.com/polywallet/polywallet/pkg/explorer"
	"github.com/polywallet/polywallet/pkg/network"
)

// Wire schemas of the Esplora REST API (Blockstream flavour).

type utxoStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int64 `json:"block_height"`
	BlockTime   int64 `json:"block_time"`
}

type utxoResponse struct {
	TxID   string     `json:"txid"`
	Vout   uint32     `json:"vout"`
	Value  uint64     `json:"value"`
	Status utxoStatus `json:"status"`
}

type txResponse struct {
	TxID   string     `json:"txid"`
	Fee    uint64     `json:"fee"`
	Status utxoStatus `json:"status"`
}

func (r utxoResponse) normalize(
	addr string, tipHeight int64, net *network.Profile,
) (explorer.Utxo, error) {
	scriptType := address.P2PKH
	if decoded, err := address.Decode(addr, net); err == nil {
		scriptType = decoded.Type()
	}

	return explorer.Utxo{
		TxID:          r.TxID,
		Index:         r.Vout,
		Address:       addr,
		Amount:        r.Value,
		Confirmations: confirmations(r.Status, tipHeight),
		ScriptType:    scriptType,
	}, nil
}

func (r txResponse) normalize(tipHeight int64) explorer.TxRecord {
	record := explorer.TxRecord{
		TxID:          r.TxID,
		Fee:           r.Fee,
		Confirmations: confirmations(r.Status, tipHeight),
	}
	if r.Status.Confirmed {
		record.Height = r.Status.BlockHeight
		record.Timestamp = time.Unix(r.Status.BlockTime, 0)
	}
	return record
}

func confirmations(status utxoStatus, tipHeight int64) int64 {
	if !status.Confirmed || status.BlockHeight <= 0 || tipHeight < status.BlockHeight {
		return 0
	}
	return tipHeight - status.BlockHeight + 1
}
