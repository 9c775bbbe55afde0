package loadbalancer

import (
	"sort"

	"github.com/polywallet/polywallet/pkg/explorer"
)

// reconcileUtxos merges the UTXO sets reported by the responding providers.
// An output survives only if a strict majority of responders corroborates
// the whole record, amount included; the minimum-confirmations rule applies
// only within the corroborated group, so a lone provider reporting a
// divergent amount for a known outpoint cannot ride on the majority's votes.
func reconcileUtxos(responses [][]explorer.Utxo) []explorer.Utxo {
	if len(responses) == 0 {
		return nil
	}
	quorum := len(responses)/2 + 1

	// Records vote as full values with the confirmation count masked out.
	votes := make(map[explorer.Utxo]int)
	minConf := make(map[explorer.Utxo]int64)
	for _, utxos := range responses {
		seen := make(map[string]struct{}, len(utxos))
		for _, utxo := range utxos {
			if _, ok := seen[utxo.Key()]; ok {
				continue
			}
			seen[utxo.Key()] = struct{}{}

			record := utxo
			record.Confirmations = 0
			votes[record]++

			current, ok := minConf[record]
			if !ok || utxo.Confirmations < current {
				minConf[record] = utxo.Confirmations
			}
		}
	}

	reconciled := make([]explorer.Utxo, 0, len(votes))
	for record, count := range votes {
		if count >= quorum {
			record.Confirmations = minConf[record]
			reconciled = append(reconciled, record)
		}
	}
	sort.Slice(reconciled, func(i, j int) bool {
		if reconciled[i].TxID != reconciled[j].TxID {
			return reconciled[i].TxID < reconciled[j].TxID
		}
		return reconciled[i].Index < reconciled[j].Index
	})
	return reconciled
}

// reconcileBalances returns the balance reported by a strict majority of
// responders, if any.
func reconcileBalances(balances []explorer.Balance) (explorer.Balance, bool) {
	quorum := len(balances)/2 + 1
	votes := make(map[explorer.Balance]int, len(balances))
	for _, balance := range balances {
		votes[balance]++
		if votes[balance] >= quorum {
			return balance, true
		}
	}
	return explorer.Balance{}, false
}

// mergeHistory unions the history pages of the responding providers. A
// transaction id reported by any responder is kept; duplicates are merged
// preferring the record with the higher confirmation count. The result is
// sorted newest first.
func mergeHistory(pages [][]explorer.TxRecord) []explorer.TxRecord {
	merged := make(map[string]explorer.TxRecord)
	for _, page := range pages {
		for _, record := range page {
			current, ok := merged[record.TxID]
			if !ok || record.Confirmations > current.Confirmations {
				merged[record.TxID] = record
			}
		}
	}

	records := make([]explorer.TxRecord, 0, len(merged))
	for _, record := range merged {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Confirmations != records[j].Confirmations {
			return records[i].Confirmations < records[j].Confirmations
		}
		return records[i].TxID < records[j].TxID
	})
	return records
}

// medianFeeRate reduces the responders' estimates to a single rate. Rates
// deviating from the raw median by more than deviationFactor in either
// direction are dropped before the final median is taken.
func medianFeeRate(rates []explorer.FeeRate, deviationFactor float64) explorer.FeeRate {
	if len(rates) == 0 {
		return 0
	}

	median := medianOf(rates)
	if deviationFactor <= 1 {
		return median
	}

	kept := make([]explorer.FeeRate, 0, len(rates))
	upper := float64(median) * deviationFactor
	lower := float64(median) / deviationFactor
	for _, rate := range rates {
		if float64(rate) > upper || float64(rate) < lower {
			continue
		}
		kept = append(kept, rate)
	}
	if len(kept) == 0 {
		return median
	}
	return medianOf(kept)
}

func medianOf(rates []explorer.FeeRate) explorer.FeeRate {
	sorted := make([]explorer.FeeRate, len(rates))
	copy(sorted, rates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	// Round the midpoint up so an even split never underpays.
	return (sorted[mid-1] + sorted[mid] + 1) / 2
}
