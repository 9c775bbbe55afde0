package application

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/polywallet/polywallet/internal/core/domain"
	"github.com/polywallet/polywallet/pkg/crawler"
	"github.com/polywallet/polywallet/pkg/network"
)

// BlockchainListener defines the needed methods to start and stop a
// blockchain listener.
type BlockchainListener interface {
	ObserveBlockchain()
	StopObserveBlockchain()
	WatchAddress(addr string)
	UnwatchAddress(addr string)
	WatchTransaction(txid, addr string)
}

type blockchainListener struct {
	utxoRepository domain.UtxoRepository
	txRepository   domain.TransactionRepository
	crawlerSvc     crawler.Service
	net            *network.Profile
}

// NewBlockchainListener returns a BlockchainListener persisting every
// crawler event of the given network into the repositories.
func NewBlockchainListener(
	utxoRepository domain.UtxoRepository,
	txRepository domain.TransactionRepository,
	crawlerSvc crawler.Service,
	net *network.Profile,
) BlockchainListener {
	return &blockchainListener{
		utxoRepository: utxoRepository,
		txRepository:   txRepository,
		crawlerSvc:     crawlerSvc,
		net:            net,
	}
}

func (b *blockchainListener) ObserveBlockchain() {
	go b.crawlerSvc.Start()
	go b.handleBlockchainEvents()
}

func (b *blockchainListener) StopObserveBlockchain() {
	b.crawlerSvc.Stop()
}

func (b *blockchainListener) WatchAddress(addr string) {
	b.crawlerSvc.AddObservable(&crawler.AddressObservable{Address: addr})
}

func (b *blockchainListener) UnwatchAddress(addr string) {
	b.crawlerSvc.RemoveObservable(&crawler.AddressObservable{Address: addr})
}

func (b *blockchainListener) WatchTransaction(txid, addr string) {
	b.crawlerSvc.AddObservable(&crawler.TransactionObservable{
		TxID:    txid,
		Address: addr,
	})
}

func (b *blockchainListener) handleBlockchainEvents() {
	for event := range b.crawlerSvc.GetEventChannel() {
		switch e := event.(type) {
		case crawler.AddressEvent:
			if err := b.syncAddress(e); err != nil {
				log.WithError(err).WithField("address", e.Address).
					Warn("failed to sync address unspents")
			}
		case crawler.TransactionEvent:
			if err := b.syncTransaction(e); err != nil {
				log.WithError(err).WithField("txid", e.TxID).
					Warn("failed to sync transaction")
			}
		case crawler.QuitEvent:
			return
		}
	}
}

// syncAddress refreshes the persisted view of an address: the reported
// outputs are upserted and stored outputs missing from the fresh view are
// marked spent. Local bookkeeping survives the refresh: an output retired
// or locked by the wallet stays retired even while providers still report
// it unspent.
func (b *blockchainListener) syncAddress(event crawler.AddressEvent) error {
	ctx := context.Background()

	stored, err := b.utxoRepository.GetUtxosForAddresses(ctx, []string{event.Address})
	if err != nil {
		return err
	}
	storedByKey := make(map[domain.UtxoKey]domain.Utxo, len(stored))
	for _, utxo := range stored {
		storedByKey[utxo.Key()] = utxo
	}

	fresh := make(map[domain.UtxoKey]struct{}, len(event.Utxos))
	utxos := make([]domain.Utxo, 0, len(event.Utxos))
	for _, utxo := range event.Utxos {
		record := domain.UtxoFromExplorer(utxo, b.net.Name)
		if prev, ok := storedByKey[record.Key()]; ok {
			record.Spent = prev.Spent
			record.Locked = prev.Locked
			record.LockedBy = prev.LockedBy
		}
		fresh[record.Key()] = struct{}{}
		utxos = append(utxos, record)
	}
	if err := b.utxoRepository.AddOrUpdateUtxos(ctx, utxos); err != nil {
		return err
	}

	spent := make([]domain.UtxoKey, 0)
	for key, utxo := range storedByKey {
		if utxo.Spent {
			continue
		}
		if _, ok := fresh[key]; !ok {
			spent = append(spent, key)
		}
	}
	if len(spent) == 0 {
		return nil
	}
	return b.utxoRepository.SpendUtxos(ctx, spent)
}

func (b *blockchainListener) syncTransaction(event crawler.TransactionEvent) error {
	ctx := context.Background()

	tx := domain.Transaction{
		TxID:    event.TxID,
		Address: event.Address,
		Network: b.net.Name,
	}
	if stored, err := b.txRepository.GetTransaction(ctx, event.TxID); err == nil {
		tx = *stored
	}
	tx.Height = event.Height
	tx.Confirmations = event.Confirmations

	if event.Type() == crawler.TransactionConfirmed {
		log.WithFields(log.Fields{
			"txid":          event.TxID,
			"confirmations": event.Confirmations,
		}).Info("transaction confirmed")
	}
	return b.txRepository.AddOrUpdateTransactions(ctx, []domain.Transaction{tx})
}
