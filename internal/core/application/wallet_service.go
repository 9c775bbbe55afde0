// Package application wires the wallet packages together: it keeps the
// persisted chain view in sync through the crawler and spends from it
// through the transaction builder.
package application

import (
	"context"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/polywallet/polywallet/internal/core/domain"
	"github.com/polywallet/polywallet/pkg/address"
	"github.com/polywallet/polywallet/pkg/explorer"
	"github.com/polywallet/polywallet/pkg/network"
	"github.com/polywallet/polywallet/pkg/txbuilder"
	"github.com/polywallet/polywallet/pkg/wallet"
)

// WalletService exposes the wallet operations of a single network: address
// derivation, balance queries against the synced store and spending.
type WalletService struct {
	mtx sync.Mutex

	net       *network.Profile
	master    *wallet.ExtendedKey
	ring      *wallet.KeyRing
	utxoRepo  domain.UtxoRepository
	txRepo    domain.TransactionRepository
	listener  BlockchainListener
	feeSource FeeSource

	scriptType address.ScriptType
	account    uint32
	nextIndex  uint32
	nextChange uint32
	addresses  []string
}

// FeeSource returns the current fee-rate estimate, typically a
// loadbalancer.Aggregator.
type FeeSource interface {
	GetFeeRate(ctx context.Context) (explorer.FeeRate, error)
}

// WalletServiceOpts is the struct given to NewWalletService.
type WalletServiceOpts struct {
	Network               *network.Profile
	Master                *wallet.ExtendedKey
	UtxoRepository        domain.UtxoRepository
	TransactionRepository domain.TransactionRepository
	Listener              BlockchainListener
	FeeSource             FeeSource
	// ScriptType is the address kind derived for receiving and change.
	// Defaults to P2WPKH on segwit networks and P2PKH elsewhere.
	ScriptType *address.ScriptType
	// Account is the BIP44/84 account index.
	Account uint32
}

// NewWalletService returns a WalletService deriving from the given master
// key.
func NewWalletService(opts WalletServiceOpts) *WalletService {
	scriptType := address.P2PKH
	if opts.Network.SupportsSegwit() {
		scriptType = address.P2WPKH
	}
	if opts.ScriptType != nil {
		scriptType = *opts.ScriptType
	}

	return &WalletService{
		net:        opts.Network,
		master:     opts.Master,
		ring:       wallet.NewKeyRing(),
		utxoRepo:   opts.UtxoRepository,
		txRepo:     opts.TransactionRepository,
		listener:   opts.Listener,
		feeSource:  opts.FeeSource,
		scriptType: scriptType,
		account:    opts.Account,
	}
}

// DeriveAddress derives the next receiving address, indexes its key and
// puts the address under observation.
func (w *WalletService) DeriveAddress() (*address.Address, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	addr, err := w.deriveLocked(0, w.nextIndex)
	if err != nil {
		return nil, err
	}
	w.nextIndex++
	return addr, nil
}

// GetBalance sums the unspent outputs of every derived address from the
// synced store.
func (w *WalletService) GetBalance(ctx context.Context) (uint64, error) {
	w.mtx.Lock()
	addresses := append([]string(nil), w.addresses...)
	w.mtx.Unlock()

	if len(addresses) == 0 {
		return 0, nil
	}
	return w.utxoRepo.GetBalance(ctx, addresses)
}

// GetHistory returns the persisted history of a derived address.
func (w *WalletService) GetHistory(
	ctx context.Context, addr string,
) ([]domain.Transaction, error) {
	return w.txRepo.GetTransactionsForAddress(ctx, addr)
}

// SendToAddress builds and signs a transaction paying the destinations
// from the wallet's spendable outputs. The selected inputs are locked while
// the draft exists and marked spent once signing succeeds; the signed
// transaction is returned to the caller for broadcast.
func (w *WalletService) SendToAddress(
	ctx context.Context, destinations []txbuilder.Destination, enableRBF bool,
) (*txbuilder.SignedTransaction, error) {
	w.mtx.Lock()
	addresses := append([]string(nil), w.addresses...)
	changeIndex := w.nextChange
	w.mtx.Unlock()

	feeRate, err := w.feeSource.GetFeeRate(ctx)
	if err != nil {
		return nil, err
	}

	spendable, err := w.utxoRepo.GetSpendableUtxos(ctx, addresses)
	if err != nil {
		return nil, err
	}
	utxos := make([]explorer.Utxo, 0, len(spendable))
	for _, record := range spendable {
		utxos = append(utxos, explorerUtxo(record))
	}

	// The change index and its watch are committed only once the send
	// succeeds; a failed build must not burn indexes or leave dead
	// observables behind.
	changeAddr, err := w.derive(1, changeIndex)
	if err != nil {
		return nil, err
	}

	draft, err := txbuilder.Build(txbuilder.BuildOpts{
		Network:       w.net,
		Utxos:         utxos,
		Destinations:  destinations,
		FeeRate:       feeRate,
		ChangeAddress: changeAddr,
		EnableRBF:     enableRBF,
	})
	if err != nil {
		return nil, err
	}

	keys := make([]domain.UtxoKey, 0, len(draft.Inputs()))
	for _, input := range draft.Inputs() {
		keys = append(keys, domain.UtxoKey{TxID: input.TxID, VOut: input.Index})
	}
	lockID := uuid.New()
	if err := w.utxoRepo.LockUtxos(ctx, keys, lockID); err != nil {
		return nil, err
	}

	signed, err := txbuilder.Sign(draft, w.ring)
	if err != nil {
		if unlockErr := w.utxoRepo.UnlockUtxos(ctx, keys); unlockErr != nil {
			log.WithError(unlockErr).Warn("failed to unlock utxos after signing failure")
		}
		return nil, err
	}

	if err := w.utxoRepo.SpendUtxos(ctx, keys); err != nil {
		return nil, err
	}
	w.commitChange(changeAddr, changeIndex)
	w.listener.WatchTransaction(signed.TxID(), changeAddr.String())

	log.WithFields(log.Fields{
		"network": w.net.Name,
		"txid":    signed.TxID(),
		"fee":     draft.Fee(),
	}).Info("transaction signed")
	return signed, nil
}

func (w *WalletService) deriveLocked(change, index uint32) (*address.Address, error) {
	addr, err := w.derive(change, index)
	if err != nil {
		return nil, err
	}
	w.addresses = append(w.addresses, addr.String())
	if w.listener != nil {
		w.listener.WatchAddress(addr.String())
	}
	return addr, nil
}

// derive indexes the key in the ring without registering the address or
// advancing any index counter.
func (w *WalletService) derive(change, index uint32) (*address.Address, error) {
	path := wallet.BIP44(w.net.HDCoinType, w.account, change, index)
	if w.scriptType == address.P2WPKH {
		path = wallet.BIP84(w.net.HDCoinType, w.account, change, index)
	}
	return w.ring.Add(w.master, path, w.scriptType)
}

func (w *WalletService) commitChange(addr *address.Address, index uint32) {
	w.mtx.Lock()
	if w.nextChange == index {
		w.nextChange = index + 1
	}
	w.addresses = append(w.addresses, addr.String())
	w.mtx.Unlock()
	if w.listener != nil {
		w.listener.WatchAddress(addr.String())
	}
}

func explorerUtxo(record domain.Utxo) explorer.Utxo {
	scriptType := address.P2PKH
	for _, candidate := range []address.ScriptType{
		address.P2PKH, address.P2SH, address.P2WPKH, address.P2WSH,
	} {
		if candidate.String() == record.ScriptType {
			scriptType = candidate
			break
		}
	}
	return explorer.Utxo{
		TxID:          record.TxID,
		Index:         record.VOut,
		Address:       record.Address,
		Amount:        record.Value,
		Confirmations: record.Confirmations,
		ScriptType:    scriptType,
	}
}
