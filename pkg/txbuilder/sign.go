package txbuilder

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/polywallet/polywallet/pkg/address"
)

// BIP125: any sequence below 0xFFFFFFFE signals replaceability.
const (
	sequenceRBF    = wire.MaxTxInSequenceNum - 2
	sequenceNonRBF = wire.MaxTxInSequenceNum - 1
)

// KeySource resolves the private key controlling an address. It is
// typically a wallet.KeyRing.
type KeySource interface {
	PrivateKeyFor(addr *address.Address) (*btcec.PrivateKey, error)
}

// SignedTransaction is a fully signed transaction together with the draft
// it was produced from, so a replacement can later be built from the same
// input set.
type SignedTransaction struct {
	draft *TransactionDraft
	keys  KeySource
	tx    *wire.MsgTx
}

// Sign produces a signed transaction from a draft. Every input is signed
// with the key controlling its source address, using the whole-transaction
// sighash for legacy inputs and the BIP143 digest for segwit ones. Signing
// is all-or-nothing: every key is resolved before the first signature is
// made, so a failure never leaves a partially signed artifact behind.
func Sign(draft *TransactionDraft, keys KeySource) (*SignedTransaction, error) {
	tx, fetcher, err := draft.assemble()
	if err != nil {
		return nil, err
	}

	type signingInput struct {
		key      *btcec.PrivateKey
		script   []byte
		amount   int64
		isSegwit bool
	}

	inputs := make([]signingInput, len(draft.inputs))
	for i, utxo := range draft.inputs {
		source, err := address.Decode(utxo.Address, draft.net)
		if err != nil {
			return nil, &SigningError{
				InputIndex: i, Address: utxo.Address, Err: err,
			}
		}
		key, err := keys.PrivateKeyFor(source)
		if err != nil {
			return nil, &SigningError{
				InputIndex: i, Address: utxo.Address, Err: err,
			}
		}
		inputs[i] = signingInput{
			key:      key,
			script:   source.Script(),
			amount:   int64(utxo.Amount),
			isSegwit: source.Type().Segwit(),
		}
	}

	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	for i, input := range inputs {
		if input.isSegwit {
			witness, err := txscript.WitnessSignature(
				tx, sigHashes, i, input.amount, input.script,
				txscript.SigHashAll, input.key, true,
			)
			if err != nil {
				return nil, &SigningError{
					InputIndex: i,
					Address:    draft.inputs[i].Address,
					Err:        err,
				}
			}
			tx.TxIn[i].Witness = witness
			continue
		}

		sigScript, err := txscript.SignatureScript(
			tx, i, input.script, txscript.SigHashAll, input.key, true,
		)
		if err != nil {
			return nil, &SigningError{
				InputIndex: i,
				Address:    draft.inputs[i].Address,
				Err:        err,
			}
		}
		tx.TxIn[i].SignatureScript = sigScript
	}

	// Internal consistency check: every signature must verify against the
	// exact serialized transaction. Consensus-level validity is out of
	// scope here.
	for i, input := range inputs {
		vm, err := txscript.NewEngine(
			input.script, tx, i, txscript.StandardVerifyFlags,
			nil, sigHashes, input.amount, fetcher,
		)
		if err == nil {
			err = vm.Execute()
		}
		if err != nil {
			return nil, &SigningError{
				InputIndex: i,
				Address:    draft.inputs[i].Address,
				Err:        err,
			}
		}
	}

	return &SignedTransaction{draft: draft, keys: keys, tx: tx}, nil
}

// assemble builds the unsigned wire transaction of the draft and the
// matching previous-output view used for sighash computation.
func (d *TransactionDraft) assemble() (*wire.MsgTx, *txscript.MultiPrevOutFetcher, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	fetcher := txscript.NewMultiPrevOutFetcher(nil)

	sequence := uint32(sequenceNonRBF)
	if d.rbf {
		sequence = uint32(sequenceRBF)
	}

	for i, utxo := range d.inputs {
		hash, err := chainhash.NewHashFromStr(utxo.TxID)
		if err != nil {
			return nil, nil, &SigningError{
				InputIndex: i, Address: utxo.Address, Err: err,
			}
		}
		outpoint := wire.NewOutPoint(hash, utxo.Index)

		txIn := wire.NewTxIn(outpoint, nil, nil)
		txIn.Sequence = sequence
		tx.AddTxIn(txIn)

		source, err := address.Decode(utxo.Address, d.net)
		if err != nil {
			return nil, nil, &SigningError{
				InputIndex: i, Address: utxo.Address, Err: err,
			}
		}
		fetcher.AddPrevOut(
			*outpoint,
			wire.NewTxOut(int64(utxo.Amount), source.Script()),
		)
	}

	for _, destination := range d.destinations {
		tx.AddTxOut(wire.NewTxOut(
			int64(destination.Amount), destination.Address.Script(),
		))
	}
	if d.changeAmount > 0 {
		tx.AddTxOut(wire.NewTxOut(
			int64(d.changeAmount), d.change.Script(),
		))
	}
	return tx, fetcher, nil
}

// TxID returns the transaction id of the signed transaction.
func (s *SignedTransaction) TxID() string {
	return s.tx.TxHash().String()
}

// Serialize returns the signed transaction in wire encoding.
func (s *SignedTransaction) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.tx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WireTx returns the underlying wire transaction.
func (s *SignedTransaction) WireTx() *wire.MsgTx {
	return s.tx
}

// Draft returns the draft the transaction was signed from.
func (s *SignedTransaction) Draft() *TransactionDraft {
	return s.draft
}
