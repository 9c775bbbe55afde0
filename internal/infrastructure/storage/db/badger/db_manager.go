// Package dbbadger persists the wallet's synced state (UTXO view and
// address histories) in badger stores queried through badgerhold.
package dbbadger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"
)

// DbManager holds all the badgerhold stores in a single data structure.
type DbManager struct {
	UtxoStore *badgerhold.Store
	TxStore   *badgerhold.Store
}

// NewDbManager opens (or creates if not exists) the badger stores on disk.
// It expects a base data dir and an optional logger, and creates a
// dedicated directory for utxos and transactions.
func NewDbManager(baseDbDir string, logger badger.Logger) (*DbManager, error) {
	utxoDb, err := createDb(filepath.Join(baseDbDir, "utxos"), logger)
	if err != nil {
		return nil, fmt.Errorf("opening utxo db: %w", err)
	}

	txDb, err := createDb(filepath.Join(baseDbDir, "transactions"), logger)
	if err != nil {
		return nil, fmt.Errorf("opening transaction db: %w", err)
	}

	return &DbManager{
		UtxoStore: utxoDb,
		TxStore:   txDb,
	}, nil
}

// Close closes the underlying stores.
func (d *DbManager) Close() error {
	if err := d.UtxoStore.Close(); err != nil {
		return err
	}
	return d.TxStore.Close()
}

// JSONEncode is a custom JSON based encoder for badger
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)

	err := en.Encode(value)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger
func JSONDecode(data []byte, value interface{}) error {
	var buff bytes.Buffer
	de := json.NewDecoder(&buff)

	_, err := buff.Write(data)
	if err != nil {
		return err
	}

	return de.Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	return badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
