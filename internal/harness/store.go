// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package harness

import (
	"bytes"
	"encoding/gob"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// A Record is the last result of checking a model.
type Record struct {
	Hash     uint64 // of the model text and checker flags
	Passed   bool
	Duration time.Duration
	When     time.Time
}

// Store persists check results across runs, keyed by model name: the
// model's base name without its extension, the same name its build
// products get.
type Store struct {
	db *badger.DB
}

// OpenStore opens the results store in dir, creating it if needed.
// If dir is "", the store lives in memory only.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(model string) []byte {
	return []byte("result/" + modelName(model))
}

// Get returns the record for model, if there is one.
func (s *Store) Get(model string) (rec Record, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(model))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ok = true
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&rec)
		})
	})
	return rec, ok, err
}

// Put replaces the record for model.
func (s *Store) Put(model string, rec Record) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(model), buf.Bytes())
	})
}
