// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package badger implements the storage interfaces using BadgerDB.
//
// Values are encoded and queried through badgerhold, which layers typed
// queries on top of Badger's key-value transactions.
package badger

import (
	"fmt"
	"log/slog"
	"os"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/recall/storage"
	"github.com/timshannon/badgerhold/v4"
)

// Store implements storage.Store on top of BadgerDB.
type Store struct {
	db     *badgerhold.Store
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badgerdb.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// open opens a badgerhold store at the specified path.
// Creates the directory if it doesn't exist.
func open(filePath string, inMemory bool) (*Store, error) {
	var badgerOpts badgerdb.Options

	if inMemory {
		badgerOpts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		badgerOpts = badgerdb.DefaultOptions(filePath)
	}

	badgerOpts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	badgerOpts.Compression = options.None

	opts := badgerhold.DefaultOptions
	opts.Options = badgerOpts

	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "badger-store"),
	}, nil
}

// NewStore opens a persistent store at the specified path.
//
// Returns storage.Store interface to enforce abstraction.
func NewStore(filePath string) (storage.Store, error) {
	return open(filePath, false)
}

// NewMemoryStore opens an in-memory store, primarily for tests.
//
// Returns storage.Store interface to enforce abstraction.
func NewMemoryStore() (storage.Store, error) {
	return open("", true)
}

// Close closes the underlying BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}
