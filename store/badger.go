package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger"
	"github.com/sirupsen/logrus"
)

// BadgerKV persists keys in a badger database directory.
type BadgerKV struct {
	Database *badger.DB
}

// OpenBadger opens (or creates) the database in dir. Badger's own logging goes
// through log.
func OpenBadger(dir string, log *logrus.Entry) (*BadgerKV, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(log.WithField("component", "badger")))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}

	return &BadgerKV{Database: db}, nil
}

// Get function
func (b *BadgerKV) Get(key string) (string, error) {
	var value []byte

	err := b.Database.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)

		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}

	return string(value), nil
}

// Set function
func (b *BadgerKV) Set(key, value string) error {
	err := b.Database.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Close function
func (b *BadgerKV) Close() error {
	return b.Database.Close()
}
