package store

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/dgraph-io/badger/options"
	"go.uber.org/zap"
)

type BadgerStore struct {
	db  *badger.DB
	log *zap.Logger
}

func NewBadgerStore(dir string, log *zap.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Truncate = true
	opts.ValueLogLoadingMode = options.FileIO
	opts.NumVersionsToKeep = 1
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		log.Error("failed to open badger", zap.Error(err))
		return nil, err
	}

	s := &BadgerStore{
		db:  db,
		log: log,
	}

	go func() {
		gcTimer := time.NewTicker(time.Hour)
		for range gcTimer.C {
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Error("failed to run gc", zap.Error(err))
			}
		}
	}()

	return s, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) Load(name string) ([]byte, error) {
	var body []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("document:" + name))
		if err != nil {
			return err
		}
		body, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to read document", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return body, nil
}

func (s *BadgerStore) Save(name string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("document:"+name), data)
	})
}
