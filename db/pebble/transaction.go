package pebble

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/NethermindEth/seth/db"
	"github.com/cockroachdb/pebble"
)

var (
	ErrDiscardedTransaction = errors.New("discarded txn")
	ErrReadOnlyTransaction  = errors.New("read only transaction")
)

var _ db.Transaction = (*Transaction)(nil)

type Transaction struct {
	batch    *pebble.Batch
	snapshot *pebble.Snapshot
	lock     *sync.Mutex
	listener db.EventListener
}

// Discard : see db.Transaction.Discard
func (t *Transaction) Discard() error {
	var err error
	if t.batch != nil {
		err = t.batch.Close()
		t.batch = nil
	}
	if t.snapshot != nil {
		err = errors.Join(err, t.snapshot.Close())
		t.snapshot = nil
	}

	if t.lock != nil {
		t.lock.Unlock()
		t.lock = nil
	}
	return err
}

// Commit : see db.Transaction.Commit
func (t *Transaction) Commit() (err error) {
	start := time.Now()
	defer func() { t.listener.OnCommit(time.Since(start)) }()
	defer db.CloseAndWrapOnError(t.Discard, &err)

	if t.batch == nil {
		return ErrDiscardedTransaction
	}
	return t.batch.Commit(pebble.Sync)
}

// Set : see db.Transaction.Set
func (t *Transaction) Set(key, val []byte) error {
	start := time.Now()
	if t.batch == nil {
		return ErrReadOnlyTransaction
	} else if len(key) == 0 {
		return errors.New("empty key")
	}
	defer func() { t.listener.OnIO(true, time.Since(start)) }()
	return t.batch.Set(key, val, pebble.Sync)
}

// Delete : see db.Transaction.Delete
func (t *Transaction) Delete(key []byte) error {
	start := time.Now()
	if t.batch == nil {
		return ErrReadOnlyTransaction
	}
	defer func() { t.listener.OnIO(true, time.Since(start)) }()
	return t.batch.Delete(key, pebble.Sync)
}

// Get : see db.Transaction.Get
func (t *Transaction) Get(key []byte, cb func([]byte) error) (err error) {
	start := time.Now()
	var val []byte
	var closer io.Closer

	if t.batch != nil {
		val, closer, err = t.batch.Get(key)
	} else if t.snapshot != nil {
		val, closer, err = t.snapshot.Get(key)
	} else {
		return ErrDiscardedTransaction
	}
	t.listener.OnIO(false, time.Since(start))

	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return db.ErrKeyNotFound
		}
		return err
	}
	defer db.CloseAndWrapOnError(closer.Close, &err)
	return cb(val)
}

// NewIterator : see db.Transaction.NewIterator
func (t *Transaction) NewIterator() (db.Iterator, error) {
	var (
		iter *pebble.Iterator
		err  error
	)
	switch {
	case t.batch != nil:
		iter, err = t.batch.NewIter(nil)
	case t.snapshot != nil:
		iter, err = t.snapshot.NewIter(nil)
	default:
		return nil, ErrDiscardedTransaction
	}
	if err != nil {
		return nil, err
	}
	return &iterator{iter: iter}, nil
}
