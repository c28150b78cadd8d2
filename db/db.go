package db

import (
	"errors"
	"io"
)

var ErrKeyNotFound = errors.New("key not found")

// DB is a key-value database with transactional reads and writes.
type DB interface {
	io.Closer

	// NewTransaction returns a transaction on this database. A read-only transaction
	// sees a snapshot of the database taken at creation time.
	NewTransaction(update bool) Transaction
	// View creates a read-only transaction and calls fn with it, discarding it afterwards.
	View(fn func(txn Transaction) error) error
	// Update creates a read-write transaction and calls fn with it. The transaction
	// is committed when fn returns nil and discarded otherwise.
	Update(fn func(txn Transaction) error) error

	// WithListener registers an EventListener
	WithListener(listener EventListener) DB
}

// Transaction provides an interface to access the database's state at the point the transaction was created.
// Updates done to the database with a transaction should be only visible to other newly created transaction after
// the transaction is committed.
type Transaction interface {
	// NewIterator returns an iterator over the database's key/value pairs.
	NewIterator() (Iterator, error)
	// Discard discards all the changes done to the database with this transaction
	Discard() error
	// Commit flushes all the changes pending on this transaction to the database, making the changes visible to other
	// transaction
	Commit() error

	// Set updates the value of the given key
	Set(key, val []byte) error
	// Delete removes the key from the database
	Delete(key []byte) error
	// Get fetches the value for the given key, should return ErrKeyNotFound if key is not present
	// Caller should not assume that the slice would stay valid after the call to cb
	Get(key []byte, cb func([]byte) error) error
}

// Iterator walks key/value pairs in ascending key order.
// It must be closed after use and cannot be used concurrently.
type Iterator interface {
	io.Closer

	// Valid returns true if the iterator is positioned at a valid key/value pair.
	Valid() bool
	// Next moves the iterator to the next key/value pair.
	Next() bool
	// Key returns the key at the current position.
	Key() []byte
	// Value returns the value at the current position.
	Value() ([]byte, error)
	// Seek positions the iterator at the first key >= key.
	Seek(key []byte) bool
	// SeekLT positions the iterator at the last key < key.
	SeekLT(key []byte) bool
}

// CloseAndWrapOnError closes closer and joins its error with the error pointed by err.
func CloseAndWrapOnError(closer func() error, err *error) {
	if closeErr := closer(); closeErr != nil {
		*err = errors.Join(*err, closeErr)
	}
}
