package pebble

import (
	"github.com/NethermindEth/seth/db"
	"github.com/cockroachdb/pebble"
)

var _ db.Iterator = (*iterator)(nil)

type iterator struct {
	iter       *pebble.Iterator
	positioned bool
}

// Valid : see db.Iterator.Valid
func (i *iterator) Valid() bool {
	return i.iter.Valid()
}

// Key : see db.Iterator.Key
func (i *iterator) Key() []byte {
	return i.iter.Key()
}

// Value : see db.Iterator.Value
func (i *iterator) Value() ([]byte, error) {
	return i.iter.ValueAndErr()
}

// Next : see db.Iterator.Next
func (i *iterator) Next() bool {
	if !i.positioned {
		i.positioned = true
		return i.iter.First()
	}
	return i.iter.Next()
}

// Seek : see db.Iterator.Seek
func (i *iterator) Seek(key []byte) bool {
	i.positioned = true
	return i.iter.SeekGE(key)
}

// SeekLT : see db.Iterator.SeekLT
func (i *iterator) SeekLT(key []byte) bool {
	i.positioned = true
	return i.iter.SeekLT(key)
}

// Close : see db.Iterator.Close
func (i *iterator) Close() error {
	return i.iter.Close()
}
