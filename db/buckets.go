package db

import "slices"

type Bucket byte

// Pebble does not support buckets to differentiate between groups of
// keys like Bolt or MDBX does. We use a global prefix list as a poor
// man's bucket alternative.
const (
	ChainHead       Bucket = iota // -> number of the latest committed block
	BlockHeaders                  // BlockNum -> encoded block header
	BlockHashToNum                // BlockHash -> BlockNum
	AccountHistory                // Address + BlockNum -> encoded account at that block
	StorageHistory                // Address + Position + BlockNum -> storage value at that block
	SchemaVersion                 // -> version of the on-disk layout
)

// Key flattens a prefix and series of byte arrays into a single []byte.
func (b Bucket) Key(key ...[]byte) []byte {
	return append([]byte{byte(b)}, slices.Concat(key...)...)
}

func (b Bucket) String() string {
	switch b {
	case ChainHead:
		return "ChainHead"
	case BlockHeaders:
		return "BlockHeaders"
	case BlockHashToNum:
		return "BlockHashToNum"
	case AccountHistory:
		return "AccountHistory"
	case StorageHistory:
		return "StorageHistory"
	case SchemaVersion:
		return "SchemaVersion"
	default:
		return "Unknown"
	}
}

// BucketValues lists every bucket in prefix order.
func BucketValues() []Bucket {
	return []Bucket{ChainHead, BlockHeaders, BlockHashToNum, AccountHistory, StorageHistory, SchemaVersion}
}
