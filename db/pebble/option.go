package pebble

import (
	"github.com/NethermindEth/seth/utils"
	"github.com/cockroachdb/pebble"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to pebble
	// read and write caching. This is also pebble's default value.
	minCacheSizeMB = 8
)

type Option = func(*pebble.Options)

func WithCacheSize(cacheSizeMB uint) Option {
	cacheSizeMB = max(cacheSizeMB, minCacheSizeMB)
	return func(opts *pebble.Options) {
		opts.Cache = pebble.NewCache(int64(cacheSizeMB * utils.Megabyte))
	}
}

func WithMaxOpenFiles(maxOpenFiles int) Option {
	return func(opts *pebble.Options) {
		if maxOpenFiles > 0 {
			opts.MaxOpenFiles = maxOpenFiles
		}
	}
}

func WithLogger(logger pebble.Logger) Option {
	return func(opts *pebble.Options) {
		opts.Logger = logger
	}
}
