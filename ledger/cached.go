package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common/lru"
)

var _ Client = (*CachedClient)(nil)

type cacheEntry struct {
	account *Account
	value   []byte
	found   bool
}

// CachedClient memoises answers for block keys that name a fixed snapshot.
// Queries against the latest block always reach the wrapped client.
type CachedClient struct {
	client Client
	cache  *lru.Cache[string, cacheEntry]
}

func NewCachedClient(client Client, size int) *CachedClient {
	return &CachedClient{
		client: client,
		cache:  lru.NewCache[string, cacheEntry](size),
	}
}

func (c *CachedClient) Account(ctx context.Context, address string, at BlockKey) (*Account, error) {
	if !at.Immutable() {
		return c.client.Account(ctx, address, at)
	}

	key := "a/" + address + "/" + at.String()
	if entry, ok := c.cache.Get(key); ok {
		if !entry.found {
			return nil, ErrNotFound
		}
		return entry.account, nil
	}

	account, err := c.client.Account(ctx, address, at)
	switch {
	case err == nil:
		c.cache.Add(key, cacheEntry{account: account, found: true})
	case errors.Is(err, ErrBlockNotFound):
		// the block may still arrive
	case errors.Is(err, ErrNotFound):
		c.cache.Add(key, cacheEntry{})
	}
	return account, err
}

func (c *CachedClient) StorageAt(ctx context.Context, address, position string, at BlockKey) ([]byte, error) {
	if !at.Immutable() {
		return c.client.StorageAt(ctx, address, position, at)
	}

	key := "s/" + address + "/" + position + "/" + at.String()
	if entry, ok := c.cache.Get(key); ok {
		if !entry.found {
			return nil, ErrNotFound
		}
		return entry.value, nil
	}

	value, err := c.client.StorageAt(ctx, address, position, at)
	switch {
	case err == nil:
		c.cache.Add(key, cacheEntry{value: value, found: true})
	case errors.Is(err, ErrBlockNotFound):
	case errors.Is(err, ErrNotFound):
		c.cache.Add(key, cacheEntry{})
	}
	return value, err
}

func (c *CachedClient) Len() int {
	return c.cache.Len()
}
