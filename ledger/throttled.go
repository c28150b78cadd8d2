package ledger

import (
	"context"

	"github.com/NethermindEth/seth/utils"
)

var _ Client = (*ThrottledClient)(nil)

// ThrottledClient bounds the number of queries in flight against the wrapped
// client and the number waiting for a slot.
type ThrottledClient struct {
	*utils.Throttler[Client]
}

func NewThrottledClient(client Client, concurrencyBudget uint, maxQueueLen int32) *ThrottledClient {
	return &ThrottledClient{
		Throttler: utils.NewThrottler(concurrencyBudget, &client).WithMaxQueueLen(maxQueueLen),
	}
}

func (c *ThrottledClient) Account(ctx context.Context, address string, at BlockKey) (*Account, error) {
	var account *Account
	err := c.Do(ctx, func(client *Client) error {
		var err error
		account, err = (*client).Account(ctx, address, at)
		return err
	})
	return account, err
}

func (c *ThrottledClient) StorageAt(ctx context.Context, address, position string, at BlockKey) ([]byte, error) {
	var value []byte
	err := c.Do(ctx, func(client *Client) error {
		var err error
		value, err = (*client).StorageAt(ctx, address, position, at)
		return err
	})
	return value, err
}
