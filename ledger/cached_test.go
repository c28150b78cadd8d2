package ledger_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/NethermindEth/seth/ledger"
	"github.com/NethermindEth/seth/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCachedClientAccount(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	t.Cleanup(mockCtrl.Finish)

	mockClient := mocks.NewMockLedgerClient(mockCtrl)
	cached := ledger.NewCachedClient(mockClient, 16)
	ctx := context.Background()
	addr := hexAddr(alice)
	account := &ledger.Account{Balance: big.NewInt(7)}

	t.Run("immutable keys are cached", func(t *testing.T) {
		mockClient.EXPECT().Account(ctx, addr, ledger.NumberKey(1)).Return(account, nil).Times(1)
		for range 3 {
			got, err := cached.Account(ctx, addr, ledger.NumberKey(1))
			require.NoError(t, err)
			assert.Same(t, account, got)
		}
	})

	t.Run("latest is never cached", func(t *testing.T) {
		mockClient.EXPECT().Account(ctx, addr, ledger.LatestKey()).Return(account, nil).Times(2)
		for range 2 {
			_, err := cached.Account(ctx, addr, ledger.LatestKey())
			require.NoError(t, err)
		}
	})

	t.Run("absence is cached", func(t *testing.T) {
		mockClient.EXPECT().Account(ctx, addr, ledger.NumberKey(2)).Return(nil, ledger.ErrNotFound).Times(1)
		for range 2 {
			_, err := cached.Account(ctx, addr, ledger.NumberKey(2))
			require.ErrorIs(t, err, ledger.ErrNotFound)
		}
	})

	t.Run("missing block and failures are not cached", func(t *testing.T) {
		errBoom := errors.New("boom")
		gomock.InOrder(
			mockClient.EXPECT().Account(ctx, addr, ledger.NumberKey(3)).Return(nil, ledger.ErrBlockNotFound),
			mockClient.EXPECT().Account(ctx, addr, ledger.NumberKey(3)).Return(nil, errBoom),
			mockClient.EXPECT().Account(ctx, addr, ledger.NumberKey(3)).Return(account, nil),
		)
		_, err := cached.Account(ctx, addr, ledger.NumberKey(3))
		require.ErrorIs(t, err, ledger.ErrBlockNotFound)
		_, err = cached.Account(ctx, addr, ledger.NumberKey(3))
		require.ErrorIs(t, err, errBoom)
		got, err := cached.Account(ctx, addr, ledger.NumberKey(3))
		require.NoError(t, err)
		assert.Same(t, account, got)
	})
}

func TestCachedClientStorageAt(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	t.Cleanup(mockCtrl.Finish)

	mockClient := mocks.NewMockLedgerClient(mockCtrl)
	cached := ledger.NewCachedClient(mockClient, 1)
	ctx := context.Background()
	addr := hexAddr(bob)

	mockClient.EXPECT().StorageAt(ctx, addr, "01", ledger.NumberKey(1)).Return([]byte{1}, nil).Times(2)
	mockClient.EXPECT().StorageAt(ctx, addr, "02", ledger.NumberKey(1)).Return(nil, ledger.ErrNotFound).Times(1)

	value, err := cached.StorageAt(ctx, addr, "01", ledger.NumberKey(1))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, value)
	value, err = cached.StorageAt(ctx, addr, "01", ledger.NumberKey(1))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, value)
	assert.Equal(t, 1, cached.Len())

	// evicts "01" from a cache of one
	_, err = cached.StorageAt(ctx, addr, "02", ledger.NumberKey(1))
	require.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = cached.StorageAt(ctx, addr, "02", ledger.NumberKey(1))
	require.ErrorIs(t, err, ledger.ErrNotFound)

	value, err = cached.StorageAt(ctx, addr, "01", ledger.NumberKey(1))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, value)
}
