package pebble

import (
	"bytes"
	"context"

	"github.com/NethermindEth/seth/db"
	"github.com/NethermindEth/seth/utils"
)

type Item struct {
	Count uint
	Size  utils.DataSize
}

// CalculatePrefixSize walks every key starting with prefix and sums key and value sizes.
func CalculatePrefixSize(ctx context.Context, database db.DB, prefix []byte) (*Item, error) {
	item := new(Item)
	err := database.View(func(txn db.Transaction) (err error) {
		it, err := txn.NewIterator()
		if err != nil {
			return err
		}
		defer db.CloseAndWrapOnError(it.Close, &err)

		for ok := it.Seek(prefix); ok && bytes.HasPrefix(it.Key(), prefix); ok = it.Next() {
			if err = ctx.Err(); err != nil {
				return err
			}
			val, err := it.Value()
			if err != nil {
				return err
			}
			item.Count++
			item.Size += utils.DataSize(len(it.Key()) + len(val))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
