package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/NethermindEth/seth/db"
	"github.com/NethermindEth/seth/db/pebble"
	"github.com/NethermindEth/seth/ledger"
	"github.com/NethermindEth/seth/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type DBInfo struct {
	ChainHeight *uint64      `json:"chain_height"`
	HeadHash    *common.Hash `json:"head_hash"`
	GenesisHash *common.Hash `json:"genesis_hash"`
}

func DBCmd(defaultDBPath string) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database related operations",
		Long:  `This command allows you to inspect the ledger store.`,
	}

	dbCmd.PersistentFlags().String(dbPathF, defaultDBPath, dbPathUsage)
	dbCmd.AddCommand(DBInfoCmd(), DBSizeCmd())
	return dbCmd
}

func DBInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Retrieve database information",
		Long:  `This subcommand retrieves and displays chain information stored in the database.`,
		RunE:  dbInfo,
	}
}

func DBSizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Calculate database size information for each data type",
		Long:  `This subcommand retrieves and displays the storage of each data type stored in the database.`,
		RunE:  dbSize,
	}
}

func openDB(cmd *cobra.Command) (db.DB, error) {
	dbPath, err := cmd.Flags().GetString(dbPathF)
	if err != nil {
		return nil, err
	}
	if dbPath == "" {
		return nil, fmt.Errorf("--%v cannot be empty", dbPathF)
	}
	return pebble.New(dbPath)
}

func dbInfo(cmd *cobra.Command, args []string) (err error) {
	database, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.CloseAndWrapOnError(database.Close, &err)

	store, err := ledger.NewStore(database, utils.NewNopZapLogger())
	if err != nil {
		return err
	}

	info := DBInfo{}
	head, err := store.Head(cmd.Context())
	switch {
	case errors.Is(err, ledger.ErrBlockNotFound):
	case err != nil:
		return fmt.Errorf("failed to get the latest block information: %w", err)
	default:
		info.ChainHeight = &head.Number
		info.HeadHash = &head.Hash

		genesis, err := store.HeaderByKey(cmd.Context(), ledger.NumberKey(0))
		if err != nil {
			return fmt.Errorf("failed to get the genesis block: %w", err)
		}
		info.GenesisHash = &genesis.Hash
	}

	jsonData, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	return err
}

func dbSize(cmd *cobra.Command, args []string) (err error) {
	database, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.CloseAndWrapOnError(database.Close, &err)

	buckets := db.BucketValues()
	sizes := make([]*pebble.Item, len(buckets))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, b := range buckets {
		g.Go(func() error {
			item, err := pebble.CalculatePrefixSize(ctx, database, b.Key())
			if err != nil {
				return fmt.Errorf("bucket %s: %w", b, err)
			}
			sizes[i] = item
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}

	var (
		totalSize  utils.DataSize
		totalCount uint

		items [][]string
	)
	for i, b := range buckets {
		items = append(items, []string{b.String(), sizes[i].Size.String(), strconv.FormatUint(uint64(sizes[i].Count), 10)})
		totalSize += sizes[i].Size
		totalCount += sizes[i].Count
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Bucket", "Size", "Count"})
	table.AppendBulk(items)
	table.SetFooter([]string{"Total", totalSize.String(), strconv.FormatUint(uint64(totalCount), 10)})
	table.Render()
	return nil
}
