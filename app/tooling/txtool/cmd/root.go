// Package cmd contains the txtool commands for inspecting a single
// transaction record.
package cmd

import (
	"os"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/database/storage"
	"github.com/ardanlabs/blockminer/foundation/blockchain/genesis"
	"github.com/spf13/cobra"
)

var genesisPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&genesisPath, "genesis", "g", "", "Path to a genesis file overriding the default parameters.")
}

var rootCmd = &cobra.Command{
	Use:   "txtool",
	Short: "Inspect a transaction record",
}

// Execute runs the command selected on the command line.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func loadGenesis() (genesis.Genesis, error) {
	if genesisPath == "" {
		return genesis.Default(), nil
	}

	return genesis.Load(genesisPath)
}

func readRecord(path string) (database.Tx, error) {
	return storage.ReadRecord(path)
}
