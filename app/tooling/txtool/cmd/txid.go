package cmd

import (
	"fmt"
	"io"
	"log"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var txidCmd = &cobra.Command{
	Use:   "txid <record>",
	Short: "Print the transaction and witness ids of the record",
	Args:  cobra.ExactArgs(1),
	Run:   txidRun,
}

func init() {
	rootCmd.AddCommand(txidCmd)
}

func txidRun(cmd *cobra.Command, args []string) {
	tx, err := readRecord(args[0])
	if err != nil {
		log.Fatal(err)
	}

	printIDs(cmd.OutOrStdout(), tx)
}

func printIDs(w io.Writer, tx database.Tx) {
	txID, wtxID := tx.ComputeIDs()

	fmt.Fprintf(w, "txid:     %s\n", txID)
	fmt.Fprintf(w, "wtxid:    %s\n", wtxID)
	fmt.Fprintf(w, "declared: %s\n", tx.DeclaredID)
	fmt.Fprintf(w, "segwit:   %t\n", tx.HasWitness())
}
