package cmd

import (
	"fmt"
	"io"
	"log"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/cobra"
)

var weightCmd = &cobra.Command{
	Use:   "weight <record>",
	Short: "Print the size, weight, fee and sig-op cost of the record",
	Args:  cobra.ExactArgs(1),
	Run:   weightRun,
}

func init() {
	rootCmd.AddCommand(weightCmd)
}

func weightRun(cmd *cobra.Command, args []string) {
	tx, err := readRecord(args[0])
	if err != nil {
		log.Fatal(err)
	}

	printWeight(cmd.OutOrStdout(), tx)
}

func printWeight(w io.Writer, tx database.Tx) {
	tx.Meta.Weight = tx.Weight()

	fmt.Fprintf(w, "size:     %d\n", len(tx.Serialize()))
	fmt.Fprintf(w, "weight:   %d\n", tx.Meta.Weight)
	fmt.Fprintf(w, "vsize:    %d\n", tx.VSize())
	fmt.Fprintf(w, "sigops:   %d\n", tx.SigOpCost())

	in, out := tx.InputSum(), tx.OutputSum()
	if in < out {
		fmt.Fprintf(w, "fee:      negative (in %s, out %s)\n", btcutil.Amount(in), btcutil.Amount(out))
		return
	}

	tx.Meta.Fee = in - out
	fmt.Fprintf(w, "fee:      %s\n", btcutil.Amount(tx.Meta.Fee))
	fmt.Fprintf(w, "feerate:  %d sat/vB\n", tx.Feerate())
}
