package cmd

import (
	"fmt"
	"io"
	"log"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockminer/foundation/blockchain/validator"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <record>",
	Short: "Run the record through the validator and each input through its verifier",
	Args:  cobra.ExactArgs(1),
	Run:   verifyRun,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func verifyRun(cmd *cobra.Command, args []string) {
	gen, err := loadGenesis()
	if err != nil {
		log.Fatal(err)
	}

	tx, err := readRecord(args[0])
	if err != nil {
		log.Fatal(err)
	}

	if err := printVerify(cmd.OutOrStdout(), gen, tx); err != nil {
		log.Fatal(err)
	}
}

func printVerify(w io.Writer, gen genesis.Genesis, tx database.Tx) error {
	v, err := validator.New(validator.Policy{
		MaxTxWeight: gen.MaxTxWeight(),
		MaxMoney:    gen.MaxMoney,
		MinFeerate:  gen.MinFeerate,
		Identity:    gen.IdentityCheck,
	})
	if err != nil {
		return err
	}

	for idx, in := range tx.Inputs {
		result := "ok"
		if err := validator.VerifyInput(tx, idx); err != nil {
			result = err.Error()
		}
		fmt.Fprintf(w, "input[%d] %s: %s\n", idx, in.Type, result)
	}

	if err := v.Validate(&tx); err != nil {
		fmt.Fprintf(w, "INVALID: %s (%s)\n", validator.Reason(err), err)
		return nil
	}

	fmt.Fprintf(w, "VALID: txid %s\n", tx.Meta.TxID)
	return nil
}
