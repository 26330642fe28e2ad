// Package genesis maintains access to the chain and policy parameters a
// block is assembled under.
package genesis

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Genesis represents the parameters of the chain being mined on.
type Genesis struct {
	BlockWeightLimit uint64 `json:"block_weight_limit"` // Maximum weight of a block.
	CoinbaseReserve  uint64 `json:"coinbase_reserve"`   // Weight set aside for the header and coinbase.
	MaxBlockSigOps   uint64 `json:"max_block_sigops"`   // Maximum sig-op cost of a block.
	MaxMoney         uint64 `json:"max_money"`          // Largest value an output or sum can carry.
	MinFeerate       uint64 `json:"min_feerate"`        // Lowest fee per virtual byte accepted.
	Version          int32  `json:"version"`            // Block header version.
	PrevBlockHash    string `json:"prev_block_hash"`    // Display byte order.
	Bits             uint32 `json:"bits"`               // Compact difficulty field of the header.
	Target           string `json:"target"`             // Big endian hex, a block hash must be below it.
	Height           int64  `json:"height"`             // Height committed to in the coinbase.
	IdentityCheck    string `json:"identity_check"`     // How a record's declared id maps to its txid.
	PayoutScript     string `json:"payout_script"`      // Locking script the fees are paid to.
}

// Default returns the parameters of the demonstration chain.
func Default() Genesis {
	return Genesis{
		BlockWeightLimit: 4_000_000,
		CoinbaseReserve:  1_100 + 320,
		MaxBlockSigOps:   80_000,
		MaxMoney:         2_099_999_900_000_000,
		MinFeerate:       1,
		Version:          0x20000000,
		PrevBlockHash:    "00000000000000000001901b9f3b6c7a0c34b20b29b950d0d8ffa36c63979c1c",
		Bits:             0x1f00ffff,
		Target:           "00000ffff0000000000000000000000000000000000000000000000000000000",
		Height:           840_000,
		IdentityCheck:    "txid",
		PayoutScript:     "001471a3d2f54b0917dc9d2c877b2861ac52967dec7f",
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file
// keep their default value.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the parameters are usable.
func (g Genesis) Validate() error {
	if g.CoinbaseReserve >= g.BlockWeightLimit {
		return errors.New("coinbase reserve must be below the block weight limit")
	}

	if g.MaxMoney == 0 {
		return errors.New("max money must be positive")
	}

	if _, err := g.PrevHash(); err != nil {
		return err
	}

	if _, err := g.TargetBytes(); err != nil {
		return err
	}

	if _, err := g.Payout(); err != nil {
		return err
	}

	return nil
}

// MaxTxWeight returns the weight left for pool transactions once the
// header and coinbase are accounted for.
func (g Genesis) MaxTxWeight() uint64 {
	return g.BlockWeightLimit - g.CoinbaseReserve
}

// PrevHash returns the previous block hash in natural byte order.
func (g Genesis) PrevHash() (chainhash.Hash, error) {
	hash, err := chainhash.NewHashFromStr(g.PrevBlockHash)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("prev block hash: %w", err)
	}

	return *hash, nil
}

// TargetBytes returns the target as a 32 byte big endian value.
func (g Genesis) TargetBytes() ([32]byte, error) {
	var target [32]byte

	b, err := hex.DecodeString(g.Target)
	if err != nil {
		return target, fmt.Errorf("target: %w", err)
	}

	if len(b) != len(target) {
		return target, fmt.Errorf("target: expected %d bytes, got %d", len(target), len(b))
	}

	copy(target[:], b)
	return target, nil
}

// Payout returns the locking script the block fees are paid to.
func (g Genesis) Payout() ([]byte, error) {
	script, err := hex.DecodeString(g.PayoutScript)
	if err != nil {
		return nil, fmt.Errorf("payout script: %w", err)
	}

	if len(script) == 0 {
		return nil, errors.New("payout script: empty")
	}

	return script, nil
}
