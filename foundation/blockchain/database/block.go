package database

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"sync/atomic"

	"github.com/ardanlabs/blockminer/foundation/blockchain/merkle"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/sync/errgroup"
)

// ErrNonceExhausted is returned from POW when no nonce in the 32 bit space
// produces a hash below the target.
var ErrNonceExhausted = errors.New("nonce space exhausted")

// HeaderSize is the size of a serialized block header.
const HeaderSize = 80

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Version       int32
	PrevBlockHash chainhash.Hash // Natural byte order.
	MerkleRoot    chainhash.Hash
	TimeStamp     uint32
	Bits          uint32
	Nonce         uint32
}

// Serialize returns the 80 byte wire form of the header.
func (h BlockHeader) Serialize() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(h.Version))
	copy(b[4:36], h.PrevBlockHash[:])
	copy(b[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(b[68:72], h.TimeStamp)
	binary.LittleEndian.PutUint32(b[72:76], h.Bits)
	binary.LittleEndian.PutUint32(b[76:80], h.Nonce)
	return b
}

// Hash returns the double sha256 of the serialized header.
func (h BlockHeader) Hash() chainhash.Hash {
	return chainhash.DoubleHashH(h.Serialize())
}

// Block represents a group of transactions batched together. The coinbase
// is always the first transaction in the tree.
type Block struct {
	Header BlockHeader
	Trans  *merkle.Tree[Tx]
}

// Coinbase returns the coinbase transaction of the block.
func (b Block) Coinbase() Tx {
	return b.Trans.Values()[0]
}

// TxIDs returns the transaction ids in block order, coinbase first.
func (b Block) TxIDs() []chainhash.Hash {
	values := b.Trans.Values()

	ids := make([]chainhash.Hash, len(values))
	for i, tx := range values {
		ids[i] = tx.Meta.TxID
	}

	return ids
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() chainhash.Hash {
	return b.Header.Hash()
}

// Lines returns the output artifact: the header, the coinbase transaction
// and one display order transaction id per line, coinbase first.
func (b Block) Lines() []string {
	lines := []string{
		hex.EncodeToString(b.Header.Serialize()),
		hex.EncodeToString(b.Coinbase().Serialize()),
	}

	for _, id := range b.TxIDs() {
		lines = append(lines, id.String())
	}

	return lines
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Version       int32
	PrevBlockHash chainhash.Hash
	Bits          uint32
	Target        [32]byte // Big endian.
	TimeStamp     uint32
	Coinbase      Tx
	Trans         []Tx
	Workers       int
	EvHandler     func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	// Construct a merkle tree from the transactions for this block. The root
	// of this tree will be part of the block to be mined.
	trans := make([]Tx, 0, len(args.Trans)+1)
	trans = append(trans, args.Coinbase)
	trans = append(trans, args.Trans...)

	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Block{}, err
	}

	nb := Block{
		Header: BlockHeader{
			Version:       args.Version,
			PrevBlockHash: args.PrevBlockHash,
			TimeStamp:     args.TimeStamp,
			Bits:          args.Bits,
			Nonce:         0, // Will be identified by the POW algorithm.
		},
		Trans: tree,
	}
	copy(nb.Header.MerkleRoot[:], tree.MerkleRoot)

	workers := args.Workers
	if workers < 1 {
		workers = 1
	}

	// Perform the proof of work mining operation.
	if err := nb.performPOW(ctx, workers, args.Target, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
// The nonce space is scanned in rounds: each round hands consecutive ranges
// to the workers and the smallest solution found in a round wins, so the
// result is the first solving nonce in numeric order.
func (b *Block) performPOW(ctx context.Context, workers int, target [32]byte, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: workers[%d]", workers)
	defer ev("database: PerformPOW: MINING: completed")

	const (
		span     = 1 << 20
		notFound = math.MaxUint32 + 1
	)

	header := b.Header.Serialize()

	for base := uint64(0); base <= math.MaxUint32; base += span * uint64(workers) {
		var best atomic.Uint64
		best.Store(notFound)

		g, gctx := errgroup.WithContext(ctx)
		for w := 0; w < workers; w++ {
			start := base + uint64(w)*span
			if start > math.MaxUint32 {
				break
			}
			end := min(start+span, notFound)

			g.Go(func() error {
				buf := bytes.Clone(header)
				for n := start; n < end; n++ {
					if n%(1<<16) == 0 {
						if err := gctx.Err(); err != nil {
							return err
						}

						// A lower range already solved the puzzle.
						if best.Load() < n {
							return nil
						}
					}

					binary.LittleEndian.PutUint32(buf[76:], uint32(n))
					if !isHashSolved(target, chainhash.DoubleHashH(buf)) {
						continue
					}

					for {
						cur := best.Load()
						if n >= cur || best.CompareAndSwap(cur, n) {
							break
						}
					}
					return nil
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return err
		}

		if n := best.Load(); n != notFound {
			b.Header.Nonce = uint32(n)
			ev("database: PerformPOW: MINING: SOLVED: nonce[%d]: blk[%s]", n, b.Hash())
			return nil
		}

		ev("database: PerformPOW: MINING: attempts[%d]", min(base+span*uint64(workers), notFound))
	}

	return ErrNonceExhausted
}

// isHashSolved checks the hash, read as a big endian integer in its natural
// byte order, is strictly below the target.
func isHashSolved(target [32]byte, hash chainhash.Hash) bool {
	return bytes.Compare(hash[:], target[:]) < 0
}

// =============================================================================

// BlockData represents what is archived for a sealed block.
type BlockData struct {
	Hash     string   `json:"hash"`
	Height   int64    `json:"height"`
	Header   string   `json:"header"`
	Coinbase string   `json:"coinbase"`
	TxIDs    []string `json:"txids"`
	Fees     uint64   `json:"fees"`
	Weight   uint64   `json:"weight"`
}

// NewBlockData constructs the value to archive.
func NewBlockData(block Block, height int64) BlockData {
	var fees, weight uint64
	for _, tx := range block.Trans.Values()[1:] {
		fees += tx.Meta.Fee
		weight += tx.Meta.Weight
	}

	ids := block.TxIDs()
	txIDs := make([]string, len(ids))
	for i, id := range ids {
		txIDs[i] = id.String()
	}

	return BlockData{
		Hash:     block.Hash().String(),
		Height:   height,
		Header:   hex.EncodeToString(block.Header.Serialize()),
		Coinbase: hex.EncodeToString(block.Coinbase().Serialize()),
		TxIDs:    txIDs,
		Fees:     fees,
		Weight:   weight,
	}
}
