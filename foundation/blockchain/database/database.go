// Package database handles the lower level representation of transactions
// and blocks: the data model, canonical serialization, hash commitments and
// the proof of work search.
package database

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for archiving sealed blocks.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(hash chainhash.Hash) (BlockData, error)
	ForEach(fn func(blockData BlockData) error) error
	Close() error
}

// Archive writes the sealed block to the storage.
func Archive(storage Storage, block Block, height int64) (BlockData, error) {
	blockData := NewBlockData(block, height)
	if err := storage.Write(blockData); err != nil {
		return BlockData{}, err
	}

	return blockData, nil
}
