package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned when a block is not in the archive.
var ErrNotFound = errors.New("block not found")

var bucketBlocks = []byte("blocks_by_hash")

// Disk represents the archive of sealed blocks kept in a bbolt file. This
// implements the database.Storage interface.
type Disk struct {
	db *bolt.DB
}

// NewDisk opens or creates the archive file at the specified path.
func NewDisk(path string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlocks)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Disk{db: db}, nil
}

// Close releases the archive file.
func (d *Disk) Close() error {
	return d.db.Close()
}

// Write stores the block keyed by its hash.
func (d *Disk) Write(blockData database.BlockData) error {
	hash, err := chainhash.NewHashFromStr(blockData.Hash)
	if err != nil {
		return fmt.Errorf("block hash: %w", err)
	}

	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).Put(hash[:], data)
	})
}

// GetBlock returns the archived block for the specified hash.
func (d *Disk) GetBlock(hash chainhash.Hash) (database.BlockData, error) {
	var blockData database.BlockData

	err := d.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBlocks).Get(hash[:])
		if data == nil {
			return ErrNotFound
		}

		return json.Unmarshal(data, &blockData)
	})
	if err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach calls fn for every archived block in key order, stopping at the
// first error.
func (d *Disk) ForEach(fn func(blockData database.BlockData) error) error {
	return d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).ForEach(func(_, data []byte) error {
			var blockData database.BlockData
			if err := json.Unmarshal(data, &blockData); err != nil {
				return err
			}

			return fn(blockData)
		})
	})
}
