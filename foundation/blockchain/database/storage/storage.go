// Package storage handles all the lower level support for reading candidate
// transaction records from disk and writing sealed blocks back out.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/validate"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// recordExt is the extension of a record file. The rest of the file name is
// the record's declared identifier.
const recordExt = ".json"

// ReadRecords reads every record file in the directory, in file name order,
// and converts each into a transaction. Any malformed record is a
// structural error and fails the whole read.
func ReadRecords(dir string) ([]database.Tx, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var txs []database.Tx
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != recordExt {
			continue
		}

		tx, err := ReadRecord(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		txs = append(txs, tx)
	}

	return txs, nil
}

// ReadRecord reads a single record file.
func ReadRecord(path string) (database.Tx, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return database.Tx{}, err
	}

	var rec database.Record
	if err := json.Unmarshal(content, &rec); err != nil {
		return database.Tx{}, fmt.Errorf("%s: decode: %w", path, err)
	}

	if err := validate.Check(rec); err != nil {
		return database.Tx{}, fmt.Errorf("%s: %w", path, err)
	}

	declaredID := strings.TrimSuffix(filepath.Base(path), recordExt)

	tx, err := database.NewTx(rec, declaredID)
	if err != nil {
		return database.Tx{}, fmt.Errorf("%s: %w", path, err)
	}

	return tx, nil
}
