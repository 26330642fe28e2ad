package storage

import (
	"os"
	"strings"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
)

// WriteBlock writes the block artifact to the file: the header, the
// coinbase and the transaction ids, one per line with no trailing newline.
func WriteBlock(path string, block database.Block) error {
	data := strings.Join(block.Lines(), "\n")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(data); err != nil {
		return err
	}

	return f.Close()
}
