package facts

import (
	"fmt"
	"os"

	"github.com/robert-at-pretension-io/dbgcov/internal/region"
)

// ReadFile loads a region stream written by dbgcov, in either output format
func ReadFile(path string) ([]region.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening regions: %w", err)
	}
	defer f.Close()

	records, err := region.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading regions from %s: %w", path, err)
	}
	return records, nil
}

// LoadTables reads a region stream and builds its tables
func LoadTables(path string) (Tables, error) {
	records, err := ReadFile(path)
	if err != nil {
		return Tables{}, err
	}
	return BuildTables(records), nil
}
