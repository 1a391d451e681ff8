package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shpitdev/ensembl-homology-pipeline/pkg/pipeline/core"
	"github.com/shpitdev/ensembl-homology-pipeline/pkg/pipeline/table"
)

// ErrUnsupportedFormat is returned for input files that are neither CSV nor xlsx.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Source loads a table from a local .xlsx or .csv file.
type Source struct {
	Path string
	// Sheet names the worksheet to read from xlsx inputs. See ReadXLSX.
	Sheet string
}

// Sink writes a table to a local CSV file.
type Sink struct {
	Path    string
	Options WriteOptions
}

var (
	_ core.InputAdapter[table.Table]  = Source{}
	_ core.OutputAdapter[table.Table] = Sink{}
)

// Load reads the file, choosing the reader by extension.
func (s Source) Load(_ context.Context) (table.Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return table.Table{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	switch ext := strings.ToLower(filepath.Ext(s.Path)); ext {
	case ".xlsx", ".xlsm":
		return ReadXLSX(f, s.Sheet)
	case ".csv":
		return ReadCSV(f)
	default:
		return table.Table{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Store writes the table as CSV, replacing any existing file.
func (s Sink) Store(_ context.Context, t table.Table) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	if err := WriteCSV(f, t, s.Options); err != nil {
		return err
	}
	return f.Close()
}
