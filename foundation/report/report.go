// Package report writes experiment results as CSV files. Every row is
// flushed as soon as it is written so an interrupted run keeps the rows it
// already produced.
package report

import (
	"encoding/csv"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Writer writes rows to a results file.
type Writer struct {
	mu      sync.Mutex
	path    string
	columns []string
	file    *os.File
	csv     *csv.Writer
	rows    int
}

// Create creates or truncates <dir>/<name>.csv and writes the header row.
func Create(dir string, name string, columns []string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}

	path := filepath.Join(dir, name+".csv")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create results file %s: %w", path, err)
	}

	w := Writer{
		path:    path,
		columns: columns,
		file:    file,
		csv:     csv.NewWriter(file),
	}

	if err := w.write(columns); err != nil {
		file.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	return &w, nil
}

// Path returns the location of the results file.
func (w *Writer) Path() string {
	return w.path
}

// Columns returns the header of the results file.
func (w *Writer) Columns() []string {
	return w.columns
}

// Rows returns the number of rows written after the header.
func (w *Writer) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.rows
}

// Write formats the values and writes them as a row. The number of values
// must match the number of columns.
func (w *Writer) Write(values ...any) error {
	if len(values) != len(w.columns) {
		return fmt.Errorf("row has %d values, file %s has %d columns", len(values), w.path, len(w.columns))
	}

	row := make([]string, len(values))
	for i, v := range values {
		row[i] = Format(v)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.rows++

	return nil
}

func (w *Writer) write(row []string) error {
	if err := w.csv.Write(row); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

// Close flushes and closes the results file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}

	return w.file.Close()
}

// Format renders a value the way it is written to a results file.
func Format(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case *big.Int:
		if v == nil {
			return ""
		}
		return v.String()
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
