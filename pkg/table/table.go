// Package table turns per-page text into a fixed-column table and serializes it.
//
// Columns are always PageNo, Text and, when the table carries annotations,
// Annotation. Rows keep the order they were added in.
package table

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Column headers
const (
	ColumnPage       = "PageNo"
	ColumnBlockType  = "BlockType"
	ColumnText       = "Text"
	ColumnAnnotation = "Annotation"
)

// ErrUnsupportedFormat is returned for output formats other than CSV and XLSX.
var ErrUnsupportedFormat = errors.New("unsupported table format")

// Format is a serialization format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a name to a Format. The empty string selects CSV.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Extension returns the file extension for the format including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// Row is one output line
type Row struct {
	Page       int
	BlockType  string // Only written by block tables
	Text       string
	Annotation string // Only written when the table has annotations
}

// Table is an ordered set of rows with a fixed column layout
type Table struct {
	Annotations bool // Adds the Annotation column
	BlockTypes  bool // Adds the BlockType column between PageNo and Text
	Rows        []Row
}

// Header returns the column names in output order
func (t *Table) Header() []string {
	header := []string{ColumnPage}
	if t.BlockTypes {
		header = append(header, ColumnBlockType)
	}
	header = append(header, ColumnText)
	if t.Annotations {
		header = append(header, ColumnAnnotation)
	}
	return header
}

// Record returns the cells of a row in output order
func (t *Table) Record(r Row) []string {
	record := []string{strconv.Itoa(r.Page)}
	if t.BlockTypes {
		record = append(record, r.BlockType)
	}
	record = append(record, r.Text)
	if t.Annotations {
		record = append(record, r.Annotation)
	}
	return record
}

// SortByPage orders rows by page number. Rows of the same page keep their
// relative order.
func (t *Table) SortByPage() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].Page < t.Rows[j].Page
	})
}

// Encode writes the table to w in the given format
func (t *Table) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatCSV:
		return t.writeCSV(w)
	case FormatXLSX:
		return t.writeXLSX(w)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
