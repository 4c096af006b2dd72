package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

func (t *Table) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range t.Rows {
		if err := cw.Write(t.Record(r)); err != nil {
			return fmt.Errorf("failed to write csv row for page %d: %w", r.Page, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
