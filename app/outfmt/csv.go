package outfmt

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVWriter writes the table only; the title and notes are dropped so the
// output stays machine readable.
type CSVWriter struct {
	w io.Writer
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: w}
}

// PrintRenderTable implements RatesWriter.
func (w *CSVWriter) PrintRenderTable(title string, tableModel *RenderTable) error {
	csvWriter := csv.NewWriter(w.w)

	if err := csvWriter.Write(tableModel.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range tableModel.Rows {
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
