package outfmt

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

type STDWriter struct {
	w io.Writer
}

func NewSTDWriter(w io.Writer) *STDWriter {
	return &STDWriter{
		w: w,
	}
}

// PrintRenderTable implements RatesWriter.
func (w *STDWriter) PrintRenderTable(title string, tableModel *RenderTable) error {
	if _, err := fmt.Fprintf(w.w, "%s\n", title); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w.w)
	table.SetHeader(tableModel.Header)
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, row := range tableModel.Rows {
		table.Append(row)
	}

	table.Render()

	for _, note := range tableModel.Notes {
		fmt.Fprintln(w.w, note)
	}
	return nil
}
