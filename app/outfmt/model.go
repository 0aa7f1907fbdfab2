package outfmt

import (
	"io"
)

type RenderTable struct {
	Header []string
	Rows   [][]string
	Notes  []string
}

type RatesWriter interface {
	PrintRenderTable(title string, tableModel *RenderTable) error
}

// NewWriter returns the writer for a --format value.
func NewWriter(format string, w io.Writer) (RatesWriter, bool) {
	switch format {
	case "", "text":
		return NewSTDWriter(w), true
	case "csv":
		return NewCSVWriter(w), true
	}
	return nil, false
}
