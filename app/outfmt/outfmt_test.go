package outfmt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleTable() *RenderTable {
	return &RenderTable{
		Header: []string{"Currency", "Per EUR"},
		Rows:   [][]string{{"EUR", "1"}, {"USD", "1.1"}},
		Notes:  []string{"2 currencies"},
	}
}

func TestCSVWriter(t *testing.T) {
	rq := require.New(t)

	var buf bytes.Buffer
	rq.Nil(NewCSVWriter(&buf).PrintRenderTable("Reference rates", sampleTable()))
	rq.Equal("Currency,Per EUR\nEUR,1\nUSD,1.1\n", buf.String())
}

func TestSTDWriter(t *testing.T) {
	rq := require.New(t)

	var buf bytes.Buffer
	rq.Nil(NewSTDWriter(&buf).PrintRenderTable("Reference rates", sampleTable()))
	out := buf.String()
	rq.True(strings.HasPrefix(out, "Reference rates\n"), out)
	rq.Contains(out, "Currency")
	rq.Contains(out, "USD")
	rq.Contains(out, "1.1")
	rq.True(strings.HasSuffix(out, "2 currencies\n"), out)
}

func TestNewWriter(t *testing.T) {
	rq := require.New(t)

	var buf bytes.Buffer
	w, ok := NewWriter("text", &buf)
	rq.True(ok)
	rq.IsType(&STDWriter{}, w)
	w, ok = NewWriter("csv", &buf)
	rq.True(ok)
	rq.IsType(&CSVWriter{}, w)
	_, ok = NewWriter("xml", &buf)
	rq.False(ok)
}
