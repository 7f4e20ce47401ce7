package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Course", "Classmates"},
		Rows: []map[string]string{
			{"Course": "Algebra", "Classmates": "Tomás, Lucía"},
			{"Course": "Biology"},
		},
		Widths: map[string]float64{"Classmates": 3},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "Course,Classmates\nAlgebra,\"Tomás, Lucía\"\nBiology,\n", string(out[len(utf8BOM):]))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := sampleDataset()
	for i := 0; i < 80; i++ {
		data.Rows = append(data.Rows, map[string]string{"Course": "Filler"})
	}
	out, err := NewPDFExporter().Render(data, "Study load")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths(sampleDataset())
	require.Len(t, widths, 2)
	assert.InDelta(t, pageWidth/4, widths[0], 0.001)
	assert.InDelta(t, pageWidth*3/4, widths[1], 0.001)
}
