package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slipDataset() Dataset {
	return Dataset{
		Title:    "Course Registration Slip",
		Preamble: [][2]string{{"Student", "STU-2023-001"}},
		Headers:  []string{"Course", "Name", "Credits"},
		Rows: []map[string]string{
			{"Course": "CS101", "Name": "Introduction to Programming, Part I", "Credits": "3"},
			{"Course": "MA201", "Name": "Linear Algebra", "Credits": "4"},
		},
		Summary: [][2]string{{"Total credits", "7"}},
	}
}

func TestCSVRenderLayout(t *testing.T) {
	out, err := NewCSVExporter().Render(slipDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Student,STU-2023-001", lines[0])
	assert.Equal(t, "Course,Name,Credits", lines[1])
	assert.Equal(t, `CS101,"Introduction to Programming, Part I",3`, lines[2])
	assert.Equal(t, "", lines[4])
	assert.Equal(t, "Total credits,7", lines[5])
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter(nil).Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter(map[string]float64{"Name": 3}).Render(slipDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := NewPDFExporter(map[string]float64{"Name": 2}).columnWidths([]string{"Course", "Name", "Credits"})
	assert.InDelta(t, 47.5, widths[0], 1e-9)
	assert.InDelta(t, 95.0, widths[1], 1e-9)
	assert.InDelta(t, pageWidth, widths[0]+widths[1]+widths[2], 1e-9)
}
