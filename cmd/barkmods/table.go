// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// table renders aligned columns. Cells may carry lipgloss styling; widths are
// measured on the visible text.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string, style *lipgloss.Style) {
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			text := cell
			if style != nil {
				text = style.Render(cell)
			}
			sb.WriteString(text)
			if i < len(cells)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(t.headers, &headerCellStyle)
	for _, row := range t.rows {
		writeRow(row, nil)
	}
	_, _ = io.WriteString(w, sb.String())
}
