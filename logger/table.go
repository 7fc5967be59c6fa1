package logger

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

type Table struct {
	headers []string
	rows    [][]string
	widths  []int
	out     io.Writer
}

func NewTable(headers []string, out io.Writer) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}

	return &Table{
		headers: headers,
		widths:  widths,
		out:     out,
	}
}

// AddRow appends a row, truncating or padding cells to the header count.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)

	for i, cell := range row {
		t.widths[i] = max(t.widths[i], utf8.RuneCountInString(cell))
	}

	t.rows = append(t.rows, row)
}

func (t *Table) border(left, mid, right string) string {
	parts := make([]string, len(t.widths))
	for i, w := range t.widths {
		parts[i] = strings.Repeat("─", w+2)
	}
	return left + strings.Join(parts, mid) + right
}

func (t *Table) line(cells []string) string {
	var sb strings.Builder
	sb.WriteString("│")
	for i, cell := range cells {
		pad := t.widths[i] - utf8.RuneCountInString(cell)
		sb.WriteString(" " + cell + strings.Repeat(" ", pad) + " │")
	}
	return sb.String()
}

func (t *Table) Print() {
	var sb strings.Builder
	sb.WriteString(t.border("┌", "┬", "┐") + "\n")
	sb.WriteString(t.line(t.headers) + "\n")
	sb.WriteString(t.border("├", "┼", "┤") + "\n")
	for _, row := range t.rows {
		sb.WriteString(t.line(row) + "\n")
	}
	sb.WriteString(t.border("└", "┴", "┘") + "\n")
	fmt.Fprint(t.out, sb.String())
}
