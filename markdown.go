package flatjson

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

var markdownEscaper = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>", "\r", "<br>")

func writeMarkdown(w io.Writer, t *Table, opts WriteOptions) error {
	if t.Len() == 0 {
		return nil
	}
	header := escapeMarkdown(opts.header(t.Columns))
	recs := t.Records()
	rows := make([][]string, len(recs))
	for i, rec := range recs {
		rows[i] = escapeMarkdown(opts.record(i, rec))
	}
	numCols := len(header)

	// Minimum width 3 leaves room for alignment markers.
	widths := computeWidths(numCols, header, rows)
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}
	aligns := columnAligns(t, opts)

	if err := writeMarkdownRow(w, header, widths, aligns); err != nil {
		return err
	}

	sep := make([]string, numCols)
	for i, width := range widths {
		switch aligns[i] {
		case AlignRight:
			sep[i] = strings.Repeat("-", width-1) + ":"
		case AlignCenter:
			sep[i] = ":" + strings.Repeat("-", width-2) + ":"
		default:
			sep[i] = strings.Repeat("-", width)
		}
	}
	if _, err := fmt.Fprintf(w, "| %s |\n", strings.Join(sep, " | ")); err != nil {
		return err
	}

	for _, row := range rows {
		if err := writeMarkdownRow(w, row, widths, aligns); err != nil {
			return err
		}
	}
	return nil
}

func escapeMarkdown(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = markdownEscaper.Replace(c)
	}
	return out
}

func writeMarkdownRow(w io.Writer, cells []string, widths []int, aligns []Alignment) error {
	padded := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		padded[i] = alignCell(cell, width, aligns[i])
	}
	_, err := fmt.Fprintf(w, "| %s |\n", strings.Join(padded, " | "))
	return err
}

// columnAligns right-aligns numeric columns and the index column.
func columnAligns(t *Table, opts WriteOptions) []Alignment {
	var aligns []Alignment
	if opts.Index {
		aligns = append(aligns, AlignRight)
	}
	for _, numeric := range t.numericColumns() {
		if numeric {
			aligns = append(aligns, AlignRight)
		} else {
			aligns = append(aligns, AlignLeft)
		}
	}
	return aligns
}

func computeWidths(numCols int, header []string, rows [][]string) []int {
	widths := make([]int, numCols)
	for i, h := range header {
		if w := runewidth.StringWidth(h); i < numCols && w > widths[i] {
			widths[i] = w
		}
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); i < numCols && w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func alignCell(s string, width int, align Alignment) string {
	pad := width - runewidth.StringWidth(s)
	if pad <= 0 {
		return s
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", pad) + s
	case AlignCenter:
		left := pad / 2
		right := pad - left
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
	default:
		return s + strings.Repeat(" ", pad)
	}
}
