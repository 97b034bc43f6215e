package flatjson

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

type borderChars struct {
	topLeft, topRight, bottomLeft, bottomRight string
	horizontal, vertical                       string
	topTee, bottomTee, leftTee, rightTee       string
	cross                                      string
}

var borderSets = map[BorderStyle]borderChars{
	BorderRounded: {
		topLeft: "╭", topRight: "╮", bottomLeft: "╰", bottomRight: "╯",
		horizontal: "─", vertical: "│",
		topTee: "┬", bottomTee: "┴", leftTee: "├", rightTee: "┤",
		cross: "┼",
	},
	BorderASCII: {
		topLeft: "+", topRight: "+", bottomLeft: "+", bottomRight: "+",
		horizontal: "-", vertical: "|",
		topTee: "+", bottomTee: "+", leftTee: "+", rightTee: "+",
		cross: "+",
	},
	BorderHeavy: {
		topLeft: "┏", topRight: "┓", bottomLeft: "┗", bottomRight: "┛",
		horizontal: "━", vertical: "┃",
		topTee: "┳", bottomTee: "┻", leftTee: "┣", rightTee: "┫",
		cross: "╋",
	},
	BorderDouble: {
		topLeft: "╔", topRight: "╗", bottomLeft: "╚", bottomRight: "╝",
		horizontal: "═", vertical: "║",
		topTee: "╦", bottomTee: "╩", leftTee: "╠", rightTee: "╣",
		cross: "╬",
	},
}

// tableCellEscaper keeps every row on one terminal line.
var tableCellEscaper = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\r`, "\t", " ")

func writeTable(w io.Writer, t *Table, opts WriteOptions) error {
	if t.Len() == 0 {
		return nil
	}
	var header []string
	if !opts.NoHeader {
		header = escapeTableCells(opts.header(t.Columns))
	}
	recs := t.Records()
	rows := make([][]string, len(recs))
	for i, rec := range recs {
		rows[i] = escapeTableCells(opts.record(i, rec))
	}

	numCols := len(t.Columns)
	if opts.Index {
		numCols++
	}
	widths := computeWidths(numCols, header, rows)
	if opts.MaxWidth > 0 {
		for i := range widths {
			if widths[i] > opts.MaxWidth {
				widths[i] = opts.MaxWidth
			}
		}
	}
	aligns := columnAligns(t, opts)

	if opts.Border == BorderNone {
		return renderPlainTable(w, header, rows, widths, aligns)
	}
	bc, ok := borderSets[opts.Border]
	if !ok {
		return fmt.Errorf("unknown border style %d", opts.Border)
	}
	return renderBorderedTable(w, header, rows, widths, aligns, bc)
}

func escapeTableCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = tableCellEscaper.Replace(c)
	}
	return out
}

// --- Plain table (BorderNone) ---

func renderPlainTable(w io.Writer, header []string, rows [][]string, widths []int, aligns []Alignment) error {
	if len(header) > 0 {
		if err := writePlainRow(w, header, widths, aligns); err != nil {
			return err
		}
		if err := writePlainSep(w, widths); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := writePlainRow(w, row, widths, aligns); err != nil {
			return err
		}
	}
	return nil
}

func writePlainSep(w io.Writer, widths []int) error {
	sep := make([]string, len(widths))
	for i, width := range widths {
		sep[i] = strings.Repeat("-", width)
	}
	_, err := fmt.Fprintln(w, strings.Join(sep, "  "))
	return err
}

func writePlainRow(w io.Writer, cells []string, widths []int, aligns []Alignment) error {
	parts := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = formatTableCell(cell, width, aligns[i])
	}
	line := strings.TrimRight(strings.Join(parts, "  "), " ")
	_, err := fmt.Fprintln(w, line)
	return err
}

// --- Bordered table ---

func renderBorderedTable(w io.Writer, header []string, rows [][]string, widths []int, aligns []Alignment, bc borderChars) error {
	if err := drawHLine(w, widths, bc.topLeft, bc.horizontal, bc.topTee, bc.topRight); err != nil {
		return err
	}
	if len(header) > 0 {
		if err := drawBorderedRow(w, header, widths, aligns, bc.vertical); err != nil {
			return err
		}
		if err := drawHLine(w, widths, bc.leftTee, bc.horizontal, bc.cross, bc.rightTee); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := drawBorderedRow(w, row, widths, aligns, bc.vertical); err != nil {
			return err
		}
	}
	return drawHLine(w, widths, bc.bottomLeft, bc.horizontal, bc.bottomTee, bc.bottomRight)
}

func drawHLine(w io.Writer, widths []int, left, fill, mid, right string) error {
	var sb strings.Builder
	sb.WriteString(left)
	for i, width := range widths {
		sb.WriteString(strings.Repeat(fill, width+2))
		if i < len(widths)-1 {
			sb.WriteString(mid)
		}
	}
	sb.WriteString(right)
	_, err := fmt.Fprintln(w, sb.String())
	return err
}

func drawBorderedRow(w io.Writer, cells []string, widths []int, aligns []Alignment, vert string) error {
	var sb strings.Builder
	sb.WriteString(vert)
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		sb.WriteString(" ")
		sb.WriteString(formatTableCell(cell, width, aligns[i]))
		sb.WriteString(" ")
		if i < len(widths)-1 {
			sb.WriteString(vert)
		}
	}
	sb.WriteString(vert)
	_, err := fmt.Fprintln(w, sb.String())
	return err
}

func formatTableCell(s string, width int, align Alignment) string {
	if width > 0 && runewidth.StringWidth(s) > width {
		if width <= 3 {
			s = runewidth.Truncate(s, width, "")
		} else {
			s = runewidth.Truncate(s, width, "...")
		}
	}
	return alignCell(s, width, align)
}
