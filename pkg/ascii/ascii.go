// Package ascii renders boxes and aligned tables for terminal output.
// Widths are display widths, so CJK and accented dates keep columns aligned.
package ascii

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Box builds a box containing the provided lines and returns it as a string.
// Lines are left-aligned with single-space padding on each side.
func Box(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	trimmed := make([]string, len(lines))
	maxWidth := 0
	for i, line := range lines {
		trimmed[i] = strings.TrimRight(line, " ")
		if w := StringWidth(trimmed[i]); w > maxWidth {
			maxWidth = w
		}
	}

	border := strings.Repeat("─", maxWidth+2)

	var sb strings.Builder
	sb.WriteString("┌" + border + "┐\n")
	for _, line := range trimmed {
		sb.WriteString("│ " + Pad(line, maxWidth) + " │\n")
	}
	sb.WriteString("└" + border + "┘\n")
	return sb.String()
}

// Table lays out rows under headers in columns separated by two spaces, with a
// dashed rule under the header row. Cells wider than maxCell (when > 0) are
// truncated with an ellipsis. Trailing spaces are trimmed from every line.
func Table(headers []string, rows [][]string, maxCell int) string {
	cols := len(headers)
	cell := func(row []string, i int) string {
		if i >= len(row) {
			return ""
		}
		if maxCell > 0 {
			return Truncate(row[i], maxCell)
		}
		return row[i]
	}

	widths := make([]int, cols)
	for i, h := range headers {
		widths[i] = StringWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < cols; i++ {
			if w := StringWidth(cell(row, i)); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	writeLine := func(values []string) {
		var line strings.Builder
		for i := 0; i < cols; i++ {
			if i > 0 {
				line.WriteString("  ")
			}
			line.WriteString(Pad(cell(values, i), widths[i]))
		}
		sb.WriteString(strings.TrimRight(line.String(), " ") + "\n")
	}

	writeLine(headers)
	rule := make([]string, cols)
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	writeLine(rule)
	for _, row := range rows {
		writeLine(row)
	}
	return sb.String()
}

// Pad right-fills s with spaces up to width display columns.
func Pad(s string, width int) string {
	fill := width - StringWidth(s)
	if fill <= 0 {
		return s
	}
	return s + strings.Repeat(" ", fill)
}

// Truncate shortens value so its display width fits within width. An ellipsis
// ("...") is appended when truncation occurs and there is space for it.
func Truncate(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return substringWithWidth(value, width)
	}
	return substringWithWidth(value, width-3) + "..."
}

func substringWithWidth(s string, target int) string {
	if target <= 0 {
		return ""
	}
	width := 0
	var sb strings.Builder
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if width+w > target {
			break
		}
		width += w
		sb.WriteRune(r)
	}
	return sb.String()
}

// StringWidth returns the display width of a string.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}
