package logger

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Table logs rows as an aligned text table under a single record.
// total is the number of rows before truncation; at most maxRows rows are rendered.
func Table(log Logger, level LogLevel, msg string, header []string, rows [][]string, total, maxRows int) {
	if log == nil {
		return
	}

	shown := rows
	if maxRows > 0 && len(shown) > maxRows {
		shown = shown[:maxRows]
	}

	log.Log(level, msg,
		Int("rows", total),
		Int("shown", len(shown)),
		String("table", RenderTable(header, shown)))
}

// RenderTable formats header and rows as a pipe-separated table.
func RenderTable(header []string, rows [][]string) string {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 1, ' ', tabwriter.Debug)

	writeRow := func(cells []string) {
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	writeRow(header)
	sep := make([]string, len(header))
	for i, h := range header {
		sep[i] = strings.Repeat("-", len(h))
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}

	_ = tw.Flush()
	return strings.TrimRight(sb.String(), "\n")
}
