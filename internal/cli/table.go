package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Result is one evaluated assignment.
type Result struct {
	Assignment string
	Accept     bool
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	acceptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	rejectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// WriteResults prints one line per result. With pretty set the output is an
// aligned, colored table for a terminal; otherwise it is tab separated with
// 1 for accept and 0 for reject.
func WriteResults(w io.Writer, results []Result, pretty bool) error {
	if !pretty {
		for _, r := range results {
			v := 0
			if r.Accept {
				v = 1
			}
			if _, err := fmt.Fprintf(w, "%s\t%d\n", r.Assignment, v); err != nil {
				return err
			}
		}
		return nil
	}

	width := len("input")
	for _, r := range results {
		width = max(width, len(r.Assignment))
	}
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%-*s  %s", width, "input", "result")))
	sb.WriteByte('\n')
	for _, r := range results {
		cell := rejectStyle.Render("reject")
		if r.Accept {
			cell = acceptStyle.Render("accept")
		}
		fmt.Fprintf(&sb, "%-*s  %s\n", width, r.Assignment, cell)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
