// Package render formats acc output as aligned terminal tables, colored when
// the destination is a terminal.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/aicommandcenter/aicc/pkg/ollama"
	"github.com/aicommandcenter/aicc/pkg/routing"
	"github.com/aicommandcenter/aicc/pkg/types"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Printer writes tables to w.
type Printer struct {
	w     io.Writer
	color bool

	header lipgloss.Style
	ok     lipgloss.Style
	bad    lipgloss.Style
	warn   lipgloss.Style
	dim    lipgloss.Style
}

// New returns a Printer. Colors are applied only when color is true.
func New(w io.Writer, color bool) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:      w,
		color:  color,
		header: r.NewStyle().Bold(true),
		ok:     r.NewStyle().Foreground(lipgloss.Color("#36a64f")),
		bad:    r.NewStyle().Foreground(lipgloss.Color("#d32f2f")).Bold(true),
		warn:   r.NewStyle().Foreground(lipgloss.Color("#f2c744")),
		dim:    r.NewStyle().Faint(true),
	}
}

func (p *Printer) paint(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

// Health prints one row per service in fixed order followed by a summary line.
func (p *Printer) Health(agg types.AggregateHealth) error {
	rows := make([][]string, 0, len(types.Services))
	healthy := 0
	for _, id := range types.Services {
		st, _ := agg.Get(id)
		state := p.paint(p.bad, "DOWN")
		if st.Healthy {
			state = p.paint(p.ok, "UP")
			healthy++
		}
		latency := p.paint(p.dim, "-")
		if ms, ok := st.Latency(); ok {
			latency = fmt.Sprintf("%dms", ms)
		}
		rows = append(rows, []string{string(id), st.Service, state, latency, st.Message})
	}

	if err := p.table([]string{"SERVICE", "NAME", "STATE", "LATENCY", "MESSAGE"}, rows); err != nil {
		return err
	}
	summary := fmt.Sprintf("%d/%d healthy", healthy, len(types.Services))
	if healthy < len(types.Services) {
		summary = p.paint(p.bad, summary)
	} else {
		summary = p.paint(p.ok, summary)
	}
	_, err := fmt.Fprintf(p.w, "\n%s\n", summary)
	return err
}

// Validation prints errors and warnings, or "config is valid".
func (p *Printer) Validation(res routing.ValidationResult) error {
	var b strings.Builder
	for _, e := range res.Errors {
		fmt.Fprintf(&b, "%s %s\n", p.paint(p.bad, "error:"), e)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "%s %s\n", p.paint(p.warn, "warning:"), w)
	}
	if res.Valid {
		fmt.Fprintf(&b, "%s\n", p.paint(p.ok, "config is valid"))
	}
	_, err := io.WriteString(p.w, b.String())
	return err
}

// Models prints the installed model inventory.
func (p *Printer) Models(models []ollama.Model) error {
	if len(models) == 0 {
		_, err := fmt.Fprintln(p.w, p.paint(p.dim, "no models installed"))
		return err
	}
	rows := make([][]string, len(models))
	for i, m := range models {
		rows[i] = []string{m.Name, m.ID, m.Size, m.Modified}
	}
	return p.table([]string{"NAME", "ID", "SIZE", "MODIFIED"}, rows)
}

// Lines prints log lines verbatim.
func (p *Printer) Lines(lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(p.w, l); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) table(head []string, rows [][]string) error {
	widths := make([]int, len(head))
	for i, h := range head {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	line := func(cells []string, style func(string) string) {
		for i, cell := range cells {
			text := cell
			if i < len(cells)-1 {
				text += strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2)
			}
			b.WriteString(style(text))
		}
		b.WriteByte('\n')
	}
	line(head, func(s string) string { return p.paint(p.header, s) })
	for _, row := range rows {
		line(row, func(s string) string { return s })
	}
	_, err := io.WriteString(p.w, b.String())
	return err
}
