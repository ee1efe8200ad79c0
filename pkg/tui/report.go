package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/1F47E/rail-eda/pkg/dataset"
	"github.com/mattn/go-isatty"
)

const barLength = 40

// ANSI color codes
type palette struct {
	reset, red, green, yellow, purple, cyan, bold string
}

var ansi = palette{
	reset:  "\033[0m",
	red:    "\033[31m",
	green:  "\033[32m",
	yellow: "\033[33m",
	purple: "\033[35m",
	cyan:   "\033[36m",
	bold:   "\033[1m",
}

// IsTerminal reports whether f is an interactive terminal
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer writes the dashboard as a plain scrolling report
type Printer struct {
	w io.Writer
	c palette
}

// NewPrinter creates a printer; colors are dropped unless color is set
func NewPrinter(w io.Writer, color bool) *Printer {
	p := &Printer{w: w}
	if color {
		p.c = ansi
	}
	return p
}

// WriteReport prints every tab of the dashboard in order
func (p *Printer) WriteReport(snap *dataset.Snapshot, opts Options, sel Selection) {
	reps := Summarise(snap)
	p.title("Indian Railways EDA Dashboard")
	for _, tab := range Tabs {
		p.WriteTab(tab, snap, reps, opts, sel)
	}
}

// WriteTab prints a single tab
func (p *Printer) WriteTab(tab Tab, snap *dataset.Snapshot, reps Reports, opts Options, sel Selection) {
	fmt.Fprintf(p.w, "\n%s%s== %s ==%s\n", p.c.bold, p.c.purple, tab, p.c.reset)
	for _, sec := range sectionsFor(tab, snap, reps, sel, opts.Center, opts.Reports) {
		p.section(sec)
	}
}

func (p *Printer) title(title string) {
	fmt.Fprintf(p.w, "\n%s%s%s%s\n", p.c.bold, p.c.purple, title, p.c.reset)
	fmt.Fprintln(p.w, strings.Repeat("=", 60))
}

func (p *Printer) section(sec section) {
	fmt.Fprintf(p.w, "\n%s%s%s%s\n", p.c.bold, p.c.cyan, sec.Title, p.c.reset)
	for _, w := range sec.Warnings {
		fmt.Fprintf(p.w, "%s! %s%s\n", p.c.red, w, p.c.reset)
	}
	for _, s := range sec.Stats {
		fmt.Fprintf(p.w, "  %s%s:%s %s%s%s\n", p.c.bold, s.Label, p.c.reset, p.c.yellow, s.Value, p.c.reset)
	}
	for _, c := range sec.Charts {
		p.chart(c)
	}
	for _, l := range sec.Lines {
		fmt.Fprintf(p.w, "  %s\n", l)
	}
}

func (p *Printer) chart(c chart) {
	if len(c.Items) == 0 {
		return
	}
	peak := 0.0
	for _, it := range c.Items {
		peak = max(peak, it.Value)
	}

	fmt.Fprintf(p.w, "\n  %s%s%s\n", p.c.green, c.Title, p.c.reset)
	for _, it := range c.Items {
		frac := 0.0
		if peak > 0 {
			frac = it.Value / peak
		}
		fmt.Fprintf(p.w, "  %-*s %s%s%s %s\n",
			labelWidth, truncate(it.Label, labelWidth), p.c.cyan, bar(frac), p.c.reset, formatValue(it.Value))
	}
}

// bar renders a fraction in [0, 1] as a fixed-width block bar
func bar(frac float64) string {
	filled := int(frac*barLength + 0.5)
	filled = max(0, min(barLength, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", barLength-filled)
}
