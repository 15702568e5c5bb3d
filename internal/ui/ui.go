// Package ui renders CLI output. Styled output is reserved for real
// terminals; pipes and CI logs get plain text.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// IsTTY reports whether stdout is an interactive terminal.
func IsTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Printer writes user-facing output, styling it only for terminals.
type Printer struct {
	out    io.Writer
	styled bool
}

// NewPrinter creates a printer for the given writer. Styling applies
// only when writing to stdout on a terminal.
func NewPrinter(out io.Writer) *Printer {
	styled := false
	if out == os.Stdout {
		styled = IsTTY()
	}
	return &Printer{out: out, styled: styled}
}

func (p *Printer) render(style lipgloss.Style, msg string) string {
	if p.styled {
		return style.Render(msg)
	}
	return msg
}

// Title prints a bold heading.
func (p *Printer) Title(format string, args ...any) {
	fmt.Fprintln(p.out, p.render(titleStyle, fmt.Sprintf(format, args...)))
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.out, p.render(successStyle, fmt.Sprintf(format, args...)))
}

// Error prints a failure line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.out, p.render(errorStyle, fmt.Sprintf(format, args...)))
}

// Warn prints a caution line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.out, p.render(warnStyle, fmt.Sprintf(format, args...)))
}

// Info prints a plain informational line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Muted prints a low-emphasis line.
func (p *Printer) Muted(format string, args ...any) {
	fmt.Fprintln(p.out, p.render(mutedStyle, fmt.Sprintf(format, args...)))
}
