package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"reawwise/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var statusKinds = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// labelWidth fits the longest check name ("Originals directory").
const labelWidth = 20

// statusStyle formats the aligned "label: [KIND] detail" lines shared by
// status and watch.
type statusStyle struct {
	colorize bool
}

func styleFor(w io.Writer) statusStyle {
	file, ok := w.(*os.File)
	if !ok {
		return statusStyle{}
	}
	fd := file.Fd()
	return statusStyle{colorize: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)}
}

func (s statusStyle) paint(color, line string) string {
	if !s.colorize || color == "" {
		return line
	}
	return color + line + ansiReset
}

func (s statusStyle) line(label string, kind statusKind, detail string) string {
	k := statusKinds[kind]
	badge := "[" + k.label + "]"
	if detail != "" {
		badge += " " + detail
	}
	return s.paint(k.color, fmt.Sprintf("  %-*s %s", labelWidth, label+":", badge))
}

// check renders a preflight result. Failures use failKind so optional checks
// can downgrade to a warning.
func (s statusStyle) check(result preflight.Result, failKind statusKind) string {
	kind := statusOK
	if !result.Passed {
		kind = failKind
	}
	return s.line(result.Name, kind, result.Detail)
}

func (s statusStyle) header(title string) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	return []string{s.paint(ansiBlue, line), s.paint(ansiBlue, strings.Repeat("-", len(line)))}
}
