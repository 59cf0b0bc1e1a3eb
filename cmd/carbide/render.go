package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"carbide/internal/diag"
	"carbide/internal/source"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	noteColor    = color.New(color.FgBlue)
)

// renderDiagnostics prints the bag in source order, with line excerpts and
// carets when the span is resolvable.
func renderDiagnostics(w io.Writer, bag *diag.Bag, fset *source.FileSet, colored bool) {
	bag.Sort()
	bag.Dedup()
	for _, d := range bag.Items() {
		renderDiagnostic(w, d, fset, colored)
	}
}

func renderDiagnostic(w io.Writer, d diag.Diagnostic, fset *source.FileSet, colored bool) {
	sev := d.Severity.String()
	if colored {
		switch d.Severity {
		case diag.SevError:
			sev = errorColor.Sprint(sev)
		case diag.SevWarning:
			sev = warningColor.Sprint(sev)
		default:
			sev = infoColor.Sprint(sev)
		}
	}
	fmt.Fprintf(w, "%s: %s[%s]: %s\n", location(fset, d.Primary), sev, d.Code, d.Message)
	renderExcerpt(w, fset, d.Primary)
	for _, n := range d.Notes {
		label := "note"
		if colored {
			label = noteColor.Sprint(label)
		}
		fmt.Fprintf(w, "  %s: %s\n", label, n.Msg)
	}
	if d.Suggestion != "" {
		fmt.Fprintf(w, "  help: %s\n", d.Suggestion)
	}
}

func location(fset *source.FileSet, sp source.Span) string {
	file := fset.Get(sp.File)
	if file == nil {
		return "<unknown>"
	}
	line, col := file.LineCol(sp.Start)
	return fmt.Sprintf("%s:%d:%d", file.Path, line, col)
}

func renderExcerpt(w io.Writer, fset *source.FileSet, sp source.Span) {
	file := fset.Get(sp.File)
	if file == nil || sp.Empty() && sp.Start == 0 {
		return
	}
	line, col := file.LineCol(sp.Start)
	text := file.LineText(line)
	if text == "" {
		return
	}
	fmt.Fprintf(w, "  %s\n", text)
	width := int(sp.Len())
	if width < 1 {
		width = 1
	}
	if int(col)-1+width > len(text) {
		width = len(text) - int(col) + 1
	}
	if width < 1 {
		return
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", int(col)-1), strings.Repeat("^", width))
}
