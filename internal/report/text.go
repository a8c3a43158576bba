package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	prefixStyle = color.New(color.FgHiCyan, color.Bold)
	keepStyle   = color.New(color.FgHiGreen, color.Bold)
	dropStyle   = color.New(color.FgHiYellow, color.Bold)
	infoStyle   = color.New(color.FgHiWhite)
	subtleStyle = color.New(color.FgHiBlack)
	errorStyle  = color.New(color.FgHiRed, color.Bold)
)

// Prefix tags every human-readable line.
func Prefix() string {
	return prefixStyle.Sprint("[rotate-backups]")
}

func writeText(w io.Writer, r Report) error {
	ew := &errWriter{w: w}
	for _, t := range r.Targets {
		writeTarget(ew, t)
	}

	var kept, discarded, deleted, failed int
	for _, t := range r.Targets {
		kept += t.Kept
		discarded += t.Discarded
		deleted += len(t.Deleted)
		failed += len(t.Failures)
		if t.Error != "" {
			failed++
		}
	}
	summary := fmt.Sprintf("%d location(s): kept %d, discarded %d, deleted %d, failed %d", len(r.Targets), kept, discarded, deleted, failed)
	if r.Failed {
		ew.printf("%s %s %s\n", Prefix(), errorStyle.Sprint("FAILED"), infoStyle.Sprint(summary))
	} else {
		ew.printf("%s %s %s\n", Prefix(), keepStyle.Sprint("OK"), infoStyle.Sprint(summary))
	}
	return ew.err
}

func writeTarget(ew *errWriter, t Target) {
	header := t.Location
	if t.DryRun {
		header += " " + subtleStyle.Sprint("(dry run)")
	}
	ew.printf("%s %s\n", Prefix(), infoStyle.Sprint(header))

	if t.Error != "" {
		ew.printf("  %s %s\n", errorStyle.Sprintf("%-14s", "error"), t.Error)
		return
	}

	discardVerb := "discard"
	if t.DryRun {
		discardVerb = "would discard"
	}
	for _, d := range t.Decisions {
		label, style := "keep", keepStyle
		if d.Action != "keep" {
			label, style = discardVerb, dropStyle
		}
		ew.printf("  %s %s %s\n", style.Sprintf("%-14s", label), d.Name, subtleStyle.Sprintf("(%s)", strings.Join(d.Reasons, ", ")))
	}
	for _, ex := range t.Excluded {
		ew.printf("  %s %s %s\n", subtleStyle.Sprintf("%-14s", "excluded"), ex.Name, subtleStyle.Sprintf("(%s)", ex.Reason))
	}
	for _, f := range t.Failures {
		ew.printf("  %s %s: %s\n", errorStyle.Sprintf("%-14s", "delete failed"), f.Name, f.Error)
	}
	if t.Discarded == 0 {
		ew.printf("  %s\n", subtleStyle.Sprint("nothing to do"))
	}
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
