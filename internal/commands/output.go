package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/bit2swaz/rotate-backups/internal/report"
)

var (
	infoStyle  = color.New(color.FgHiWhite)
	warnStyle  = color.New(color.FgHiMagenta, color.Bold)
	errorStyle = color.New(color.FgHiRed, color.Bold)
)

func prefix() string {
	return report.Prefix()
}

func logInfo(out io.Writer, message string) {
	fmt.Fprintf(out, "%s %s\n", prefix(), infoStyle.Sprint(message))
}

func logWarning(errOut io.Writer, message string) {
	fmt.Fprintf(errOut, "%s %s %s\n", prefix(), warnStyle.Sprint("WARN"), infoStyle.Sprint(message))
}

func logError(errOut io.Writer, err error) {
	fmt.Fprintf(errOut, "%s %s %v\n", prefix(), errorStyle.Sprint("ERROR"), err)
}
