package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"batchenc/internal/deps"
	"batchenc/internal/sequencer"
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

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

// dependencyLines renders one line per tool. A missing required tool is an
// error; a missing optional one only a warning.
func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	var missing []string
	for _, status := range statuses {
		if status.Available {
			message := fmt.Sprintf("%s (%s)", status.Command, status.Source)
			if detail := strings.TrimSpace(status.Detail); detail != "" {
				message += " " + detail
			}
			lines = append(lines, renderStatusLine(status.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(status.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if status.Optional {
			kind = statusWarn
		} else {
			missing = append(missing, status.Name)
		}
		lines = append(lines, renderStatusLine(status.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusError,
			strings.Join(missing, ", ")+" (install ffmpeg, place it in ffmpeg/bin next to batchenc, or set [ffmpeg].binary)", colorize))
	}
	return lines
}

// summaryLine renders the final run result.
func summaryLine(summary sequencer.Summary, colorize bool) string {
	kind := statusOK
	switch {
	case summary.Failed > 0 || summary.Skipped > 0:
		kind = statusError
	case !summary.Clean():
		kind = statusWarn
	}
	message := fmt.Sprintf("%d/%d succeeded, %d failed, %d skipped, %d cancelled in %s",
		summary.Succeeded, summary.Total, summary.Failed, summary.Skipped,
		summary.Cancelled+summary.Dropped, summary.Finished.Sub(summary.Started).Round(time.Second))
	return renderStatusLine(string(summary.Result), kind, message, colorize)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
