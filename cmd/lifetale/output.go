package main

import (
	"fmt"
	"os"
)

// All human-facing chatter goes to stderr so that piped stdout stays
// clean JSON or Markdown.
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
)

func tint(code, s string) string {
	if noColor {
		return s
	}
	return code + s + ansiReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stderr, tint(ansiGreen, "ok  ")+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, tint(ansiRed, "err ")+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, tint(ansiYellow, "warn")+" "+fmt.Sprintf(format, args...))
}

// printProgress reports an intermediate step of a long-running command.
func printProgress(format string, args ...any) {
	fmt.Fprintln(os.Stderr, tint(ansiCyan, "... ")+fmt.Sprintf(format, args...))
}

// printField renders one aligned "label  value" line of a status listing.
func printField(label, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s  %s\n", tint(ansiBold, fmt.Sprintf("%-9s", label)), fmt.Sprintf(format, args...))
}
