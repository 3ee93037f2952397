package main

import (
	"context"
	"fmt"
	"io"

	"github.com/haatos/simple-release/internal/release"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// consoleReporter prints one line per pipeline transition.
type consoleReporter struct {
	out   io.Writer
	color bool
}

func (r *consoleReporter) Report(_ context.Context, step release.Step, status release.Status, message string) {
	label, color := "....", colorYellow
	switch status {
	case release.StatusDone:
		label, color = "done", colorGreen
	case release.StatusFailed:
		label, color = "FAIL", colorRed
	}
	if r.color {
		label = color + label + colorReset
	}
	if message == "" {
		fmt.Fprintf(r.out, "[%s] %s\n", label, step)
		return
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", label, step, message)
}
