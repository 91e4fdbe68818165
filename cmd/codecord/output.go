package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// output writes CLI messages. Colors follow color.NoColor, which fatih/color
// sets automatically when stdout is not a terminal.
type output struct {
	out io.Writer
	err io.Writer

	success *color.Color
	failure *color.Color
	warning *color.Color
	info    *color.Color
	muted   *color.Color
}

func newOutput(out, err io.Writer) *output {
	return &output{
		out:     out,
		err:     err,
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		warning: color.New(color.FgYellow),
		info:    color.New(color.FgCyan),
		muted:   color.New(color.FgHiBlack),
	}
}

// Print writes an uncolored line to stdout.
func (o *output) Print(format string, args ...any) {
	fmt.Fprintf(o.out, format+"\n", args...)
}

// Success writes a green line prefixed with a check mark to stdout.
func (o *output) Success(format string, args ...any) {
	o.success.Fprintf(o.out, "✓ "+format+"\n", args...)
}

// Failure writes a red line prefixed with a cross to stderr.
func (o *output) Failure(format string, args ...any) {
	o.failure.Fprintf(o.err, "✗ "+format+"\n", args...)
}

// Warning writes a yellow line to stderr.
func (o *output) Warning(format string, args ...any) {
	o.warning.Fprintf(o.err, "! "+format+"\n", args...)
}

// Info writes a cyan line to stderr.
func (o *output) Info(format string, args ...any) {
	o.info.Fprintf(o.err, format+"\n", args...)
}

// Muted writes a dim line to stdout.
func (o *output) Muted(format string, args ...any) {
	o.muted.Fprintf(o.out, format+"\n", args...)
}

// Field writes an aligned "label  value" line to stdout.
func (o *output) Field(label, format string, args ...any) {
	o.muted.Fprintf(o.out, "%-11s", label)
	fmt.Fprintf(o.out, format+"\n", args...)
}
