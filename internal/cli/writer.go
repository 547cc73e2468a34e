// Package cli renders agent and evaluation event streams to a terminal.
package cli

import (
	"fmt"
	"io"
	"os"
)

// StreamingWriter provides utilities for writing streaming content to output
type StreamingWriter struct {
	writer    io.Writer
	colorMode bool
	verbose   bool
}

func NewStreamingWriter(w io.Writer) *StreamingWriter {
	if w == nil {
		w = os.Stdout
	}
	return &StreamingWriter{
		writer:    w,
		colorMode: true,
		verbose:   false,
	}
}

func (sw *StreamingWriter) SetColorMode(enabled bool) {
	sw.colorMode = enabled
}

func (sw *StreamingWriter) SetVerbose(enabled bool) {
	sw.verbose = enabled
}

// Write writes content to the output
func (sw *StreamingWriter) Write(content string) {
	fmt.Fprint(sw.writer, content)
}

// WriteLine writes a line to the output
func (sw *StreamingWriter) WriteLine(content string) {
	fmt.Fprintln(sw.writer, content)
}

// WriteColored writes colored content if color mode is enabled
func (sw *StreamingWriter) WriteColored(content, color string) {
	if sw.colorMode {
		fmt.Fprintf(sw.writer, "%s%s%s", color, content, ColorReset)
	} else {
		fmt.Fprint(sw.writer, content)
	}
}

// Flush ensures all content is written (useful for buffered writers)
func (sw *StreamingWriter) Flush() {
	if flusher, ok := sw.writer.(interface{ Flush() error }); ok {
		flusher.Flush()
	}
}

// ANSI Color codes
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorGray    = "\033[90m"
	ColorBold    = "\033[1m"
)
