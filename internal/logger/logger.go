package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Level represents the log level
type Level int

const (
	LevelDebug Level = iota // Debug information (only shown with --verbose)
	LevelInfo               // Important steps
	LevelTool               // Tool call related
	LevelAgent              // Agent reasoning and answers
	LevelError              // Error messages
)

// ANSI color codes for terminal output
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

// Logger provides leveled, colored logging for agent and evaluation runs
type Logger struct {
	writer    io.Writer
	level     Level
	showTime  bool
	colorMode bool
}

// NewLogger creates a new Logger instance
func NewLogger(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stdout
	}
	return &Logger{
		writer:    w,
		level:     level,
		showTime:  true,
		colorMode: true,
	}
}

// SetColorMode enables or disables colored output
func (l *Logger) SetColorMode(enabled bool) {
	l.colorMode = enabled
}

// SetShowTime enables or disables timestamp display
func (l *Logger) SetShowTime(enabled bool) {
	l.showTime = enabled
}

// Debug logs debug information (only shown in verbose mode)
func (l *Logger) Debug(format string, args ...any) {
	if l.level <= LevelDebug {
		l.log(ColorGray, "DEBUG", format, args...)
	}
}

// Info logs general information
func (l *Logger) Info(format string, args ...any) {
	if l.level <= LevelInfo {
		l.log(ColorBlue, "INFO", format, args...)
	}
}

// Error logs error messages
func (l *Logger) Error(format string, args ...any) {
	l.log(ColorRed, "ERROR", format, args...)
}

// Thought logs one reasoning step of the agent
func (l *Logger) Thought(iteration int, thought, action string) {
	if l.level <= LevelAgent && thought != "" {
		header := fmt.Sprintf("💭 Thought (step %d)", iteration)
		if action != "" {
			header += " → " + action
		}
		l.printSection(ColorMagenta, header, thought)
	}
}

// Answer logs the agent's final answer with structured formatting
func (l *Logger) Answer(content string) {
	if l.level <= LevelAgent {
		l.printSection(ColorGreen, "💬 Answer", content)
	}
}

// ToolCall logs a tool call with its arguments
func (l *Logger) ToolCall(toolName string, args string) {
	if l.level <= LevelTool {
		l.printSection(ColorCyan, fmt.Sprintf("🔧 Tool Call: %s", toolName), l.formatJSON(args))
	}
}

// ToolResult logs a tool execution result, truncated for readability
func (l *Logger) ToolResult(toolName string, success bool, output string, duration time.Duration) {
	if l.level <= LevelTool {
		status := "✅ Success"
		color := ColorGreen
		if !success {
			status = "❌ Failed"
			color = ColorRed
		}

		const maxLines = 2
		const maxLength = 500

		lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
		displayOutput := output
		truncatedLines := false

		if len(lines) > maxLines {
			displayOutput = strings.Join(lines[:maxLines], "\n")
			truncatedLines = true
		}

		if len(displayOutput) > maxLength {
			displayOutput = displayOutput[:maxLength] + "..."
		} else if truncatedLines {
			displayOutput += "\n..."
		}

		header := fmt.Sprintf("📊 Tool Result: %s [%s] (%s)", toolName, status, duration.Round(time.Millisecond))
		l.printSection(color, header, displayOutput)
	}
}

// TurnStart logs the beginning of an agent turn
func (l *Logger) TurnStart(query string) {
	l.printBanner(ColorCyan, "🚀 Turn Started", query)
}

// TurnEnd logs the completion of an agent turn with statistics
func (l *Logger) TurnEnd(duration time.Duration, iterations, toolCallCount int) {
	summary := fmt.Sprintf("Duration: %s | Iterations: %d | Tool Calls: %d",
		duration.Round(time.Millisecond), iterations, toolCallCount)
	l.printBanner(ColorGreen, "✨ Turn Completed", summary)
}

// Progress displays a progress bar
func (l *Logger) Progress(current, total int, message string) {
	if l.level > LevelInfo {
		return
	}

	bar := l.progressBar(current, total, 30)
	fmt.Fprintf(l.writer, "\r%s [%d/%d] %s", bar, current, total, message)

	if current == total {
		fmt.Fprintln(l.writer)
	}
}

func (l *Logger) log(color, level, format string, args ...any) {
	timestamp := ""
	if l.showTime {
		timestamp = time.Now().Format("15:04:05") + " "
	}

	msg := fmt.Sprintf(format, args...)

	if l.colorMode {
		fmt.Fprintf(l.writer, "%s%s[%s]%s %s\n",
			color, timestamp, level, ColorReset, msg)
	} else {
		fmt.Fprintf(l.writer, "%s[%s] %s\n", timestamp, level, msg)
	}
}

func (l *Logger) printSection(color, header, content string) {
	separator := strings.Repeat("─", 60)

	if l.colorMode {
		fmt.Fprintf(l.writer, "\n%s%s%s%s\n", ColorBold, color, header, ColorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", color, separator, ColorReset)
		fmt.Fprintf(l.writer, "%s\n", content)
		fmt.Fprintf(l.writer, "%s%s%s\n\n", color, separator, ColorReset)
	} else {
		fmt.Fprintf(l.writer, "\n%s\n%s\n%s\n%s\n\n", header, separator, content, separator)
	}
}

func (l *Logger) printBanner(color, title, subtitle string) {
	separator := strings.Repeat("═", 70)

	if l.colorMode {
		fmt.Fprintf(l.writer, "\n%s%s%s%s\n", ColorBold, color, separator, ColorReset)
		fmt.Fprintf(l.writer, "%s%s  %s%s\n", ColorBold, color, title, ColorReset)
		if subtitle != "" {
			fmt.Fprintf(l.writer, "%s  %s%s\n", color, subtitle, ColorReset)
		}
		fmt.Fprintf(l.writer, "%s%s%s%s\n\n", ColorBold, color, separator, ColorReset)
	} else {
		fmt.Fprintf(l.writer, "\n%s\n  %s\n", separator, title)
		if subtitle != "" {
			fmt.Fprintf(l.writer, "  %s\n", subtitle)
		}
		fmt.Fprintf(l.writer, "%s\n\n", separator)
	}
}

func (l *Logger) progressBar(current, total, width int) string {
	if total == 0 {
		return ""
	}

	percent := float64(current) / float64(total)
	filled := int(percent * float64(width))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	if l.colorMode {
		return fmt.Sprintf("%s%s%s %.0f%%", ColorCyan, bar, ColorReset, percent*100)
	}
	return fmt.Sprintf("%s %.0f%%", bar, percent*100)
}

// formatJSON keeps short JSON compact and pretty-prints long JSON
func (l *Logger) formatJSON(jsonStr string) string {
	compact := strings.TrimSpace(jsonStr)

	if len(compact) < 80 {
		return compact
	}

	var obj interface{}
	if err := json.Unmarshal([]byte(compact), &obj); err != nil {
		return compact
	}

	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return compact
	}

	return string(pretty)
}
