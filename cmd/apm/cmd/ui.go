package cmd

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
)

// colorEnabled is resolved from --no-color and NO_COLOR before any command
// runs.
var colorEnabled = true

func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

// printSuccess prints a success line unless quiet mode is active.
func printSuccess(format string, args ...any) {
	if quiet {
		return
	}
	fmt.Println(render(styleIconSuccess, iconSuccess) + " " + fmt.Sprintf(format, args...))
}

// printError prints an error line to stderr. Quiet mode never suppresses
// errors.
func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, render(styleIconError, iconError)+" "+fmt.Sprintf(format, args...))
}

// printWarning prints a warning line unless quiet mode is active.
func printWarning(format string, args ...any) {
	if quiet {
		return
	}
	fmt.Println(render(styleIconWarning, iconWarning) + " " + render(styleWarning, fmt.Sprintf(format, args...)))
}

// printInfo prints a status line unless quiet mode is active.
func printInfo(format string, args ...any) {
	if quiet {
		return
	}
	fmt.Println(render(styleIconInfo, iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented secondary line, only in verbose mode.
func printDetail(format string, args ...any) {
	if !verbose {
		return
	}
	fmt.Println("  " + render(styleDim, fmt.Sprintf(format, args...)))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Println(render(keyStyle, key) + " " + render(styleValue, value))
}

// isTerminal reports whether f is attached to a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// spinner is a stderr progress indicator for long-running resolution. The
// message can change while it runs.
type spinner struct {
	mu       sync.Mutex
	message  string
	maxWidth int
	done     chan struct{}
	stopped  chan struct{}
}

func newSpinner(message string) *spinner {
	return &spinner{
		message: message,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (s *spinner) start() {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.mu.Lock()
				line := frames[i%len(frames)] + " " + s.message
				// Pad to the widest line seen so a shorter message fully
				// overwrites its predecessor.
				pad := ""
				if len(line) < s.maxWidth {
					pad = strings.Repeat(" ", s.maxWidth-len(line))
				} else {
					s.maxWidth = len(line)
				}
				fmt.Fprintf(os.Stderr, "\r%s %s%s", render(styleIconSpinner, frames[i%len(frames)]), render(styleDim, s.message), pad)
				s.mu.Unlock()
				i++
			}
		}
	}()
}

func (s *spinner) setMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

func (s *spinner) stop() {
	close(s.done)
	<-s.stopped
	s.mu.Lock()
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", s.maxWidth+1))
	s.mu.Unlock()
}
