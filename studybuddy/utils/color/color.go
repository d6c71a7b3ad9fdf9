// studybuddy/utils/color/color.go
package color

import (
	"github.com/fatih/color"
)

var (
	promptColor    = color.New(color.FgCyan, color.Bold)
	infoColor      = color.New(color.FgGreen)
	warningColor   = color.New(color.FgYellow, color.Bold)
	errorColor     = color.New(color.FgRed, color.Bold)
	assistantColor = color.New(color.FgHiBlue, color.Bold)
	companionColor = color.New(color.FgHiMagenta, color.Bold)
)

func ColorPrompt(s string) string {
	return promptColor.Sprint(s)
}

func ColorInfo(s string) string {
	return infoColor.Sprint(s)
}

func ColorWarning(s string) string {
	return warningColor.Sprint(s)
}

func ColorError(s string) string {
	return errorColor.Sprint(s)
}

// ColorSpeaker labels a reply with the assistant's or Pebble's color.
func ColorSpeaker(name string, companion bool) string {
	if companion {
		return companionColor.Sprint(name)
	}
	return assistantColor.Sprint(name)
}

// Disable turns colors off, e.g. when output is not a terminal.
func Disable() {
	color.NoColor = true
}
