// Package ui renders the short status lines printed by the service commands.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	PrimaryColor = lipgloss.Color("#5B9BD5")
	SuccessColor = lipgloss.Color("#2ECC71")
	WarningColor = lipgloss.Color("#F1C40F")
	ErrorColor   = lipgloss.Color("#E74C3C")
	TextColor    = lipgloss.Color("#FFFFFF")
	SubtextColor = lipgloss.Color("#B0B0B0")
	MutedColor   = lipgloss.Color("#6C6C6C")
)

var (
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	WhiteStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	BorderStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SectionTitleStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true)

	BulletStyle    = lipgloss.NewStyle().Foreground(PrimaryColor)
	KeyStyle       = lipgloss.NewStyle().Foreground(TextColor)
	ValueStyle     = lipgloss.NewStyle().Foreground(SubtextColor)
	SeparatorStyle = lipgloss.NewStyle().Foreground(MutedColor)
)

const (
	IconSuccess = "✓"
	IconWarning = "⚠"
	IconError   = "✗"
	IconInfo    = "ℹ"
	IconBullet  = "•"
)

// DefaultWidth is the width of section frames
const DefaultWidth = 60

// RenderStatus returns a styled status message
func RenderStatus(status, message string) string {
	var icon string
	var style lipgloss.Style

	switch status {
	case "success":
		icon, style = IconSuccess, SuccessStyle
	case "warning":
		icon, style = IconWarning, WarningStyle
	case "error":
		icon, style = IconError, ErrorStyle
	default:
		icon, style = IconInfo, InfoStyle
	}

	return "  " + style.Render(icon) + " " + WhiteStyle.Render(message)
}

// PrintStatus writes a styled status line to w
func PrintStatus(w io.Writer, status, message string) {
	fmt.Fprintln(w, RenderStatus(status, message))
}

// RenderKeyValue returns a styled key-value pair
func RenderKeyValue(key, value string) string {
	return "  " + BulletStyle.Render(IconBullet) + " " +
		KeyStyle.Render(key) + " " +
		SeparatorStyle.Render(":") + " " +
		ValueStyle.Render(value)
}

// RenderSectionStart returns a styled section header
func RenderSectionStart(title string) string {
	dashCount := DefaultWidth - len(title) - 4 // "┌─ " + title + " ─"
	if dashCount < 0 {
		dashCount = 0
	}

	prefix := BorderStyle.Render("┌─ ")
	suffix := BorderStyle.Render(" ─" + strings.Repeat("─", dashCount) + "┐")
	return prefix + SectionTitleStyle.Render(title) + suffix
}

// RenderSectionEnd returns a styled section footer
func RenderSectionEnd() string {
	return BorderStyle.Render("└" + strings.Repeat("─", DefaultWidth) + "┘")
}
