// Package cli renders ledger output for the terminal: lipgloss styles, money
// formatting, prompts and progress.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/eling/internal/model"
)

// Palette. Income and expense colors follow every amount the CLI prints.
var (
	AccentColor  = lipgloss.Color("#2A9D8F")
	IncomeColor  = lipgloss.Color("#4ECDC4")
	ExpenseColor = lipgloss.Color("#FF6B6B")
	WarningColor = lipgloss.Color("#FFE66D")
	InfoColor    = lipgloss.Color("#95E1D3")
	MutedColor   = lipgloss.Color("#666666")
	BorderColor  = lipgloss.Color("#333333")
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(AccentColor).MarginBottom(1)
	IncomeStyle  = lipgloss.NewStyle().Foreground(IncomeColor)
	ExpenseStyle = lipgloss.NewStyle().Foreground(ExpenseColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(InfoColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(MutedColor)
	BoldStyle    = lipgloss.NewStyle().Bold(true)
	PromptStyle  = lipgloss.NewStyle().Bold(true).Foreground(AccentColor)

	// BoxStyle frames the summary screen.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)
)

const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	WalletIcon  = "👛"
)

// KindStyle is the income or expense style for kind. Any other value,
// including the empty "any kind" of a pattern rule, is unstyled.
func KindStyle(kind model.Kind) lipgloss.Style {
	switch kind {
	case model.KindIncome:
		return IncomeStyle
	case model.KindExpense:
		return ExpenseStyle
	default:
		return lipgloss.NewStyle()
	}
}

// FormatKind prints kind in its color, or "any" for an empty kind.
func FormatKind(kind model.Kind) string {
	if kind == "" {
		return SubtleStyle.Render("any")
	}
	return KindStyle(kind).Render(string(kind))
}

func FormatSuccess(message string) string {
	return IncomeStyle.Render(SuccessIcon + " " + message)
}

func FormatError(message string) string {
	return ExpenseStyle.Render(ErrorIcon + " " + message)
}

func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle prefixes a section title with the wallet icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(WalletIcon + " " + title)
}

func FormatPrompt(prompt string) string {
	return PromptStyle.Render(prompt + " → ")
}

// RenderBox draws content under a bold title inside a rounded border.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}
