package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"DailyDigest/internal/domain"
)

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F25D94"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	topicStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginTop(1)

	summaryStyle = lipgloss.NewStyle().
			Width(80).
			PaddingLeft(2)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// renderBriefing formats a briefing for the terminal.
func renderBriefing(b domain.Briefing, key string) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Daily Digest for " + b.Date))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(b.UserID))
	if key != "" {
		sb.WriteString(dimStyle.Render("  " + key))
	}
	sb.WriteString("\n")

	if len(b.Topics) == 0 {
		sb.WriteString("\nNo new articles matching your interests today.\n")
		return sb.String()
	}

	for _, topic := range b.Topics {
		sb.WriteString(topicStyle.Render(topic.Title))
		sb.WriteString("\n")
		sb.WriteString(summaryStyle.Render(topic.Summary))
		sb.WriteString("\n")
		for _, ref := range topic.Articles {
			sb.WriteString("  • " + ref.Title + " " + dimStyle.Render("("+ref.Source+")"))
			sb.WriteString("\n    " + dimStyle.Render(ref.URL) + "\n")
		}
	}
	return sb.String()
}
