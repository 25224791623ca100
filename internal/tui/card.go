package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

var pillarNames = map[model.Pillar]string{
	model.Inclusion:      "Inclusion",
	model.Accountability: "Responsabilité",
	model.Sustainability: "Durabilité",
}

func pillarName(p model.Pillar) string {
	if name, ok := pillarNames[p]; ok {
		return name
	}
	return string(p)
}

func renderCard(item model.TechnologyItem, width int) string {
	inner := max(width-6, 10)
	lines := []string{
		titleStyle.Render(strings.TrimSpace(item.Icon + " " + item.Name)),
		mutedStyle.Render(item.Category + " · " + pillarName(item.Pillar)),
		"",
	}
	lines = append(lines, wrapText(item.Description, inner)...)
	lines = append(lines, "")
	stats := fmt.Sprintf("Coût : %s · CO₂ : %s · Données : %s", item.Stats.Cost, item.Stats.CO2, item.Stats.DataLocation)
	for _, l := range wrapText(stats, inner) {
		lines = append(lines, accentStyle.Render(l))
	}
	return cardBoxStyle.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
