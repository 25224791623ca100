package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/nirdswipe/internal/badge"
	"github.com/verte-zerg/nirdswipe/internal/model"
	"github.com/verte-zerg/nirdswipe/internal/scoring"
)

const barWidth = 20

func tierStyle(score int) lipgloss.Style {
	switch scoring.TierFor(score) {
	case scoring.TierGood:
		return goodStyle
	case scoring.TierFair:
		return accentStyle
	default:
		return badStyle
	}
}

func scoreBar(score int) string {
	filled := max(0, min(barWidth, score*barWidth/100))
	return tierStyle(score).Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
}

func renderResults(r model.ResultsReport, earned string, bonuses []string, width int) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	wrapped := func(prefix, s string) {
		for i, l := range wrapText(s, width-len([]rune(prefix))) {
			if i == 0 {
				line(prefix + l)
			} else {
				line(strings.Repeat(" ", len([]rune(prefix))) + l)
			}
		}
	}

	line(titleStyle.Render(fmt.Sprintf("Score NIRD : %d%%", r.OverallScore)) + "  " + tierStyle(r.OverallScore).Render(scoring.Label(r.OverallScore)))
	if bd, ok := badge.Lookup(earned); ok {
		line(accentStyle.Render(bd.Icon+" "+bd.Name) + mutedStyle.Render(" · "+bd.Description))
	}
	for _, id := range bonuses {
		if bd, ok := badge.Lookup(id); ok {
			line(goodStyle.Render(bd.Icon+" "+bd.Name) + mutedStyle.Render(" · "+bd.Description))
		}
	}
	line("")

	for _, p := range model.Pillars {
		score := r.PillarScores.Get(p)
		line(fmt.Sprintf("%-15s %s %3d%%", pillarName(p), scoreBar(score), score))
	}
	line("")

	line(fmt.Sprintf("Choix corrects : %d/%d  ·  Points : %d  ·  Durée : %s",
		r.CorrectChoices, r.TotalCards, r.TotalPoints, formatDuration(r.DurationMs)))
	line(fmt.Sprintf("Big Tech gardés : %d  ·  Alternatives NIRD adoptées : %d", r.BigTechAccepted, r.SovereignAccepted))
	if r.TotalSavingsEuros > 0 || r.TotalSavingsCO2 > 0 {
		line(goodStyle.Render(fmt.Sprintf("Économies : %s €/an  ·  %s kg CO₂/an",
			scoring.FormatNumber(r.TotalSavingsEuros), scoring.FormatNumber(r.TotalSavingsCO2))))
	}

	if len(r.WrongAnswers) > 0 {
		line("")
		line(titleStyle.Render(fmt.Sprintf("À revoir (%d)", len(r.WrongAnswers))))
		for _, w := range r.WrongAnswers {
			line("")
			line(badStyle.Render(strings.TrimSpace(w.Icon+" "+w.ItemName)) + mutedStyle.Render(" · "+w.Category))
			wrapped("  ", w.Explanation)
			if w.Consequence != "" {
				wrapped("  ", w.Consequence)
			}
			wrapped("  → ", w.CorrectAction)
			if w.Alternative != nil && w.Alternative.Savings != nil {
				line(goodStyle.Render("    " + scoring.Impact(w.Alternative.Savings)))
			}
		}
	}

	if len(r.Recommendations) > 0 {
		line("")
		line(titleStyle.Render("Plan d'action"))
		for _, rec := range r.Recommendations {
			line(accentStyle.Render(strings.TrimSpace(rec.Icon + " " + rec.Title)))
			wrapped("  ", rec.Description)
			if rec.Impact != "" {
				line(goodStyle.Render("  " + rec.Impact))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
