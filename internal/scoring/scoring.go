// Package scoring turns a finished session into a results report.
package scoring

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

// MaxRecommendations caps the recommendation list.
const MaxRecommendations = 5

// TrainingThreshold is the overall score below which training is suggested.
const TrainingThreshold = 50

var trainingRecommendation = model.Recommendation{
	Title:       "Formation NIRD recommandée",
	Description: "Sensibilisez votre équipe aux enjeux de souveraineté numérique",
	Impact:      "Amélioration +20% du score",
	Icon:        "📖",
}

// Lookup resolves items outside the drawn hand.
type Lookup interface {
	Lookup(id string) (model.TechnologyItem, bool)
}

// Engine scores sessions. It holds no mutable state and is safe to share.
type Engine struct {
	notes    map[string]model.Note
	fallback Lookup
}

// New returns an Engine. Alternatives missing from the drawn hand are looked
// up in fallback, which may be nil.
func New(notes map[string]model.Note, fallback Lookup) *Engine {
	copied := make(map[string]model.Note, len(notes))
	for id, n := range notes {
		copied[id] = n
	}
	return &Engine{notes: copied, fallback: fallback}
}

type tally struct {
	correct int
	total   int
}

// Score computes the report. Choices whose item is not in items are skipped;
// the function never fails and is deterministic for identical input. A
// session with no resolvable choice gets no recommendations at all.
func (e *Engine) Score(items []model.TechnologyItem, choices []model.Choice, startedAt, completedAt time.Time) model.ResultsReport {
	byID := make(map[string]model.TechnologyItem, len(items))
	for _, item := range items {
		if _, dup := byID[item.ID]; !dup {
			byID[item.ID] = item
		}
	}

	report := model.ResultsReport{
		TotalCards:      len(choices),
		WrongAnswers:    []model.WrongAnswer{},
		Recommendations: []model.Recommendation{},
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
		DurationMs:      completedAt.Sub(startedAt).Milliseconds(),
	}
	tallies := map[model.Pillar]*tally{}
	for _, p := range model.Pillars {
		tallies[p] = &tally{}
	}
	var keptBigTech []model.TechnologyItem
	resolved := 0

	for _, choice := range choices {
		item, ok := byID[choice.ItemID]
		if !ok {
			continue
		}
		t, ok := tallies[item.Pillar]
		if !ok {
			t = &tally{}
			tallies[item.Pillar] = t
		}
		t.total++
		resolved++
		report.TotalPoints += choice.PointsEarned

		switch {
		case item.Classification == model.BigTech && !choice.Accepted:
			t.correct++
			if alt, ok := e.alternative(item, byID); ok {
				e.credit(&report, alt.Savings)
			}
		case item.Classification != model.BigTech && choice.Accepted:
			t.correct++
			report.SovereignAccepted++
			e.credit(&report, item.Savings)
		case item.Classification == model.BigTech:
			report.BigTechAccepted++
			keptBigTech = append(keptBigTech, item)
			report.WrongAnswers = append(report.WrongAnswers, e.keptBigTech(item, byID))
		default:
			report.WrongAnswers = append(report.WrongAnswers, e.rejectedSovereign(item))
		}
	}

	for _, p := range model.Pillars {
		t := tallies[p]
		report.PillarScores.Set(p, percent(t.correct, t.total))
		report.CorrectChoices += t.correct
	}
	report.OverallScore = int(math.Round(float64(
		report.PillarScores.Inclusion+report.PillarScores.Accountability+report.PillarScores.Sustainability) / 3))

	for _, item := range keptBigTech {
		alt, ok := e.alternative(item, byID)
		if !ok || alt.Savings == nil {
			continue
		}
		report.Recommendations = append(report.Recommendations, model.Recommendation{
			Title:       fmt.Sprintf("Remplacer %s par %s", item.Name, alt.Name),
			Description: alt.Description,
			Impact:      Impact(alt.Savings),
			Icon:        alt.Icon,
		})
	}
	if resolved > 0 && report.OverallScore < TrainingThreshold {
		report.Recommendations = append(report.Recommendations, trainingRecommendation)
	}
	if len(report.Recommendations) > MaxRecommendations {
		report.Recommendations = report.Recommendations[:MaxRecommendations]
	}
	return report
}

func (e *Engine) alternative(item model.TechnologyItem, byID map[string]model.TechnologyItem) (model.TechnologyItem, bool) {
	if item.AlternativeID == "" {
		return model.TechnologyItem{}, false
	}
	if alt, ok := byID[item.AlternativeID]; ok {
		return alt, true
	}
	if e.fallback != nil {
		return e.fallback.Lookup(item.AlternativeID)
	}
	return model.TechnologyItem{}, false
}

func (e *Engine) credit(report *model.ResultsReport, s *model.Savings) {
	report.TotalSavingsEuros += s.EurosOrZero()
	report.TotalSavingsCO2 += s.CO2OrZero()
}

func (e *Engine) keptBigTech(item model.TechnologyItem, byID map[string]model.TechnologyItem) model.WrongAnswer {
	note, ok := e.notes[item.ID]
	if !ok {
		note = model.Note{
			Explanation: fmt.Sprintf("%s est un service Big Tech qui collecte vos données.", item.Name),
			Consequence: "Dépendance à un service étranger sans contrôle sur vos données.",
		}
	}
	wa := model.WrongAnswer{
		ItemID:         item.ID,
		ItemName:       item.Name,
		Classification: item.Classification,
		Kind:           model.KeptBigTech,
		Category:       item.Category,
		Icon:           item.Icon,
		Explanation:    note.Explanation,
		Consequence:    note.Consequence,
		CorrectAction:  "Remplacer par une alternative NIRD",
		Stats:          item.Stats,
	}
	if alt, ok := e.alternative(item, byID); ok {
		wa.CorrectAction = "Remplacer par " + alt.Name
		wa.Alternative = &model.AlternativeSummary{
			Name:        alt.Name,
			Description: alt.Description,
			Icon:        alt.Icon,
			Savings:     alt.Savings,
		}
	}
	return wa
}

func (e *Engine) rejectedSovereign(item model.TechnologyItem) model.WrongAnswer {
	note, ok := e.notes[item.ID]
	if !ok {
		note = model.Note{
			Explanation: fmt.Sprintf("%s est une solution souveraine et respectueuse.", item.Name),
			Consequence: "Vous avez manqué une opportunité d'indépendance numérique.",
		}
	}
	return model.WrongAnswer{
		ItemID:         item.ID,
		ItemName:       item.Name,
		Classification: item.Classification,
		Kind:           model.RejectedSovereign,
		Category:       item.Category,
		Icon:           item.Icon,
		Explanation:    note.Explanation,
		Consequence:    note.Consequence,
		CorrectAction:  fmt.Sprintf("Garder %s - c'est une alternative NIRD souveraine", item.Name),
		Stats:          item.Stats,
	}
}

func percent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// Impact formats savings, preferring euros when present and non-zero.
func Impact(s *model.Savings) string {
	if s == nil {
		return ""
	}
	if s.Euros != nil && *s.Euros != 0 {
		return FormatNumber(*s.Euros) + "€/an économisés"
	}
	return FormatNumber(s.CO2OrZero()) + "kg CO2 évités"
}

// FormatNumber prints a number without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
