package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/nirdswipe/internal/catalog"
	"github.com/verte-zerg/nirdswipe/internal/model"
)

var (
	start = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	end   = start.Add(90 * time.Second)
)

func floatPtr(v float64) *float64 { return &v }

func pairItems() []model.TechnologyItem {
	return []model.TechnologyItem{
		{ID: "x", Name: "X", Classification: model.BigTech, Pillar: model.Inclusion, AlternativeID: "y", Icon: "x-icon"},
		{ID: "y", Name: "Y", Classification: model.Sovereign, Pillar: model.Inclusion, AlternativeID: "x",
			Description: "Y is sovereign", Icon: "y-icon",
			Savings: &model.Savings{Euros: floatPtr(10), CO2Kg: floatPtr(5)}},
	}
}

func choice(id string, cl model.Classification, accepted bool) model.Choice {
	item := model.TechnologyItem{ID: id, Classification: cl}
	points := 0
	switch {
	case cl == model.BigTech && !accepted:
		points = 10
	case cl == model.Sovereign && accepted:
		points = 15
	case cl == model.Sovereign:
		points = -5
	}
	return model.Choice{ItemID: item.ID, ItemClassification: cl, Accepted: accepted, PointsEarned: points}
}

func TestScoreAllCorrectDoubleCreditsSavings(t *testing.T) {
	e := New(nil, nil)
	report := e.Score(pairItems(), []model.Choice{
		choice("x", model.BigTech, false),
		choice("y", model.Sovereign, true),
	}, start, end)

	if report.OverallScore != 33 {
		// Only the inclusion pillar has cards; the other two are zero-filled.
		t.Fatalf("expected overall 33, got %d", report.OverallScore)
	}
	if report.PillarScores.Inclusion != 100 {
		t.Fatalf("expected inclusion 100, got %d", report.PillarScores.Inclusion)
	}
	if report.TotalSavingsEuros != 20 || report.TotalSavingsCO2 != 10 {
		t.Fatalf("expected savings 20€/10kg, got %v/%v", report.TotalSavingsEuros, report.TotalSavingsCO2)
	}
	if report.CorrectChoices != 2 || report.TotalCards != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.TotalPoints != 25 {
		t.Fatalf("expected 25 points, got %d", report.TotalPoints)
	}
	if report.DurationMs != 90000 {
		t.Fatalf("expected 90000ms, got %d", report.DurationMs)
	}
	if len(report.WrongAnswers) != 0 {
		t.Fatalf("expected no wrong answers, got %d", len(report.WrongAnswers))
	}
	// overall < 50 still triggers the training recommendation.
	if len(report.Recommendations) != 1 || report.Recommendations[0].Title != trainingRecommendation.Title {
		t.Fatalf("unexpected recommendations: %+v", report.Recommendations)
	}
}

func TestScoreSinglePillarPerfect(t *testing.T) {
	items := pairItems()
	items = append(items,
		model.TechnologyItem{ID: "a", Classification: model.BigTech, Pillar: model.Accountability},
		model.TechnologyItem{ID: "b", Classification: model.Sovereign, Pillar: model.Sustainability},
	)
	report := New(nil, nil).Score(items, []model.Choice{
		choice("x", model.BigTech, false),
		choice("y", model.Sovereign, true),
		choice("a", model.BigTech, false),
		choice("b", model.Sovereign, true),
	}, start, end)
	if report.OverallScore != 100 {
		t.Fatalf("expected overall 100, got %d", report.OverallScore)
	}
	if len(report.Recommendations) != 0 {
		t.Fatalf("expected no recommendations, got %+v", report.Recommendations)
	}
}

func TestScoreAllWrong(t *testing.T) {
	notes := map[string]model.Note{"x": {Explanation: "x tracks you", Consequence: "data leaves"}}
	report := New(notes, nil).Score(pairItems(), []model.Choice{
		choice("x", model.BigTech, true),
		choice("y", model.Sovereign, false),
	}, start, end)

	if report.OverallScore != 0 || report.TotalSavingsEuros != 0 || report.TotalSavingsCO2 != 0 {
		t.Fatalf("unexpected totals: %+v", report)
	}
	if report.BigTechAccepted != 1 || report.SovereignAccepted != 0 {
		t.Fatalf("unexpected accepted counts: %+v", report)
	}
	want := []model.WrongAnswer{
		{
			ItemID:         "x",
			ItemName:       "X",
			Classification: model.BigTech,
			Kind:           model.KeptBigTech,
			Icon:           "x-icon",
			Explanation:    "x tracks you",
			Consequence:    "data leaves",
			CorrectAction:  "Remplacer par Y",
			Alternative: &model.AlternativeSummary{
				Name:        "Y",
				Description: "Y is sovereign",
				Icon:        "y-icon",
				Savings:     &model.Savings{Euros: floatPtr(10), CO2Kg: floatPtr(5)},
			},
		},
		{
			ItemID:         "y",
			ItemName:       "Y",
			Classification: model.Sovereign,
			Kind:           model.RejectedSovereign,
			Icon:           "y-icon",
			Explanation:    "Y est une solution souveraine et respectueuse.",
			Consequence:    "Vous avez manqué une opportunité d'indépendance numérique.",
			CorrectAction:  "Garder Y - c'est une alternative NIRD souveraine",
		},
	}
	if diff := cmp.Diff(want, report.WrongAnswers); diff != "" {
		t.Fatalf("wrong answers mismatch (-want +got):\n%s", diff)
	}
	wantRecs := []model.Recommendation{
		{Title: "Remplacer X par Y", Description: "Y is sovereign", Impact: "10€/an économisés", Icon: "y-icon"},
		trainingRecommendation,
	}
	if diff := cmp.Diff(wantRecs, report.Recommendations); diff != "" {
		t.Fatalf("recommendations mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreEmpty(t *testing.T) {
	report := New(nil, nil).Score(nil, nil, start, start)
	if report.OverallScore != 0 || report.PillarScores != (model.PillarScores{}) {
		t.Fatalf("expected zero scores, got %+v", report)
	}
	if len(report.WrongAnswers) != 0 || report.TotalCards != 0 || report.CorrectChoices != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	if report.WrongAnswers == nil || len(report.Recommendations) != 0 {
		t.Fatalf("expected empty non-nil lists, got %+v", report)
	}
}

func TestScoreSkipsUnresolvedChoices(t *testing.T) {
	report := New(nil, nil).Score(pairItems(), []model.Choice{
		choice("ghost", model.BigTech, true),
		choice("x", model.BigTech, false),
	}, start, end)
	if report.TotalCards != 2 {
		t.Fatalf("totalCards counts all choices, got %d", report.TotalCards)
	}
	if report.CorrectChoices != 1 || len(report.WrongAnswers) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestOverallIsMeanOfPillars(t *testing.T) {
	items := []model.TechnologyItem{{ID: "i1", Classification: model.Sovereign, Pillar: model.Inclusion}}
	var choices []model.Choice
	choices = append(choices, choice("i1", model.Sovereign, true))
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("s%d", i)
		items = append(items, model.TechnologyItem{ID: id, Classification: model.BigTech, Pillar: model.Sustainability})
		choices = append(choices, choice(id, model.BigTech, i < 2))
	}
	report := New(nil, nil).Score(items, choices, start, end)
	if report.PillarScores.Inclusion != 100 || report.PillarScores.Sustainability != 75 || report.PillarScores.Accountability != 0 {
		t.Fatalf("unexpected pillars: %+v", report.PillarScores)
	}
	if report.OverallScore != 58 {
		t.Fatalf("expected round((100+0+75)/3)=58, got %d", report.OverallScore)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	cat := catalog.MustDefault()
	items := cat.Items()[:12]
	var choices []model.Choice
	for i, item := range items {
		choices = append(choices, choice(item.ID, item.Classification, i%3 == 0))
	}
	e := New(cat.Notes(), cat)
	a, err := json.Marshal(e.Score(items, choices, start, end))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(e.Score(items, choices, start, end))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("reports differ:\n%s\n%s", a, b)
	}
}

func TestRecommendationsCappedInOrder(t *testing.T) {
	var items []model.TechnologyItem
	var choices []model.Choice
	for i := 0; i < 7; i++ {
		bt := fmt.Sprintf("bt%d", i)
		alt := fmt.Sprintf("alt%d", i)
		items = append(items,
			model.TechnologyItem{ID: bt, Name: bt, Classification: model.BigTech, Pillar: model.Inclusion, AlternativeID: alt},
		)
		items = append(items, model.TechnologyItem{ID: alt, Name: alt, Classification: model.Sovereign,
			Savings: &model.Savings{Euros: floatPtr(float64(100 - i))}})
		choices = append(choices, choice(bt, model.BigTech, true))
	}
	report := New(nil, nil).Score(items, choices, start, end)
	if len(report.Recommendations) != MaxRecommendations {
		t.Fatalf("expected %d recommendations, got %d", MaxRecommendations, len(report.Recommendations))
	}
	for i, rec := range report.Recommendations {
		want := fmt.Sprintf("Remplacer bt%d par alt%d", i, i)
		if rec.Title != want {
			t.Fatalf("recommendation %d: expected %q, got %q", i, want, rec.Title)
		}
	}
}

func TestAlternativeFallsBackToCatalog(t *testing.T) {
	cat := catalog.MustDefault()
	gmail, _ := cat.Lookup("gmail")
	report := New(cat.Notes(), cat).Score([]model.TechnologyItem{gmail}, []model.Choice{
		choice("gmail", model.BigTech, false),
	}, start, end)
	if report.TotalSavingsEuros != 2 {
		t.Fatalf("expected protonmail savings from catalog, got %v", report.TotalSavingsEuros)
	}
	without := New(nil, nil).Score([]model.TechnologyItem{gmail}, []model.Choice{
		choice("gmail", model.BigTech, false),
	}, start, end)
	if without.TotalSavingsEuros != 0 {
		t.Fatalf("expected no savings without a fallback, got %v", without.TotalSavingsEuros)
	}
}

func TestImpact(t *testing.T) {
	cases := []struct {
		savings *model.Savings
		want    string
	}{
		{&model.Savings{Euros: floatPtr(7), CO2Kg: floatPtr(30)}, "7€/an économisés"},
		{&model.Savings{CO2Kg: floatPtr(12.5)}, "12.5kg CO2 évités"},
		{&model.Savings{Euros: floatPtr(0), CO2Kg: floatPtr(3)}, "3kg CO2 évités"},
	}
	for _, c := range cases {
		if got := Impact(c.savings); got != c.want {
			t.Fatalf("Impact()=%q, want %q", got, c.want)
		}
	}
}

func TestLabelAndTier(t *testing.T) {
	if Label(85) != "Excellent ! 🎉" || Label(10) != "Big Tech dépendant 😱" {
		t.Fatalf("unexpected labels")
	}
	if TierFor(70) != TierGood || TierFor(40) != TierFair || TierFor(39) != TierPoor {
		t.Fatalf("unexpected tiers")
	}
}
