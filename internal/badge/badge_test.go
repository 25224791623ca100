package badge

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

func TestBandsCoverEveryScore(t *testing.T) {
	for score := 0; score <= 100; score++ {
		matches := 0
		for _, b := range Bands() {
			if score >= b.Min && score < b.Max {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("score %d matched %d bands", score, matches)
		}
	}
}

func TestBandEdges(t *testing.T) {
	cases := map[int]string{
		0:   BigTechAddict,
		29:  BigTechAddict,
		30:  DigitalDependent,
		49:  DigitalDependent,
		50:  BalancedUser,
		70:  NIRDConscious,
		84:  NIRDConscious,
		85:  NIRDChampion,
		94:  NIRDChampion,
		95:  NIRDMaster,
		100: NIRDMaster,
		-3:  BigTechAddict,
	}
	for score, want := range cases {
		if got := Band(score).ID; got != want {
			t.Fatalf("Band(%d)=%s, want %s", score, got, want)
		}
	}
}

func TestPerfectReport(t *testing.T) {
	report := model.ResultsReport{
		OverallScore: 100,
		PillarScores: model.PillarScores{Inclusion: 100, Accountability: 100, Sustainability: 100},
		DurationMs:   300000,
	}
	if got := Classify(report); got != NIRDMaster {
		t.Fatalf("expected %s, got %s", NIRDMaster, got)
	}
	want := []string{PerfectScore, NIRDPurist, PillarMaster}
	if diff := cmp.Diff(want, ClassifyBonus(report)); diff != "" {
		t.Fatalf("bonus mismatch (-want +got):\n%s", diff)
	}
}

func TestBonusesAreIndependent(t *testing.T) {
	report := model.ResultsReport{
		OverallScore:    60,
		PillarScores:    model.PillarScores{Inclusion: 80, Accountability: 79, Sustainability: 90},
		BigTechAccepted: 2,
		DurationMs:      119999,
	}
	if diff := cmp.Diff([]string{SpeedDemon}, ClassifyBonus(report)); diff != "" {
		t.Fatalf("bonus mismatch (-want +got):\n%s", diff)
	}
	report.DurationMs = SpeedLimitMs
	if got := ClassifyBonus(report); len(got) != 0 {
		t.Fatalf("expected no bonus, got %v", got)
	}
}

func TestClassifyHistory(t *testing.T) {
	reports := []model.ResultsReport{
		{OverallScore: 40},
		{OverallScore: 88, PillarScores: model.PillarScores{Inclusion: 80, Accountability: 85, Sustainability: 99}},
		{OverallScore: 20, DurationMs: 1000},
	}
	got := ClassifyHistory(reports)
	want := History{BestScore: 88, Band: NIRDChampion, Bonuses: []string{PillarMaster}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}

	empty := ClassifyHistory(nil)
	if empty.Band != "" || len(empty.Bonuses) != 0 {
		t.Fatalf("expected empty history, got %+v", empty)
	}
}

func TestLookup(t *testing.T) {
	b, ok := Lookup(SpeedDemon)
	if !ok || b.Name != "Éclair" || b.Kind != KindBonus {
		t.Fatalf("unexpected badge %+v", b)
	}
	if _, ok := Lookup("nope"); ok {
		t.Fatalf("expected unknown badge")
	}
	if len(All()) != 10 {
		t.Fatalf("expected 10 badges, got %d", len(All()))
	}
}
