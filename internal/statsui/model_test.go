package statsui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/nirdswipe/internal/model"
	"github.com/verte-zerg/nirdswipe/internal/store"
)

func seedStore(t *testing.T, scores []int) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "nirdswipe.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	ctx := context.Background()
	for i, score := range scores {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
		end := start.Add(time.Minute)
		report := model.ResultsReport{
			OverallScore: score,
			PillarScores: model.PillarScores{Inclusion: score, Accountability: score, Sustainability: score},
			TotalPoints:  10,
			StartedAt:    start,
			CompletedAt:  end,
			DurationMs:   end.Sub(start).Milliseconds(),
		}
		choices := []model.Choice{
			{ItemID: "gmail", ItemName: "Gmail", ItemClassification: model.BigTech, Accepted: i%2 == 0, Timestamp: end},
			{ItemID: "jitsi", ItemName: "Jitsi", ItemClassification: model.Sovereign, Accepted: true, Timestamp: end},
		}
		if err := st.InsertResult(ctx, fmt.Sprintf("r%d", i), "alice", report, choices); err != nil {
			t.Fatalf("insert result: %v", err)
		}
	}
	return st
}

func sized(m *Model) *Model {
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	return m
}

func TestTabsRenderHistory(t *testing.T) {
	m := sized(NewModel(seedStore(t, []int{40, 100, 70}), model.StatsConfig{CurveWindow: 1}))

	out := m.View()
	for _, want := range []string{"Vue d'ensemble", "Parties", "Score NIRD"} {
		if !strings.Contains(out, want) {
			t.Fatalf("overview missing %q", want)
		}
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabItems {
		t.Fatalf("expected items tab")
	}
	out = m.View()
	if !strings.Contains(out, "Gmail") || !strings.Contains(out, "Jitsi") {
		t.Fatalf("items tab missing rows")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	out = m.View()
	if !strings.Contains(out, "Meilleur score : 100%") || !strings.Contains(out, "✓ 👑 Maître NIRD") {
		t.Fatalf("badges tab missing earned badge")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabOverview {
		t.Fatalf("tabs must wrap around")
	}
}

func TestEmptyHistory(t *testing.T) {
	m := sized(NewModel(seedStore(t, nil), model.StatsConfig{CurveWindow: 1}))
	if !strings.Contains(m.View(), "Aucune partie trouvée.") {
		t.Fatalf("expected empty overview")
	}
	if got := renderBadges(m.report.Badges); !strings.Contains(got, "Aucun badge") {
		t.Fatalf("expected empty badge collection: %s", got)
	}
}

func TestItemRowsSortedByWrongRate(t *testing.T) {
	rows := itemRows([]model.ItemAggregate{
		{ItemID: "jitsi", ItemName: "Jitsi", Classification: model.Sovereign, Seen: 3},
		{ItemID: "gmail", ItemName: "Gmail", Classification: model.BigTech, Seen: 3, Wrong: 2},
	})
	if len(rows) != 2 || rows[0][0] != "Gmail" || rows[0][1] != "Big Tech" || rows[0][4] != "67%" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestFilterMode(t *testing.T) {
	m := sized(NewModel(seedStore(t, []int{40, 100, 70}), model.StatsConfig{CurveWindow: 1}))
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !m.filterMode || !strings.Contains(m.filterInputs[0].Value(), "q") {
		t.Fatalf("q must be typed into the filter, not quit")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.filterMode {
		t.Fatalf("esc must leave filter mode")
	}
}

func TestParseFilter(t *testing.T) {
	cfg, err := parseFilter(" alice ", "2024-01-02", "3", "5")
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cfg.User != "alice" || cfg.Last != 3 || cfg.CurveWindow != 5 || cfg.Since == nil {
		t.Fatalf("unexpected config %+v", cfg)
	}
	cfg, err = parseFilter("", "", "", "")
	if err != nil || cfg.CurveWindow != 1 || cfg.Since != nil {
		t.Fatalf("unexpected defaults %+v %v", cfg, err)
	}
	for _, bad := range [][4]string{
		{"", "01/02/2024", "", ""},
		{"", "", "-1", ""},
		{"", "", "", "0"},
	} {
		if _, err := parseFilter(bad[0], bad[1], bad[2], bad[3]); err == nil {
			t.Fatalf("expected error for %v", bad)
		}
	}
}

func TestCurveWindowSteps(t *testing.T) {
	cases := []struct{ in, next, prev int }{
		{1, 5, 1},
		{5, 10, 1},
		{7, 10, 5},
		{10, 15, 5},
	}
	for _, c := range cases {
		if got := nextCurveWindow(c.in); got != c.next {
			t.Fatalf("next(%d) = %d, want %d", c.in, got, c.next)
		}
		if got := prevCurveWindow(c.in); got != c.prev {
			t.Fatalf("prev(%d) = %d, want %d", c.in, got, c.prev)
		}
	}
}
