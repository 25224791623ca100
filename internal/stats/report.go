package stats

import (
	"context"

	"github.com/verte-zerg/nirdswipe/internal/badge"
	"github.com/verte-zerg/nirdswipe/internal/model"
	"github.com/verte-zerg/nirdswipe/internal/store"
)

// Report contains precomputed data for history rendering.
type Report struct {
	Results        []model.ResultSummary
	WindowIDs      []string
	ItemAggsAll    []model.ItemAggregate
	ItemAggsWindow []model.ItemAggregate
	Badges         badge.History
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	results, err := st.ListResults(ctx, cfg)
	if err != nil {
		return Report{}, err
	}

	allIDs := resultIDs(results)
	windowIDs := allIDs
	if cfg.CurveWindow > 0 && len(results) > cfg.CurveWindow {
		windowIDs = resultIDs(results[len(results)-cfg.CurveWindow:])
	}
	aggsAll, err := st.ListItemAggregates(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	aggsWindow, err := st.ListItemAggregates(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Results:        results,
		WindowIDs:      windowIDs,
		ItemAggsAll:    aggsAll,
		ItemAggsWindow: aggsWindow,
		Badges:         HistoryBadges(results),
	}, nil
}

// HistoryBadges evaluates the history badges over stored results.
func HistoryBadges(results []model.ResultSummary) badge.History {
	reports := make([]model.ResultsReport, len(results))
	for i, r := range results {
		reports[i] = r.Report()
	}
	return badge.ClassifyHistory(reports)
}

func resultIDs(results []model.ResultSummary) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}
