// Package stats aggregates and renders play history.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/nirdswipe/internal/model"
	"github.com/verte-zerg/nirdswipe/internal/scoring"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates a list of stored results.
type Summary struct {
	Games             int
	AvgScore          float64
	BestScore         int
	LastScore         int
	TotalPoints       int
	TotalSavingsEuros float64
	TotalSavingsCO2   float64
	AvgDuration       time.Duration
	AvgPillars        [3]float64
}

// Summarize folds results into totals and averages.
func Summarize(results []model.ResultSummary) Summary {
	var sum Summary
	if len(results) == 0 {
		return sum
	}
	sum.Games = len(results)
	sum.BestScore = results[0].OverallScore
	var scoreTotal, durationTotal float64
	for _, r := range results {
		scoreTotal += float64(r.OverallScore)
		durationTotal += float64(r.DurationMs)
		if r.OverallScore > sum.BestScore {
			sum.BestScore = r.OverallScore
		}
		sum.TotalPoints += r.TotalPoints
		sum.TotalSavingsEuros += r.TotalSavingsEuros
		sum.TotalSavingsCO2 += r.TotalSavingsCO2
		for i, p := range model.Pillars {
			sum.AvgPillars[i] += float64(r.PillarScores.Get(p))
		}
	}
	n := float64(len(results))
	sum.AvgScore = scoreTotal / n
	sum.AvgDuration = time.Duration(durationTotal/n) * time.Millisecond
	for i := range sum.AvgPillars {
		sum.AvgPillars[i] /= n
	}
	sum.LastScore = results[len(results)-1].OverallScore
	return sum
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	last := len(sparkChars) - 1
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(last)))
		b.WriteByte(sparkChars[min(max(idx, 0), last)])
	}
	return b.String()
}

// Scores extracts the overall score of each result.
func Scores(results []model.ResultSummary) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = float64(r.OverallScore)
	}
	return out
}

// RenderSummary prints the history summary.
func RenderSummary(w io.Writer, results []model.ResultSummary) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "Aucune partie enregistrée.")
		return err
	}
	sum := Summarize(results)
	lines := []string{
		"Résumé",
		fmt.Sprintf("Parties : %d", sum.Games),
		fmt.Sprintf("Score moyen : %.1f%%", sum.AvgScore),
		fmt.Sprintf("Meilleur score : %d%% (%s)", sum.BestScore, scoring.Label(sum.BestScore)),
		fmt.Sprintf("Dernier score : %d%%", sum.LastScore),
		fmt.Sprintf("Piliers : inclusion %.0f%% · responsabilité %.0f%% · durabilité %.0f%%",
			sum.AvgPillars[0], sum.AvgPillars[1], sum.AvgPillars[2]),
		fmt.Sprintf("Points cumulés : %d", sum.TotalPoints),
		fmt.Sprintf("Économies : %s€ · %skg CO2",
			scoring.FormatNumber(math.Round(sum.TotalSavingsEuros*100)/100),
			scoring.FormatNumber(math.Round(sum.TotalSavingsCO2*100)/100)),
		fmt.Sprintf("Durée moyenne : %s", sum.AvgDuration.Round(time.Second)),
		fmt.Sprintf("Tendance : %s", Sparkline(Scores(results))),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints score curves with default geometry.
func RenderCurves(w io.Writer, results []model.ResultSummary, window int) error {
	return RenderCurvesWithSize(w, results, window, 0, defaultPlotHeight, false)
}

// RenderCurvesWithSize prints the overall and pillar curves sized to a given
// total width.
func RenderCurvesWithSize(w io.Writer, results []model.ResultSummary, window, totalWidth, height int, useColor bool) error {
	if len(results) == 0 {
		return nil
	}
	overall := make([]float64, len(results))
	pillars := make([][]float64, len(model.Pillars))
	for i := range pillars {
		pillars[i] = make([]float64, len(results))
	}
	for i, r := range results {
		overall[i] = float64(r.OverallScore)
		for pi, p := range model.Pillars {
			pillars[pi][i] = float64(r.PillarScores.Get(p))
		}
	}
	opts := PlotOptions{Height: height, Color: useColor}
	if totalWidth > 0 {
		opts.Width = PlotWidthFor(totalWidth)
	}
	if err := PlotSeries(w, "Score NIRD", []Series{
		{Name: "Score", Values: MovingAverage(overall, window)},
	}, PercentScale(opts)); err != nil {
		return err
	}
	return PlotSeries(w, "Piliers", []Series{
		{Name: "Inclusion", Values: MovingAverage(pillars[0], window)},
		{Name: "Responsabilité", Values: MovingAverage(pillars[1], window)},
		{Name: "Durabilité", Values: MovingAverage(pillars[2], window)},
	}, PercentScale(opts))
}

// RenderItemTable prints the items most often answered wrong.
func RenderItemTable(w io.Writer, aggs []model.ItemAggregate, limit int) error {
	rows := WeakItems(aggs, limit)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "Aucune statistique par carte.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Cartes les plus ratées"); err != nil {
		return err
	}
	for _, line := range ItemTableLines(rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// ItemTableLines formats item aggregates as aligned table lines.
func ItemTableLines(aggs []model.ItemAggregate) []string {
	headers := []string{"Carte", "Type", "Erreurs", "Vues", "Taux"}
	rows := make([][]string, 0, len(aggs))
	for _, a := range aggs {
		kind := "NIRD"
		if a.Classification == model.BigTech {
			kind = "Big Tech"
		}
		rows = append(rows, []string{
			a.ItemName,
			kind,
			fmt.Sprintf("%d", a.Wrong),
			fmt.Sprintf("%d", a.Seen),
			fmt.Sprintf("%.0f%%", WrongRate(a)*100),
		})
	}
	return formatTable(headers, rows, map[int]bool{2: true, 3: true, 4: true})
}
