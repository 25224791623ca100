package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/nirdswipe/internal/badge"
	"github.com/verte-zerg/nirdswipe/internal/catalog"
	"github.com/verte-zerg/nirdswipe/internal/config"
	"github.com/verte-zerg/nirdswipe/internal/model"
	"github.com/verte-zerg/nirdswipe/internal/stats"
	"github.com/verte-zerg/nirdswipe/internal/statsui"
	"github.com/verte-zerg/nirdswipe/internal/store"
)

const defaultItemTableLimit = 15

var (
	statsUser        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool

	catalogPillar   string
	catalogCategory string
	catalogType     string

	badgesUser string
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show game history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsUser, "user", "", "player filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N games")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print to stdout instead of opening the TUI")
	return cmd
}

func parseSince(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --since value: %w", err)
	}
	return &parsed, nil
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	sinceTime, err := parseSince(statsSince)
	if err != nil {
		return err
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow <= 0 {
		return fmt.Errorf("--curve-window must be > 0")
	}

	cfg := model.StatsConfig{
		User:        statsUser,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain {
		report, err := stats.BuildReport(commandContext(cmd), st, cfg)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		return printStats(cmd.OutOrStdout(), report, cfg.CurveWindow)
	}

	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printStats(w io.Writer, report stats.Report, window int) error {
	if err := stats.RenderSummary(w, report.Results); err != nil {
		return err
	}
	if len(report.Results) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if err := stats.RenderCurves(w, report.Results, window); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return stats.RenderItemTable(w, report.ItemAggsAll, defaultItemTableLimit)
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List catalog cards",
		Args:  cobra.NoArgs,
		RunE:  runCatalogCmd,
	}
	cmd.Flags().StringVar(&catalogPillar, "pillar", "", "pillar filter (inclusion, accountability, sustainability)")
	cmd.Flags().StringVar(&catalogCategory, "category", "", "category filter")
	cmd.Flags().StringVar(&catalogType, "type", "", "classification filter (big-tech, nird)")
	cmd.Flags().StringVar(&playCatalog, "catalog", "", "catalog file (.toml or .yaml) replacing the built-in one")
	return cmd
}

func runCatalogCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "catalog", &playCatalog, fileCfg.Game.Catalog)
	cat, err := loadCatalog(playCatalog)
	if err != nil {
		return err
	}
	items, err := filterCatalog(cat, catalogPillar, catalogCategory, catalogType)
	if err != nil {
		return err
	}
	return printCatalog(cmd.OutOrStdout(), cat, items)
}

func filterCatalog(cat *catalog.Catalog, pillar, category, classification string) ([]model.TechnologyItem, error) {
	keep := func(model.TechnologyItem) bool { return true }
	if pillar != "" {
		p, err := model.ParsePillar(pillar)
		if err != nil {
			return nil, fmt.Errorf("invalid --pillar value: %w", err)
		}
		prev := keep
		keep = func(it model.TechnologyItem) bool { return prev(it) && it.Pillar == p }
	}
	if classification != "" {
		cl, err := model.ParseClassification(classification)
		if err != nil {
			return nil, fmt.Errorf("invalid --type value: %w", err)
		}
		prev := keep
		keep = func(it model.TechnologyItem) bool { return prev(it) && it.Classification == cl }
	}
	if category != "" {
		prev := keep
		keep = func(it model.TechnologyItem) bool { return prev(it) && strings.EqualFold(it.Category, category) }
	}
	var out []model.TechnologyItem
	for _, it := range cat.Items() {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

func printCatalog(w io.Writer, cat *catalog.Catalog, items []model.TechnologyItem) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "Aucune carte.")
		return err
	}
	for _, it := range items {
		line := fmt.Sprintf("%-24s %-8s %-14s %-20s %s", it.ID, it.Classification, it.Pillar, it.Category, it.Name)
		if alt, ok := cat.Lookup(it.AlternativeID); ok {
			line += " → " + alt.Name
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newBadgesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badges",
		Short: "Show earned badges",
		Args:  cobra.NoArgs,
		RunE:  runBadgesCmd,
	}
	cmd.Flags().StringVar(&badgesUser, "user", "", "player filter")
	return cmd
}

func runBadgesCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	results, err := st.ListResults(commandContext(cmd), model.StatsConfig{User: badgesUser})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	return printBadges(cmd.OutOrStdout(), stats.HistoryBadges(results))
}

func printBadges(w io.Writer, h badge.History) error {
	earned := map[string]bool{}
	if h.Band != "" {
		earned[h.Band] = true
	}
	for _, id := range h.Bonuses {
		earned[id] = true
	}
	if _, err := fmt.Fprintf(w, "Meilleur score : %d%%\n", h.BestScore); err != nil {
		return err
	}
	for _, b := range badge.All() {
		mark := "·"
		if earned[b.ID] {
			mark = "✓"
		}
		if _, err := fmt.Fprintf(w, "%s %s %s : %s\n", mark, b.Icon, b.Name, b.Description); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
