// Package main provides the CLI entrypoint for nirdswipe.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/nirdswipe/internal/catalog"
	"github.com/verte-zerg/nirdswipe/internal/config"
	"github.com/verte-zerg/nirdswipe/internal/draw"
	"github.com/verte-zerg/nirdswipe/internal/logging"
	"github.com/verte-zerg/nirdswipe/internal/model"
	"github.com/verte-zerg/nirdswipe/internal/remote"
	"github.com/verte-zerg/nirdswipe/internal/scoring"
	"github.com/verte-zerg/nirdswipe/internal/session"
	"github.com/verte-zerg/nirdswipe/internal/store"
	"github.com/verte-zerg/nirdswipe/internal/tui"
)

const (
	defaultCards       = draw.DefaultCount
	defaultAPITimeout  = remote.DefaultTimeout
	defaultCurveWindow = 5
)

var (
	playCards      int
	playSeed       int64
	playAPIURL     string
	playAPITimeout time.Duration
	playAPIToken   string
	playSubmit     bool
	playCatalog    string
	playUser       string
	playNew        bool
	playNoPersist  bool

	logLevel string
	logFile  string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nirdswipe",
		Short:         "Swipe quiz on digital sovereignty (Big Tech vs NIRD)",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.Flags().IntVar(&playCards, "cards", defaultCards, "cards per game")
	rootCmd.Flags().Int64Var(&playSeed, "seed", 0, "random seed for the local draw (0: time based)")
	rootCmd.Flags().StringVar(&playAPIURL, "api-url", "", "cards/results API base URL (empty: offline)")
	rootCmd.Flags().DurationVar(&playAPITimeout, "api-timeout", defaultAPITimeout, "timeout for API calls")
	rootCmd.Flags().StringVar(&playAPIToken, "api-token", "", "bearer token for authenticated submissions")
	rootCmd.Flags().BoolVar(&playSubmit, "submit", false, "submit results to the API")
	rootCmd.Flags().StringVar(&playCatalog, "catalog", "", "catalog file (.toml or .yaml) replacing the built-in one")
	rootCmd.Flags().StringVar(&playUser, "user", "", "player name recorded in the local history")
	rootCmd.Flags().BoolVar(&playNew, "new", false, "discard the saved game and start a new one")
	rootCmd.Flags().BoolVar(&playNoPersist, "no-persist", false, "do not save or resume unfinished games")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logging.DefaultLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file (default: XDG state dir)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newBadgesCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTokenCmd())

	return rootCmd
}

func loadFileConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	return fileCfg, nil
}

func applyGameConfig(cmd *cobra.Command, game config.GameConfig) {
	applyIntConfig(cmd, "cards", &playCards, game.Cards)
	applyInt64Config(cmd, "seed", &playSeed, game.Seed)
	applyStringConfig(cmd, "api-url", &playAPIURL, game.APIURL)
	applyDurationConfig(cmd, "api-timeout", &playAPITimeout, game.APITimeout)
	applyStringConfig(cmd, "api-token", &playAPIToken, game.APIToken)
	applyBoolConfig(cmd, "submit", &playSubmit, game.Submit)
	applyStringConfig(cmd, "catalog", &playCatalog, game.Catalog)
	applyStringConfig(cmd, "user", &playUser, game.User)
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyGameConfig(cmd, fileCfg.Game)

	cfg := model.Config{
		Cards:       playCards,
		Seed:        playSeed,
		APIURL:      playAPIURL,
		APITimeout:  playAPITimeout,
		APIToken:    playAPIToken,
		Submit:      playSubmit,
		CatalogPath: playCatalog,
		User:        playUser,
		NewGame:     playNew,
		NoPersist:   playNoPersist,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file.
	path := logFile
	if path == "" {
		path = config.DefaultLogPath()
	}
	logger, err := logging.New(logLevel, path)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
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

	var client *remote.Client
	if cfg.APIURL != "" {
		client = remote.NewClient(cfg.APIURL, cfg.APIToken, &http.Client{Timeout: cfg.APITimeout}, logger)
	}
	dealer := newDealer(cfg, client, logger)

	var keeper *session.Keeper
	if !cfg.NoPersist {
		keeper = &session.Keeper{Slot: st, Logger: logger}
	}

	ctx := commandContext(cmd)
	sess, err := startSession(ctx, cfg, cat, keeper, dealer, logger)
	if err != nil {
		return err
	}

	opts := tui.Options{
		User:          cfg.User,
		History:       st,
		SubmitTimeout: cfg.APITimeout,
		Logger:        logger,
		Deal: func() []model.TechnologyItem {
			hand, _ := dealer.Deal(context.Background(), cat.Items(), cfg.Cards)
			return hand
		},
	}
	if cfg.Submit && client != nil {
		opts.Submitter = client
	}

	engine := scoring.New(cat.Notes(), cat)
	program := tea.NewProgram(tui.NewModel(sess, keeper, engine, opts), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		cat, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load built-in catalog: %w", err)
		}
		return cat, nil
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return cat, nil
}

func newDealer(cfg model.Config, client *remote.Client, logger *zap.Logger) *draw.Dealer {
	drawer := draw.New()
	if cfg.Seed != 0 {
		drawer = draw.NewSeeded(cfg.Seed)
	}
	dealer := &draw.Dealer{Drawer: drawer, Timeout: cfg.APITimeout, Logger: logger}
	if client != nil {
		dealer.Source = client
	}
	return dealer
}

// startSession resumes the saved game when allowed, otherwise deals a new one.
func startSession(ctx context.Context, cfg model.Config, cat *catalog.Catalog, keeper *session.Keeper, dealer *draw.Dealer, logger *zap.Logger) (*session.Session, error) {
	if cfg.NewGame {
		keeper.Reset(ctx)
	} else if keeper != nil {
		sess, err := keeper.Resume(ctx, cat, nil)
		switch {
		case err == nil:
			logger.Info("resumed saved game", zap.String("session", sess.ID()), zap.Int("index", sess.Index()))
			return sess, nil
		case errors.Is(err, session.ErrNoSession):
		default:
			logger.Warn("failed to resume saved game", zap.Error(err))
		}
	}

	hand, origin := dealer.Deal(ctx, cat.Items(), cfg.Cards)
	if len(hand) == 0 {
		return nil, fmt.Errorf("no cards to play")
	}
	logger.Info("dealt new game", zap.String("origin", string(origin)), zap.Int("cards", len(hand)))
	return session.Start(hand, nil), nil
}

func validateConfig(cfg model.Config) error {
	if cfg.Cards <= 0 {
		return fmt.Errorf("--cards must be > 0")
	}
	if cfg.APITimeout <= 0 {
		return fmt.Errorf("--api-timeout must be > 0")
	}
	if cfg.Submit && cfg.APIURL == "" {
		return fmt.Errorf("--submit requires --api-url")
	}
	if cfg.NewGame && cfg.NoPersist {
		return fmt.Errorf("--new and --no-persist are mutually exclusive")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
