package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/nirdswipe/internal/config"
	"github.com/verte-zerg/nirdswipe/internal/logging"
	"github.com/verte-zerg/nirdswipe/internal/model"
	"github.com/verte-zerg/nirdswipe/internal/server"
	"github.com/verte-zerg/nirdswipe/internal/store"
)

const (
	defaultListen     = ":8000"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var (
	serveListen      string
	serveJWTSecret   string
	serveTokenTTL    time.Duration
	serveCORSOrigins []string
	serveDB          string

	tokenUser      string
	tokenTTL       time.Duration
	tokenJWTSecret string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cards and results API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveListen, "listen", defaultListen, "listen address")
	cmd.Flags().StringVar(&serveJWTSecret, "jwt-secret", "", "HMAC secret for bearer tokens (empty: anonymous only)")
	cmd.Flags().DurationVar(&serveTokenTTL, "token-ttl", server.DefaultTokenTTL, "lifetime of issued tokens")
	cmd.Flags().StringSliceVar(&serveCORSOrigins, "cors-origins", nil, "allowed CORS origins")
	cmd.Flags().StringVar(&serveDB, "db", "", "results database (default: XDG data dir)")
	cmd.Flags().StringVar(&playCatalog, "catalog", "", "catalog file (.toml or .yaml) replacing the built-in one")
	return cmd
}

func applyServerConfig(cmd *cobra.Command, srv config.ServerConfig) {
	applyStringConfig(cmd, "listen", &serveListen, srv.Listen)
	applyStringConfig(cmd, "jwt-secret", &serveJWTSecret, srv.JWTSecret)
	applyDurationConfig(cmd, "token-ttl", &serveTokenTTL, srv.TokenTTL)
	applyStringsConfig(cmd, "cors-origins", &serveCORSOrigins, srv.CORSOrigins)
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyServerConfig(cmd, fileCfg.Server)
	applyStringConfig(cmd, "catalog", &playCatalog, fileCfg.Game.Catalog)

	cfg := model.ServerConfig{
		Listen:      serveListen,
		JWTSecret:   serveJWTSecret,
		TokenTTL:    serveTokenTTL,
		CORSOrigins: serveCORSOrigins,
	}
	if err := validateServerConfig(cfg); err != nil {
		return err
	}

	logger, err := logging.New(logLevel, logFile)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	cat, err := loadCatalog(playCatalog)
	if err != nil {
		return err
	}
	dbPath := serveDB
	if dbPath == "" {
		dbPath = config.DefaultServerDBPath()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if cfg.JWTSecret == "" {
		logger.Warn("no jwt secret configured, only anonymous submissions are accepted")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(cat, st, cfg, logger).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, srv, logger)
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func validateServerConfig(cfg model.ServerConfig) error {
	if cfg.Listen == "" {
		return fmt.Errorf("--listen must not be empty")
	}
	if cfg.TokenTTL <= 0 {
		return fmt.Errorf("--token-ttl must be > 0")
	}
	return nil
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the configured secret",
		Args:  cobra.NoArgs,
		RunE:  runTokenCmd,
	}
	cmd.Flags().StringVar(&tokenUser, "user", "", "user the token is issued for")
	cmd.Flags().DurationVar(&tokenTTL, "ttl", server.DefaultTokenTTL, "token lifetime")
	cmd.Flags().StringVar(&tokenJWTSecret, "jwt-secret", "", "HMAC secret (default: [server] jwt-secret)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runTokenCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "jwt-secret", &tokenJWTSecret, fileCfg.Server.JWTSecret)
	applyDurationConfig(cmd, "ttl", &tokenTTL, fileCfg.Server.TokenTTL)

	token, err := server.IssueToken(tokenJWTSecret, tokenUser, tokenTTL)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), token); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
