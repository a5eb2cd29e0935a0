package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Zuo-Peng/cconvo/internal/cache"
	"github.com/Zuo-Peng/cconvo/internal/catalog"
	"github.com/Zuo-Peng/cconvo/internal/config"
	"github.com/Zuo-Peng/cconvo/internal/logging"
	"github.com/Zuo-Peng/cconvo/internal/pathcodec"
	"github.com/Zuo-Peng/cconvo/internal/resolve"
	"github.com/Zuo-Peng/cconvo/internal/scan"
	"github.com/Zuo-Peng/cconvo/internal/tui"
)

type globalFlags struct {
	root     string
	logLevel string
}

// env is what every subcommand needs: config, logger and a scanner wired
// to the configured cache backend.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	cache   *cache.Cache
	scanner *scan.Scanner
	closers []func() error
}

func setup(flags *globalFlags) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flags.root != "" {
		cfg.ProjectsRoot = flags.root
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger}
	e.closers = append(e.closers, func() error {
		// stderr cannot be synced on some platforms
		_ = logger.Sync()
		return nil
	})

	var store cache.Store
	switch cfg.CacheBackend {
	case config.BackendSQLite:
		s, err := cache.OpenSQLiteStore(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		e.closers = append(e.closers, s.Close)
		store = s
	default:
		store = cache.NewFileStore(cfg.CachePath)
	}

	e.cache = cache.New(store, cache.WithLogger(logger.Named("cache")))
	resolver := pathcodec.NewResolver(cfg.Delimiter, pathcodec.WithMaxProbes(cfg.MaxProbes))
	e.scanner = scan.New(resolver, e.cache,
		scan.WithLogger(logger.Named("scan")),
		scan.WithProjectConcurrency(cfg.ProjectConcurrency),
		scan.WithFileConcurrency(cfg.FileConcurrency),
	)
	return e, nil
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Warn("close", zap.Error(err))
		}
	}
}

func (e *env) scan(ctx context.Context) (*catalog.ScanResult, error) {
	return e.scanner.Scan(ctx, e.cfg.ProjectsRoot)
}

// lookup resolves a session prefix. An ambiguous prefix opens the picker on
// an interactive terminal; otherwise the candidates are listed on stderr and
// the ambiguity is returned as the error.
func (e *env) lookup(ctx context.Context, prefix string) (*resolve.Match, error) {
	if err := resolve.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	result, err := e.scan(ctx)
	if err != nil {
		return nil, err
	}

	m, err := resolve.FindConversation(prefix, result)
	var amb *resolve.AmbiguousError
	switch {
	case errors.As(err, &amb):
		return pickMatch(amb)
	case err != nil:
		return nil, err
	case m == nil:
		return nil, fmt.Errorf("no session matches %q", prefix)
	}
	return m, nil
}

func pickMatch(amb *resolve.AmbiguousError) (*resolve.Match, error) {
	if !interactive() {
		for _, c := range amb.Candidates {
			fmt.Fprintf(os.Stderr, "  %s  %s  %s\n", c.SessionID, c.ProjectName, formatTime(c.StartTime))
		}
		return nil, amb
	}

	picked, err := tui.Pick(amb.Prefix, amb.Candidates)
	if err != nil {
		return nil, err
	}
	for i, c := range amb.Candidates {
		if c == picked {
			return &amb.Matches[i], nil
		}
	}
	return nil, fmt.Errorf("picked session %s vanished", picked.SessionID)
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
