package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hylla/tavla/internal/adapters/storage/rediscache"
	"github.com/hylla/tavla/internal/adapters/storage/sqlite"
	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/config"
	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/fixtures"
	"github.com/hylla/tavla/internal/platform"
)

// session bundles everything one command needs: resolved paths, config, logger and a loaded service.
type session struct {
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	svc        *app.Service
	closers    []func() error
	stop       context.CancelFunc
}

// openSession resolves config and storage for opts and loads the board state.
// quietConsole mutes the console log sink, which the TUI needs while it owns the terminal.
func openSession(ctx context.Context, opts *rootOptions, stderr io.Writer, quietConsole bool) (*session, error) {
	paths, err := opts.resolvePaths()
	if err != nil {
		return nil, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TAVLA_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("TAVLA_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if opts.inMemory {
		cfg.Database.InMemory = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, err
	}
	if quietConsole {
		logger.MuteConsole(true)
	}
	s := &session{
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
	}
	ctx, s.stop = context.WithCancel(ctx)
	if err := s.open(ctx, opts); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// open wires the repository chain and the service.
func (s *session) open(ctx context.Context, opts *rootOptions) error {
	logger := s.logger
	if path := logger.DevLogPath(); path != "" {
		logger.Info("dev file logging enabled", "path", path)
	}
	logger.Info("runtime config resolved",
		"app", opts.appName,
		"dev_mode", opts.devMode,
		"config_path", s.configPath,
		"in_memory", s.cfg.Database.InMemory,
	)

	var (
		repo *sqlite.Repository
		err  error
	)
	if s.cfg.Database.InMemory {
		logger.Info("opening in-memory sqlite repository")
		repo, err = sqlite.OpenInMemory()
	} else {
		logger.Info("opening sqlite repository", "db_path", s.cfg.Database.Path)
		repo, err = sqlite.Open(s.cfg.Database.Path)
	}
	if err != nil {
		logger.Error("sqlite open failed", "err", err)
		return fmt.Errorf("open repository: %w", err)
	}
	s.closers = append(s.closers, repo.Close)

	var repository app.Repository = repo
	client := s.openCache(ctx)
	if client != nil {
		repository = rediscache.NewCache(repo, client, rediscache.Options{
			Channel: s.cfg.Cache.Channel,
			TTL:     s.cfg.Cache.TTL(),
		})
	}

	seed, err := s.seedBoards()
	if err != nil {
		return err
	}
	s.svc = app.NewService(repository, uuid.NewString, time.Now, app.ServiceConfig{
		InitialDarkMode:      s.cfg.UI.DarkMode,
		InitialSidePanelOpen: s.cfg.UI.SidePanelOpen,
		Seed:                 seed,
	})
	if err := s.svc.Load(ctx); err != nil {
		logger.Error("state load failed", "err", err)
		return fmt.Errorf("load state: %w", err)
	}
	logger.Info("board state loaded", "boards", len(s.svc.Current().Boards))

	if client != nil {
		svc := s.svc
		go rediscache.WatchChanges(ctx, logger.Sink(), client, s.cfg.Cache.Channel, func(event domain.ChangeEvent) {
			logger.Debug("remote change received", "operation", event.Operation, "board_id", event.BoardID)
			if err := svc.Load(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("reload after remote change failed", "err", err)
			}
		})
	}
	return nil
}

// openCache connects to Redis when the cache is enabled. An unreachable server only
// disables caching; the sqlite store remains authoritative.
func (s *session) openCache(ctx context.Context) *redis.Client {
	if !s.cfg.Cache.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: s.cfg.Cache.Addr,
		DB:   s.cfg.Cache.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		s.logger.Warn("redis unavailable, continuing without cache", "addr", s.cfg.Cache.Addr, "err", err)
		_ = client.Close()
		return nil
	}
	s.logger.Info("redis cache enabled", "addr", s.cfg.Cache.Addr, "channel", s.cfg.Cache.Channel)
	s.closers = append(s.closers, client.Close)
	return client
}

// seedPayload returns the configured seed file, falling back to the embedded fixture.
func (s *session) seedPayload() ([]byte, error) {
	raw, err := s.cfg.Seed.SeedPayload()
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw = fixtures.Boards()
	}
	return raw, nil
}

// seedBoards parses the seed used when no state has been persisted yet.
func (s *session) seedBoards() ([]domain.Board, error) {
	if !s.cfg.Seed.Enabled {
		return nil, nil
	}
	raw, err := s.seedPayload()
	if err != nil {
		return nil, err
	}
	boards, err := app.ParseSeed(raw, uuid.NewString, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return boards, nil
}

// Close stops background watchers and releases storage in reverse open order.
func (s *session) Close() {
	if s == nil {
		return
	}
	if s.stop != nil {
		s.stop()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close failed", "err", err)
		}
	}
	s.closers = nil
	if err := s.logger.Close(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "warning: close runtime logger: %v\n", err)
	}
}
