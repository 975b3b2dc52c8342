package application

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"demoqa-e2e/core/eventbus"
	"demoqa-e2e/domain/profile"
	"demoqa-e2e/domain/report"
	"demoqa-e2e/domain/retry"
	"demoqa-e2e/infrastructure/config"
	"demoqa-e2e/infrastructure/probe"
	"demoqa-e2e/infrastructure/repository"
)

// Suite bundles the configuration and stores shared by every run.
type Suite struct {
	Config   *config.Config
	Profiles *profile.Registry
	Policies retry.Table
	Reports  *report.Service

	mongoDB *repository.MongoDB
	logger  *slog.Logger
}

// LoadSuite reads config.yaml, profiles/*.yaml and policies/retry.yaml from
// fsys. Results go to MongoDB when a URI is configured, to memory otherwise.
func LoadSuite(ctx context.Context, fsys fs.FS, logger *slog.Logger) (*Suite, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load(fsys)
	if err != nil {
		return nil, err
	}

	profiles := profile.NewRegistry()
	if err := profile.NewLoader(profiles).LoadFromFS(fsys); err != nil {
		return nil, err
	}
	if _, err := profiles.Get(cfg.Profile); err != nil {
		return nil, fmt.Errorf("default profile: %w", err)
	}

	policies, err := retry.LoadFromFS(fsys)
	if err != nil {
		return nil, err
	}

	s := &Suite{
		Config:   cfg,
		Profiles: profiles,
		Policies: policies,
		logger:   logger,
	}

	if cfg.MongoURI == "" {
		s.Reports = report.NewService(report.NewMemoryRepository())
	} else {
		mongoCfg := repository.DefaultMongoDBConfig()
		mongoCfg.URI = cfg.MongoURI
		db, err := repository.NewMongoDB(ctx, mongoCfg, logger)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureIndexes(ctx); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
		s.mongoDB = db
		s.Reports = report.NewService(repository.NewMongoResultRepository(db, logger))
	}

	logger.Info("Suite loaded",
		"base_url", cfg.BaseURL,
		"profile", cfg.Profile,
		"profiles", profiles.Count(),
		"ci", cfg.CI,
		"persistent", s.Persistent())
	return s, nil
}

// Persistent reports whether results outlive the process.
func (s *Suite) Persistent() bool {
	return s.mongoDB != nil
}

// NewCoordinator creates a coordinator for one run of this suite.
func (s *Suite) NewCoordinator(bus eventbus.EventBus, factory DriverFactory) *Coordinator {
	return NewCoordinator(&CoordinatorConfig{
		Config:        s.Config,
		Profiles:      s.Profiles,
		Policies:      s.Policies,
		Reports:       s.Reports,
		EventBus:      bus,
		DriverFactory: factory,
		Logger:        s.logger,
	})
}

// Prober returns a reachability prober for the base URL.
func (s *Suite) Prober() *probe.Prober {
	pc := probe.DefaultConfig()
	pc.BaseURL = s.Config.BaseURL
	pc.Path = s.Config.Probe.Path
	pc.Timeout = s.Config.Probe.Timeout
	pc.RetryMax = s.Config.Probe.RetryMax
	return probe.New(pc, s.logger)
}

// Close releases the result store.
func (s *Suite) Close(ctx context.Context) error {
	if s.mongoDB == nil {
		return nil
	}
	return s.mongoDB.Close(ctx)
}
