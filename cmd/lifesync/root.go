package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lifesync/internal/adapter/memory"
	"lifesync/internal/adapter/remote"
	"lifesync/internal/adapter/sqlstore"
	"lifesync/internal/app"
	"lifesync/internal/config"
	"lifesync/internal/domain"
	"lifesync/internal/logging"
	"lifesync/internal/metrics"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "lifesync",
	Short:         "Offline-first sync for the lifestyle tracker",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.lifesync/config.yaml)")
	rootCmd.AddCommand(serveCmd, syncCmd, statusCmd, pendingCmd, weekCmd)
}

// runtime holds the wired components of one process.
type runtime struct {
	cfg       *config.Config
	log       *logrus.Logger
	metrics   *metrics.Collector
	store     domain.CacheStore
	nutrition *app.NutritionService
	fitness   *app.FitnessService
	budget    *app.BudgetService
	goals     *app.GoalService
	rec       *app.Reconciler
	scheduler *app.Scheduler

	closers []io.Closer
}

func setup(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: log, metrics: metrics.NewCollector("lifesync"), closers: []io.Closer{logCloser}}

	rt.store, err = openStore(cfg.Cache)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	rt.closers = append([]io.Closer{rt.store}, rt.closers...)

	ts, err := remote.TokenSource(ctx, remote.AuthConfig{
		Token:        cfg.Remote.Token,
		Issuer:       cfg.Remote.OIDC.Issuer,
		ClientID:     cfg.Remote.OIDC.ClientID,
		ClientSecret: cfg.Remote.OIDC.ClientSecret,
		Scopes:       cfg.Remote.OIDC.Scopes,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	gateway := remote.New(remote.Options{
		BaseURL:     cfg.Remote.BaseURL,
		Timeout:     cfg.Remote.Timeout,
		RateLimit:   cfg.Remote.RateLimit,
		Burst:       cfg.Remote.Burst,
		TokenSource: ts,
		Metrics:     rt.metrics,
	})
	monitor := remote.NewProber(cfg.Remote.BaseURL, cfg.Remote.ProbeTimeout, rt.metrics)

	policy := app.NewConnectivityPolicy(monitor, rt.store, app.PolicyOptions{
		QueueOfflineWrites: cfg.Sync.QueueOfflineWrites,
		CoalesceIdempotent: cfg.Sync.CoalesceIdempotent,
	}, log, rt.metrics)

	rt.nutrition = app.NewNutritionService(policy, rt.store, gateway, log)
	rt.fitness = app.NewFitnessService(policy, rt.store, gateway, log)
	rt.budget = app.NewBudgetService(policy, rt.store, gateway, log)
	rt.goals = app.NewGoalService(policy, rt.store, gateway, log)
	rt.rec = app.NewReconciler(rt.store, gateway, policy, log, rt.metrics)
	rt.scheduler = app.NewScheduler(rt.rec, cfg.Sync.Interval, log)
	return rt, nil
}

func openStore(cfg config.CacheConfig) (domain.CacheStore, error) {
	if cfg.Driver == "memory" {
		return memory.New(), nil
	}
	return sqlstore.Open(cfg.Driver, cfg.DSN)
}

// Close releases the store and the log writer.
func (rt *runtime) Close() {
	for _, c := range rt.closers {
		_ = c.Close()
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
