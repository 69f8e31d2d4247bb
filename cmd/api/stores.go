package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"address-validator/internal/activitylog"
	"address-validator/internal/config"
	"address-validator/migrations"
	"address-validator/pkg/utils"
)

// activityStore is the selected activity log backend plus its readiness probe and cleanup.
type activityStore struct {
	Repo  activitylog.Repository
	Ready func(ctx context.Context) error
	Close func()
}

func openActivityStore(ctx context.Context, cfg config.Config, log *slog.Logger) (activityStore, error) {
	switch cfg.Activity.Store {
	case config.StorePostgres:
		pool, err := utils.OpenPostgres(ctx, cfg.DB.DSN, utils.PostgresPoolConfig{
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			ConnMaxLifetime: cfg.DB.MaxConnLifetime,
			ConnMaxIdleTime: cfg.DB.MaxConnIdleTime,
		})
		if err != nil {
			return activityStore{}, err
		}
		if cfg.DB.AutoMigrate {
			if err := utils.Migrate(ctx, pool, migrations.FS); err != nil {
				pool.Close()
				return activityStore{}, err
			}
			log.Info("activity log migrations applied")
		}
		return activityStore{
			Repo:  activitylog.NewPostgresRepo(pool),
			Ready: func(ctx context.Context) error { return utils.HealthCheck(ctx, pool, 2*time.Second) },
			Close: pool.Close,
		}, nil

	case config.StoreElasticsearch:
		repo := activitylog.NewElasticsearchRepo(cfg.Elasticsearch.Node, cfg.Elasticsearch.Index, cfg.Elasticsearch.APIKey)
		if err := repo.EnsureIndex(ctx); err != nil {
			return activityStore{}, err
		}
		return activityStore{
			Repo:  repo,
			Ready: repo.EnsureIndex,
			Close: func() {},
		}, nil

	case config.StoreMemory, "":
		log.Warn("activity log kept in memory; entries are lost on restart")
		return activityStore{
			Repo:  activitylog.NewMemoryRepo(),
			Ready: func(context.Context) error { return nil },
			Close: func() {},
		}, nil

	default:
		return activityStore{}, fmt.Errorf("unknown activity store %q", cfg.Activity.Store)
	}
}
