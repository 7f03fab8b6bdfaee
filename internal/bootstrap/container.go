// Package bootstrap wires configuration, the store adapters, and the
// feature registry into a runnable container for the serve command.
package bootstrap

import (
	"context"

	"go.uber.org/zap"

	"github.com/skylarkml/skylark/pkg/config"
	"github.com/skylarkml/skylark/pkg/logger"
	"github.com/skylarkml/skylark/pkg/registry"
	"github.com/skylarkml/skylark/pkg/store/offline"
	"github.com/skylarkml/skylark/pkg/store/online"
)

// Container holds the assembled application dependencies.
type Container struct {
	Config   *config.Config
	Registry *registry.Store
}

// New builds the container: logger, online store (redis, or in-memory when
// disabled), offline parquet store, and the coordinator.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
	}); err != nil {
		return nil, err
	}
	log := logger.WithComponent("bootstrap")

	var onlineStore online.Store
	if cfg.Online.Enabled {
		rs, err := online.NewRedisStore(ctx, online.RedisOptions{
			Addr:           cfg.Online.Addr,
			Password:       cfg.Online.Password,
			DB:             cfg.Online.DB,
			RequestTimeout: cfg.Online.RequestTimeout,
		})
		if err != nil {
			return nil, err
		}
		onlineStore = rs
		log.Info("online store connected", zap.String("addr", cfg.Online.Addr))
	} else {
		onlineStore = online.NewMemoryStore()
		log.Warn("online store disabled, using in-memory store")
	}

	offlineStore, err := offline.NewParquetStore(offline.ParquetOptions{
		RootPath:       cfg.Offline.RootPath,
		Compression:    cfg.Offline.Compression,
		RequestTimeout: cfg.Offline.RequestTimeout,
	})
	if err != nil {
		_ = onlineStore.Close()
		return nil, err
	}
	log.Info("offline store ready", zap.String("root", cfg.Offline.RootPath))

	return &Container{
		Config:   cfg,
		Registry: registry.New(cfg.Name, onlineStore, offlineStore),
	}, nil
}

// Close releases the container's resources.
func (c *Container) Close() error {
	return c.Registry.Close()
}
