package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/moturus/gantry/pkg/config"
	"github.com/moturus/gantry/pkg/gcache"
	"github.com/moturus/gantry/pkg/glog"
	"github.com/moturus/gantry/pkg/kv"
	"github.com/moturus/gantry/pkg/pipeline"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the build cache",
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop every cache index entry so future runs start cold",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger()

		handle := newCacheHandle(cfg, logger)
		defer handle.close()
		if handle.mgr == nil {
			return fmt.Errorf("no cache backend configured")
		}

		if err := handle.mgr.InvalidateIndex(cmd.Context()); err != nil {
			return fmt.Errorf("invalidating cache index: %w", err)
		}
		fmt.Println("✔ cache index invalidated")
		return nil
	},
}

// cacheHandle wraps an optional cache manager so callers don't branch on
// whether caching is configured.
type cacheHandle struct {
	mgr *gcache.Manager
}

func (h cacheHandle) restoreAll(ctx context.Context, specs []pipeline.CacheSpec) {
	if h.mgr != nil {
		h.mgr.RestoreAll(ctx, specs)
	}
}

func (h cacheHandle) saveAll(ctx context.Context, specs []pipeline.CacheSpec) {
	if h.mgr != nil {
		h.mgr.SaveAll(ctx, specs)
	}
}

func (h cacheHandle) close() {
	if h.mgr != nil {
		h.mgr.Close()
	}
}

// newCacheHandle builds the configured cache manager. A misconfigured or
// unreachable cache degrades to no caching with a warning; it never blocks
// the run.
func newCacheHandle(cfg *config.Config, logger *glog.Logger) cacheHandle {
	if cfg.Cache.Backend == "none" {
		return cacheHandle{}
	}

	secrets, err := config.LoadSecrets()
	if err != nil {
		logger.Warn("cache disabled", "err", err)
		return cacheHandle{}
	}
	if err := secrets.ValidateFor(cfg.Cache); err != nil {
		logger.Warn("cache disabled", "err", err)
		return cacheHandle{}
	}

	var blobs gcache.BlobStore
	switch cfg.Cache.Backend {
	case "s3":
		blobs, err = gcache.NewS3Blobs(gcache.S3Config{
			Endpoint:  cfg.Cache.Endpoint,
			AccessKey: secrets.S3AccessKey,
			SecretKey: secrets.S3SecretKey,
			Bucket:    cfg.Cache.Bucket,
			Region:    cfg.Cache.Region,
			UseSSL:    cfg.Cache.UseSSL,
		})
	default:
		blobs, err = gcache.NewFSBlobs(cfg.Cache.Dir)
	}
	if err != nil {
		logger.Warn("cache disabled", "backend", cfg.Cache.Backend, "err", err)
		return cacheHandle{}
	}

	index := newCacheIndex(cfg, secrets, logger)

	return cacheHandle{mgr: gcache.NewManager(blobs, index, gcache.WithManagerLogger(logger))}
}

// newCacheIndex picks the index backend: Valkey when configured, a file next
// to the fs cache otherwise, and in-memory as the last resort.
func newCacheIndex(cfg *config.Config, secrets *config.Secrets, logger *glog.Logger) kv.Store {
	if cfg.KV.Addr != "" {
		index, err := kv.NewValkeyStore(kv.ValkeyConfig{
			Addr:     cfg.KV.Addr,
			Password: secrets.KVPassword,
			DB:       cfg.KV.DB,
		})
		if err == nil {
			return index
		}
		logger.Warn("cache index unreachable, falling back to local index", "addr", cfg.KV.Addr, "err", err)
	}

	if cfg.Cache.Backend == "fs" {
		index, err := kv.NewFileStore(filepath.Join(cfg.Cache.Dir, "index.json"))
		if err == nil {
			return index
		}
		logger.Warn("cannot open local cache index, using in-memory index", "err", err)
	}

	return kv.NewMemoryStore()
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
}
