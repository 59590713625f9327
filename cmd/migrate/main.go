package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"passrelay/internal/pkg/logger"
	"passrelay/internal/platform/config"
	"passrelay/internal/platform/kv"
	"passrelay/internal/platform/repositories"
)

// migrate copies relay data from one key-value backend into the backend
// named in the config file, e.g. when moving from sqlite to postgres.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file (destination store)")
	fromDriver := flag.String("from-driver", "", "Source driver: sqlite, redis or postgres")
	fromSQLite := flag.String("from-sqlite-path", "", "Source sqlite file")
	fromRedis := flag.String("from-redis-addr", "", "Source redis address")
	fromRedisPrefix := flag.String("from-redis-prefix", "passrelay:", "Source redis key prefix")
	fromPostgres := flag.String("from-postgres-url", "", "Source postgres URL")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall timeout")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging)

	if *fromDriver == "" {
		log.Fatal().Msg("--from-driver is required")
	}
	source := cfg.KV
	source.Driver = *fromDriver
	switch *fromDriver {
	case "sqlite":
		source.SQLite.Path = *fromSQLite
	case "redis":
		source.Redis.Addr = *fromRedis
		source.Redis.KeyPrefix = *fromRedisPrefix
	case "postgres":
		source.Postgres.URL = *fromPostgres
	default:
		log.Fatal().Str("driver", *fromDriver).Msg("Unsupported source driver")
	}
	if source == cfg.KV {
		log.Fatal().Msg("Source and destination stores are the same")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	src, err := kv.Open(ctx, source)
	if err != nil {
		log.Fatal().Err(err).Str("driver", source.Driver).Msg("Failed to open source store")
	}
	defer src.Close()

	dst, err := kv.Open(ctx, cfg.KV)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.KV.Driver).Msg("Failed to open destination store")
	}
	defer dst.Close()

	copied, err := repositories.Copy(ctx, src, dst)
	if err != nil {
		log.Fatal().Err(err).Int("copied", copied).Msg("Migration failed")
	}
	log.Info().
		Str("from", source.Driver).
		Str("to", cfg.KV.Driver).
		Int("keys", copied).
		Msg("Migration completed")
}
