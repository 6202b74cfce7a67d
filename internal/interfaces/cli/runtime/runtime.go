// Package runtime loads configuration and opens the shared clients used by
// the server and worker commands.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/orris-inc/payrecon/internal/infrastructure/config"
	"github.com/orris-inc/payrecon/internal/infrastructure/database"
	"github.com/orris-inc/payrecon/internal/infrastructure/migration"
	"github.com/orris-inc/payrecon/internal/shared/constants"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

const redisPingTimeout = 5 * time.Second

// Runtime bundles what a long running process needs before the container is
// built.
type Runtime struct {
	Env    string
	Config *config.Config
	Log    logger.Interface
	DB     *gorm.DB
	Redis  *redis.Client
}

// ResolveEnv lets the ENV variable override the --env flag.
func ResolveEnv(flagValue string) string {
	if envVar := os.Getenv("ENV"); envVar != "" {
		return envVar
	}
	return flagValue
}

// Open loads the configuration for env and connects to MySQL and Redis.
func Open(ctx context.Context, env string) (*Runtime, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}

	db, err := database.Init(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		_ = redisClient.Close()
		_ = database.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	return &Runtime{Env: env, Config: cfg, Log: log, DB: db, Redis: redisClient}, nil
}

// Migrate applies the schema with the strategy chosen for the environment.
func (r *Runtime) Migrate(ctx context.Context) error {
	if r.Env == constants.EnvProduction {
		r.Log.Warnw("auto-migration is enabled in production")
	}
	return migration.NewManager(r.Env, r.Log).Migrate(ctx, r.DB)
}

// LogSchemaVersion reports the applied goose version without changing it.
func (r *Runtime) LogSchemaVersion(ctx context.Context) {
	version, err := migration.NewGooseStrategy("mysql", r.Log).GetVersion(ctx, r.DB)
	if err != nil {
		r.Log.Warnw("failed to check migration status", "error", err)
		return
	}
	r.Log.Infow("current migration version", "version", version)
}

// Close releases Redis and the database.
func (r *Runtime) Close() error {
	return errors.Join(r.Redis.Close(), database.Close())
}
