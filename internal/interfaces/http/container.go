package http

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/orris-inc/payrecon/internal/infrastructure/auth"
	"github.com/orris-inc/payrecon/internal/infrastructure/config"
	"github.com/orris-inc/payrecon/internal/infrastructure/eventbus"
	"github.com/orris-inc/payrecon/internal/infrastructure/queue"
	"github.com/orris-inc/payrecon/internal/infrastructure/scheduler"
	"github.com/orris-inc/payrecon/internal/interfaces/http/middleware"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// Container wires repositories, services, use cases, handlers and the
// background runners of one process. The API server and the worker build the
// same container and use the parts they need.
type Container struct {
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client

	repos *repositories
	svcs  *services
	ucs   *allUseCases
	hdlrs *allHandlers

	jwtService     *auth.JWTService
	authMiddleware *middleware.AuthMiddleware
	webhookLimiter *middleware.RateLimiter

	metricsRegistry  *prometheus.Registry
	kafkaPublisher   *eventbus.KafkaPublisher
	worker           *queue.Worker
	schedulerManager *scheduler.SchedulerManager
}

// NewContainer builds every component. It fails when a component that does
// I/O at construction time, such as the policy store, cannot start.
func NewContainer(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log logger.Interface) (*Container, error) {
	c := &Container{
		engine: gin.New(),
		db:     db,
		cfg:    cfg,
		log:    log,
		redis:  redisClient,
	}

	c.metricsRegistry = prometheus.NewRegistry()
	c.metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c.initRepositories()
	if err := c.initServices(); err != nil {
		return nil, err
	}
	c.initUseCases()
	c.initHandlers()
	c.initMiddlewares()
	c.initWorker()

	return c, nil
}

// Engine returns the gin engine; call SetupRoutes first.
func (c *Container) Engine() *gin.Engine {
	return c.engine
}

// Shutdown stops background components. The database and Redis clients are
// owned by the caller.
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error

	if c.schedulerManager != nil {
		if err := c.schedulerManager.Stop(); err != nil {
			firstErr = fmt.Errorf("failed to stop scheduler: %w", err)
		}
	}

	if c.kafkaPublisher != nil {
		if err := c.kafkaPublisher.Close(); err != nil {
			c.log.Warnw("failed to close kafka publisher", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}

	c.log.Infow("container shut down")
	return firstErr
}
