package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/akeren/waitlist-landing/config/router"
	"github.com/akeren/waitlist-landing/internal/log"
	"github.com/akeren/waitlist-landing/pkg/constants"
	apperrors "github.com/akeren/waitlist-landing/pkg/errors"
	"github.com/akeren/waitlist-landing/pkg/factory"
	"github.com/akeren/waitlist-landing/pkg/ratelimit"
	"github.com/akeren/waitlist-landing/pkg/utils"
	"gorm.io/gorm"
)

const (
	monitoringRequestsPerMinute = 10
	checkTimeout                = 3 * time.Second
)

type Cache interface {
	Ping(ctx context.Context) error
}

// SinkChecker is satisfied by every row sink.
type SinkChecker interface {
	Name() string
	Check(ctx context.Context) error
}

type HealthStatus struct {
	Database int            `json:"database"` // 1 = healthy, 0 = unhealthy
	Cache    int            `json:"cache"`    // 1 = healthy, 0 = unhealthy/not configured
	Sinks    map[string]int `json:"sinks"`    // per sink: 1 = accepting rows, 0 = failing or circuit open
	Uptime   int            `json:"uptime"`   // uptime in seconds
}

type ServiceStatus struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	StartedAt   string `json:"started_at"`
	Uptime      int    `json:"uptime"`
}

type MonitoringController struct {
	db        *gorm.DB
	logger    *log.Logger
	cache     Cache
	sinks     []SinkChecker
	startTime time.Time
}

func NewMonitoringController(
	db *gorm.DB,
	logger *log.Logger,
	cache Cache,
	sinks []SinkChecker,
	limiters factory.RateLimiterFactory,
) *router.RESTController {
	ctrl := &MonitoringController{
		db:        db,
		logger:    logger,
		cache:     cache,
		sinks:     sinks,
		startTime: time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(routerService *router.RouterService, controller *router.RESTController) {

			monitoringRateLimiter := createMonitoringRateLimiter(limiters)

			routerService.AddGetHandler(controller, monitoringRateLimiter, "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(routerService, c)
			})

			routerService.AddGetHandler(controller, monitoringRateLimiter, "status", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.status(c)
			})
		},
	)
}

func createMonitoringRateLimiter(limiters factory.RateLimiterFactory) ratelimit.RateLimiter {
	if limiters != nil {
		return limiters.CreateRateLimiter("monitoring", monitoringRequestsPerMinute, time.Minute)
	}

	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: monitoringRequestsPerMinute,
		Window:   time.Minute,
	})
}

func (ctrl *MonitoringController) healthCheck(
	routerService *router.RouterService,
	c *router.RequestContext,
) *router.ServiceResult {
	logger := routerService.GetLogger(c)
	logger.Info("Health check endpoint called")

	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	healthStatus := ctrl.performHealthChecks(ctx, logger)

	statusCode := http.StatusOK
	message := "Waitlist health check completed"
	if healthStatus.Database == 0 {
		err := apperrors.NewUnavailableError("Waitlist is degraded: database unreachable", nil)
		statusCode = apperrors.HTTPStatusCode(err)
		message = apperrors.GetHumanReadableMessage(err)
	}

	return &router.ServiceResult{
		StatusCode: statusCode,
		Data:       healthStatus,
		Message:    message,
	}
}

func (ctrl *MonitoringController) status(c *router.RequestContext) *router.ServiceResult {
	return router.OKResult(ServiceStatus{
		Service:     utils.OTelServiceName(),
		Version:     constants.APIVersion,
		Environment: utils.GetEnvOrDefault("APP_ENV", "local"),
		StartedAt:   ctrl.startTime.UTC().Format(constants.RFC3339DateTimeFormat),
		Uptime:      int(time.Since(ctrl.startTime).Seconds()),
	}, "Service is operational")
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Uptime: int(time.Since(ctrl.startTime).Seconds()),
		Sinks:  make(map[string]int, len(ctrl.sinks)),
	}

	checkDatabaseConnectivity(ctx, ctrl, &status, logger)

	checkCacheConnectivity(ctx, ctrl, &status, logger)

	checkSinks(ctx, ctrl, &status, logger)

	return status
}

func checkSinks(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	for _, sink := range ctrl.sinks {
		if err := sink.Check(ctx); err != nil {
			status.Sinks[sink.Name()] = 0
			logger.Error("Sink health check failed", "sink", sink.Name(), "error", err)
			continue
		}
		status.Sinks[sink.Name()] = 1
	}
}

func checkCacheConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.cache != nil {
		if ctrl.checkCache(ctx) {
			status.Cache = 1
			logger.Info("Cache health check passed")
		} else {
			status.Cache = 0
			logger.Error("Cache health check failed")
		}
	} else {
		status.Cache = 0 // Cache not configured
		logger.Info("Cache not configured, cache health check skipped")
	}
}

func checkDatabaseConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.checkDatabase(ctx) {
		status.Database = 1
		logger.Info("Database health check passed")
	} else {
		status.Database = 0
		logger.Error("Database health check failed")
	}
}

func (ctrl *MonitoringController) checkDatabase(ctx context.Context) bool {
	if ctrl.db == nil {
		return false
	}

	sqlDB, err := ctrl.db.DB()
	if err != nil {
		return false
	}

	return sqlDB.PingContext(ctx) == nil
}

func (ctrl *MonitoringController) checkCache(ctx context.Context) bool {
	return ctrl.cache.Ping(ctx) == nil
}
