package monitoring

import (
	"github.com/akeren/waitlist-landing/config/router"
	"github.com/akeren/waitlist-landing/internal/log"
	"github.com/akeren/waitlist-landing/pkg/factory"
	"gorm.io/gorm"
)

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	db       *gorm.DB
	logger   *log.Logger
	cache    Cache
	sinks    []SinkChecker
	limiters factory.RateLimiterFactory
}

func NewMonitoringControllerFactory(
	db *gorm.DB,
	logger *log.Logger,
	cache Cache,
	sinks []SinkChecker,
	limiters factory.RateLimiterFactory,
) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{
		db:       db,
		logger:   logger,
		cache:    cache,
		sinks:    sinks,
		limiters: limiters,
	}
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(f.db, f.logger, f.cache, f.sinks, f.limiters)
}
