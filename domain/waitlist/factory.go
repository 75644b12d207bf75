package waitlist

import (
	"github.com/akeren/waitlist-landing/config/router"
	"github.com/akeren/waitlist-landing/internal/log"
	"github.com/akeren/waitlist-landing/pkg/factory"
	"gorm.io/gorm"
)

type WaitlistServiceFactory interface {
	CreateService() WaitlistService
	CreateController() *router.RESTController
	CreateAdminController() *router.RESTController
}

type FactoryOptions struct {
	Service              ServiceOptions
	Limiters             factory.RateLimiterFactory
	RedirectAllowedHosts []string
	AdminAPIKey          string
}

type DefaultWaitlistServiceFactory struct {
	db      *gorm.DB
	logger  *log.Logger
	opts    FactoryOptions
	service WaitlistService
}

func NewWaitlistServiceFactory(db *gorm.DB, logger *log.Logger, opts FactoryOptions) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		db:     db,
		logger: logger,
		opts:   opts,
	}
}

// CreateService returns one shared service so the public API, the admin API and
// the scheduler use the same guard and dispatcher.
func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	if f.service == nil {
		repository := NewWaitlistRepository(f.db)
		f.service = NewWaitlistService(f.logger, repository, f.opts.Service)
	}
	return f.service
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.CreateService(), f.opts.Limiters, NewRedirectPolicy(f.opts.RedirectAllowedHosts))
}

func (f *DefaultWaitlistServiceFactory) CreateAdminController() *router.RESTController {
	return NewWaitlistAdminController(f.CreateService(), f.opts.AdminAPIKey)
}
