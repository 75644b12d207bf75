package domain

import (
	"context"
	"fmt"

	"github.com/akeren/waitlist-landing/config"
	"github.com/akeren/waitlist-landing/domain/landing"
	"github.com/akeren/waitlist-landing/domain/monitoring"
	"github.com/akeren/waitlist-landing/domain/waitlist"
	"github.com/akeren/waitlist-landing/web"
)

const cleanupTaskName = "waitlist_cleanup"

func SetupCoreDomain(appConfig *config.ApplicationConfig) error {
	templates, err := web.Templates()
	if err != nil {
		return fmt.Errorf("parse page templates: %w", err)
	}
	appConfig.RouterService.SetHTMLTemplate(templates)

	limiters := appConfig.Limiters.RateLimiterFactory
	settings := appConfig.Waitlist

	appConfig.RouterService.MountController(landing.NewLandingController(pageConfig(settings)))

	sinkCheckers := make([]monitoring.SinkChecker, 0, len(appConfig.Sinks))
	for _, sink := range appConfig.Sinks {
		sinkCheckers = append(sinkCheckers, sink)
	}
	monitoringFactory := monitoring.NewMonitoringControllerFactory(appConfig.DB, appConfig.Logger, appConfig.Cache, sinkCheckers, limiters)
	appConfig.RouterService.MountController(monitoringFactory.CreateController())

	guard := waitlist.NewMemoryGuard()
	if appConfig.Cache != nil {
		guard = waitlist.NewCacheGuard(appConfig.Cache)
	}

	waitlistFactory := waitlist.NewWaitlistServiceFactory(appConfig.DB, appConfig.Logger, waitlist.FactoryOptions{
		Service: waitlist.ServiceOptions{
			Guard:        guard,
			Dispatcher:   appConfig.Dispatcher,
			Metrics:      waitlist.NewMetrics(appConfig.RouterService.MetricsRegisterer()),
			DedupeWindow: settings.DedupeWindow,
			TestPatterns: settings.TestPatterns,
		},
		Limiters:             limiters,
		RedirectAllowedHosts: settings.RedirectAllowedHosts,
		AdminAPIKey:          settings.AdminAPIKey,
	})
	appConfig.RouterService.MountController(waitlistFactory.CreateController())

	if settings.AdminAPIKey == "" {
		appConfig.Logger.Warn("ADMIN_API_KEY not set; admin waitlist routes answer 403")
	}
	appConfig.RouterService.MountController(waitlistFactory.CreateAdminController())

	if settings.CleanupSchedule != "" {
		service := waitlistFactory.CreateService()
		err := appConfig.Scheduler.Add(cleanupTaskName, settings.CleanupSchedule, func(ctx context.Context) error {
			report, err := service.ApplyCleanup(ctx)
			if err != nil {
				return err
			}
			appConfig.Logger.Info("Scheduled waitlist cleanup finished",
				"removed", report.RemovedTotal,
				"normalized", report.Normalized,
				"remaining", report.ValidEntries,
			)
			return nil
		})
		if err != nil {
			return err
		}
	}
	appConfig.Scheduler.Start()

	return nil
}

func pageConfig(settings *config.WaitlistConfig) landing.PageConfig {
	page := landing.DefaultPageConfig()
	if settings.Product != "" {
		page.Product = settings.Product
	}
	if settings.Headline != "" {
		page.Headline = settings.Headline
	}
	if settings.Description != "" {
		page.Description = settings.Description
	}
	return page
}
