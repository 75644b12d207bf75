package waitlist

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/akeren/waitlist-landing/config/router"
	"github.com/akeren/waitlist-landing/pkg/constants"
	apperrors "github.com/akeren/waitlist-landing/pkg/errors"
	"github.com/akeren/waitlist-landing/pkg/factory"
	"github.com/akeren/waitlist-landing/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

const (
	TemplateConfirmation = "confirmation.html"
	TemplateRedirect     = "redirect.html"
)

const captureRequestsPerMinute = 30

type confirmationPage struct {
	Success      bool
	Deduplicated bool
	Email        string
	Message      string
}

type redirectPage struct {
	URL string
}

func NewWaitlistController(
	service WaitlistService,
	limiters factory.RateLimiterFactory,
	redirects *RedirectPolicy,
) *router.RESTController {

	return router.NewVersionedRESTController(
		"WaitlistController",
		"v1",
		"/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			captureLimiter := createCaptureRateLimiter(limiters, "waitlist_capture")
			pixelLimiter := createCaptureRateLimiter(limiters, "waitlist_pixel")

			rs.AddPostHandler(c, captureLimiter, "", captureHandler(service))
			rs.AddGetHandler(c, pixelLimiter, "pixel", pixelHandler(service, redirects))
			rs.AddGetHandler(c, nil, "status", statusHandler())
		},
	)
}

// NewWaitlistAdminController mounts the operator endpoints behind the admin key.
func NewWaitlistAdminController(service WaitlistService, adminKey string) *router.RESTController {
	return router.NewVersionedRESTController(
		"WaitlistAdminController",
		"v1",
		"/admin/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			guard := rs.AdminKeyMiddleware(adminKey)

			rs.AddGetHandler(c, nil, "", listEntriesHandler(service), guard)
			rs.AddGetHandler(c, nil, "stats", statsHandler(service), guard)
			rs.AddGetHandler(c, nil, "export", exportHandler(service), guard)
			rs.AddGetHandler(c, nil, "cleanup", previewCleanupHandler(service), guard)
			rs.AddPostHandler(c, nil, "cleanup", applyCleanupHandler(service), guard)
			rs.AddGetHandler(c, nil, "/:id", getEntryHandler(service), guard)
		},
	)
}

func createCaptureRateLimiter(limiters factory.RateLimiterFactory, scope string) ratelimit.RateLimiter {
	if limiters != nil {
		return limiters.CreateRateLimiter(scope, captureRequestsPerMinute, time.Minute)
	}

	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: captureRequestsPerMinute,
		Window:   time.Minute,
	})
}

// prefersHTML is true for the iframe form target; beacons and fetch get JSON.
func prefersHTML(ctx *router.RequestContext) bool {
	return ctx.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
}

func captureHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)
		html := prefersHTML(ctx)

		var req CaptureRequest

		if err := ctx.ShouldBind(&req); err != nil {
			logger.Error("Failed to bind request", "error", err)

			if html {
				return confirmationResult(nil, apperrors.NewInvalidRequestError("Invalid request payload", err))
			}

			validationErrors := apperrors.FormatValidationErrors(err, &req)
			if len(validationErrors) > 0 {
				return router.BadRequestResult("Invalid request payload", validationErrors)
			}

			return router.BadRequestResult("Invalid request body", nil)
		}

		response, err := service.Capture(ctx.Request.Context(), req.ToCommand(ctx.Request.UserAgent()))
		if html {
			return confirmationResult(response, err)
		}
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		if response.Deduplicated {
			return router.OKResult(response, "Already on the waitlist")
		}

		return router.CreatedResult(response, "Waitlist entry")
	}
}

func confirmationResult(response *CaptureResponse, err error) *router.ServiceResult {
	if err != nil {
		return router.HTMLResult(apperrors.HTTPStatusCode(err), TemplateConfirmation, confirmationPage{
			Message: apperrors.GetHumanReadableMessage(err),
		})
	}

	return router.HTMLResult(http.StatusOK, TemplateConfirmation, confirmationPage{
		Success:      true,
		Deduplicated: response.Deduplicated,
		Email:        response.Email,
		Message:      "You're on the waitlist!",
	})
}

// pixelResult only answers with an image on success, so a browser <img> fires
// onload for a stored signup and onerror for everything else.
func pixelResult(statusCode int) *router.ServiceResult {
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return router.DataResult(statusCode, "text/plain; charset=utf-8", []byte(http.StatusText(statusCode))).
			WithHeader("Cache-Control", "no-store, max-age=0")
	}
	return router.DataResult(statusCode, "image/png", transparentPixel).
		WithHeader("Cache-Control", "no-store, max-age=0")
}

func pixelHandler(service WaitlistService, redirects *RedirectPolicy) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req CaptureRequest

		if err := ctx.ShouldBindQuery(&req); err != nil {
			logger.Error("Failed to bind pixel query", "error", err)
			return pixelResult(http.StatusBadRequest)
		}

		if req.Redirect != "" {
			if _, err := redirects.Resolve(req.Redirect, "", true); err != nil {
				logger.Warn("Rejected redirect target", "redirect", req.Redirect)
				return router.BadRequestResult("Redirect target not allowed", nil)
			}
		}

		response, err := service.Capture(ctx.Request.Context(), req.ToCommand(ctx.Request.UserAgent()))

		if req.Redirect != "" {
			email := req.Email
			if response != nil {
				email = response.Email
			}
			target, _ := redirects.Resolve(req.Redirect, email, err == nil)
			return router.HTMLResult(http.StatusOK, TemplateRedirect, redirectPage{URL: target}).
				WithHeader("Cache-Control", "no-store")
		}

		if err != nil {
			return pixelResult(apperrors.HTTPStatusCode(err))
		}

		return pixelResult(http.StatusOK)
	}
}

func statusHandler() router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		return router.OKResult(StatusResponse{
			Message:   "Waitlist API is running",
			Timestamp: formatTime(time.Now()),
			Status:    "active",
			Version:   constants.APIVersion,
			Methods: []string{
				"POST /v1/waitlist",
				"GET /v1/waitlist/pixel",
			},
		}, "Waitlist API status")
	}
}

func getEntryHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		id, errResult := router.ParseIDParam(ctx, "id")
		if errResult != nil {
			return errResult
		}

		response, err := service.FindEntryByID(ctx.Request.Context(), id)
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.OKResult(response, "Waitlist entry retrieved successfully")
	}
}

func listEntriesHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		limit, errResult := router.ParseIntQuery(ctx, "limit", DefaultListLimit)
		if errResult != nil {
			return errResult
		}
		offset, errResult := router.ParseIntQuery(ctx, "offset", 0)
		if errResult != nil {
			return errResult
		}

		response, err := service.ListEntries(ctx.Request.Context(), limit, offset)
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.OKResult(response, "Waitlist entries retrieved successfully")
	}
}

func statsHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := service.Stats(ctx.Request.Context())
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.OKResult(response, "Waitlist stats retrieved successfully")
	}
}

func exportHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var buf bytes.Buffer

		if err := service.Export(ctx.Request.Context(), &buf); err != nil {
			router.GetLogger(ctx).Error("Failed to export waitlist", "error", err)
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		filename := fmt.Sprintf("waitlist-%s.csv", time.Now().UTC().Format("20060102"))
		return router.DataResult(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes()).
			WithHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
}

func previewCleanupHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		report, err := service.PreviewCleanup(ctx.Request.Context())
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.OKResult(report, "Cleanup preview (no changes made)")
	}
}

func applyCleanupHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		report, err := service.ApplyCleanup(ctx.Request.Context())
		if err != nil {
			router.GetLogger(ctx).Error("Cleanup failed", "error", err)
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.OKResult(report, report.Message)
	}
}
