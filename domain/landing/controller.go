package landing

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/akeren/waitlist-landing/config/router"
	"github.com/akeren/waitlist-landing/web"
)

const (
	TemplateIndex  = "index.html"
	TemplateThanks = "thanks.html"

	scriptName = "waitlist.js"
)

// PageConfig is the copy rendered on the landing page.
type PageConfig struct {
	Product     string
	Headline    string
	Description string
}

func DefaultPageConfig() PageConfig {
	return PageConfig{
		Product:     "Reform",
		Headline:    "Exercise Technique Analyzer",
		Description: "Real-time feedback for walking, squats, basketball, and more. Improve technique, prevent injury, and reform your lifestyle.",
	}
}

type indexPage struct {
	PageConfig
	CaptureURL string
	PixelURL   string
	ThanksURL  string
	ScriptURL  string
	Year       int
}

type thanksPage struct {
	Product   string
	Submitted bool
	Email     string
	HomeURL   string
}

func NewLandingController(cfg PageConfig) *router.RESTController {
	return router.NewRESTController(
		"LandingController",
		"/",
		func(rs *router.RouterService, c *router.RESTController) {
			script := loadScript()

			rs.AddGetHandler(c, nil, "", indexHandler(cfg))
			rs.AddGetHandler(c, nil, "thanks", thanksHandler(cfg))
			rs.AddGetHandler(c, nil, "static/"+scriptName, scriptHandler(script))
		},
	)
}

func loadScript() []byte {
	static, err := web.Static()
	if err != nil {
		panic(err)
	}
	script, err := fs.ReadFile(static, scriptName)
	if err != nil {
		panic(err)
	}
	return script
}

func indexHandler(cfg PageConfig) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		return router.HTMLResult(http.StatusOK, TemplateIndex, indexPage{
			PageConfig: cfg,
			CaptureURL: "/v1/waitlist",
			PixelURL:   "/v1/waitlist/pixel",
			ThanksURL:  "/thanks",
			ScriptURL:  "/static/" + scriptName,
			Year:       time.Now().Year(),
		})
	}
}

func thanksHandler(cfg PageConfig) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		return router.HTMLResult(http.StatusOK, TemplateThanks, thanksPage{
			Product:   cfg.Product,
			Submitted: strings.EqualFold(ctx.Query("submitted"), "true"),
			Email:     strings.TrimSpace(ctx.Query("email")),
			HomeURL:   "/",
		}).WithHeader("Cache-Control", "no-store")
	}
}

func scriptHandler(script []byte) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		return router.DataResult(http.StatusOK, "application/javascript; charset=utf-8", script).
			WithHeader("Cache-Control", "public, max-age=300")
	}
}
