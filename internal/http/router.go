package http

import (
	"log/slog"

	"github.com/geocoder89/garbagewatch/internal/config"
	"github.com/geocoder89/garbagewatch/internal/http/handlers"
	"github.com/geocoder89/garbagewatch/internal/http/middlewares"
	"github.com/geocoder89/garbagewatch/internal/observability"
	"github.com/geocoder89/garbagewatch/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps is everything the router needs. Prom, Gatherer and the limiters are optional.
type Deps struct {
	Log    *slog.Logger
	Config config.Config

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	Accounts handlers.AccountService
	Reports  handlers.ReportService
	Tokens   middlewares.TokenVerifier
	Users    middlewares.UserFinder

	AuthLimiter  ratelimit.Limiter
	WriteLimiter ratelimit.Limiter
	Checks       map[string]handlers.Check
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))

	// health
	h := handlers.NewHealthHandler(d.Checks, log)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authLimiter := d.AuthLimiter
	if authLimiter == nil {
		authLimiter = ratelimit.NewWindow(cfg.AuthRateLimit, cfg.AuthRateWindow)
	}
	limitAuth := middlewares.RateLimit(authLimiter, "auth", middlewares.KeyByIP)

	writeLimiter := d.WriteLimiter
	if writeLimiter == nil {
		writeLimiter = ratelimit.NewWindow(cfg.WriteRateLimit, cfg.WriteRateWindow)
	}
	// runs after RequireAuth so the caller id is known
	limitWrites := middlewares.RateLimit(writeLimiter, "writes", middlewares.KeyByUserOrIP)

	authMW := middlewares.NewAuthMiddleware(d.Tokens, d.Users, d.Prom)
	accountsHandler := handlers.NewAccountsHandler(d.Accounts, log)
	reportsHandler := handlers.NewReportsHandler(d.Reports, log)

	api := r.Group("/api")

	api.POST("/register", limitAuth, accountsHandler.Register)
	api.POST("/login", limitAuth, accountsHandler.Login)

	protected := api.Group("")
	protected.Use(authMW.RequireAuth())
	protected.GET("/user", accountsHandler.Me)

	protected.POST("/detections", limitWrites, reportsHandler.Submit)
	protected.GET("/detections", reportsHandler.List)
	protected.PATCH("/detections/:id", limitWrites, reportsHandler.UpdateStatus)
	protected.DELETE("/detections/:id", limitWrites, reportsHandler.Delete)

	return r
}
