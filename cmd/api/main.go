package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mhkarimi/portfolio-backend/internal/config"
	gateway "github.com/mhkarimi/portfolio-backend/internal/gateways"
	"github.com/mhkarimi/portfolio-backend/internal/geoip"
	"github.com/mhkarimi/portfolio-backend/internal/handlers"
	"github.com/mhkarimi/portfolio-backend/internal/repository"
	"github.com/mhkarimi/portfolio-backend/internal/services"
	"github.com/mhkarimi/portfolio-backend/internal/spam"
	xhttp "github.com/mhkarimi/portfolio-backend/pkg/http"
	"github.com/mhkarimi/portfolio-backend/pkg/logger"
	"github.com/mhkarimi/portfolio-backend/pkg/prom"
	"github.com/mhkarimi/portfolio-backend/pkg/ratelimit"
	"github.com/mhkarimi/portfolio-backend/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()

	if cfg.AppDebugMetricsAddr != "" {
		host, _ := os.Hostname()
		if err := prom.Create(host, cfg.AppEnv, cfg.PromNamespace); err != nil {
			logger.Error("failed to create metrics", "error", err)
			return
		}
		go prom.ListenAndServe(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Use(xhttp.CompressMiddleware(6))
	// timeout must cover synchronous notification delivery, which can hold
	// the request for the full retry schedule
	s.Use(xhttp.TimeoutMiddleware(time.Second * 45))
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.CORSMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	limiter := createLimiter(cfg)
	globalPolicy := ratelimit.Policy{
		Name:   "global",
		Limit:  cfg.RateLimitGlobal,
		Window: cfg.RateLimitGlobalWindow,
	}
	contactPolicy := ratelimit.Policy{
		Name:   "contact",
		Limit:  cfg.RateLimitContact,
		Window: cfg.RateLimitContactWindow,
	}
	s.Use(xhttp.RateLimitMiddleware(limiter, globalPolicy, func(ctx *xhttp.RequestCtx) bool {
		return strings.HasPrefix(string(ctx.Path()), "/api/")
	}, func() { prom.IncRateLimited("global") }))
	s.Use(xhttp.RateLimitMiddleware(limiter, contactPolicy, func(ctx *xhttp.RequestCtx) bool {
		return string(ctx.Method()) == "POST" && string(ctx.Path()) == "/api/contact"
	}, func() { prom.IncRateLimited("contact") }))

	messageRepo, err := repository.NewMessageRepository(cfg.MessagesFile)
	if err != nil {
		logger.Error("failed to open message store", "path", cfg.MessagesFile, "error", err)
		return
	}

	var notifier services.Notifier
	if cfg.TelegramConfigured() {
		notifier = gateway.NewTelegramClient(gateway.Config{
			BaseURL:  cfg.TelegramAPIBaseURL,
			BotToken: cfg.TelegramBotToken,
			ChatID:   cfg.TelegramChatID,
		})
	} else {
		logger.Warn("telegram credentials not set, notifications disabled")
	}

	var geo services.GeoResolver
	if cfg.GeoLookup {
		geo = geoip.NewResolver(cfg.GeoAPIBaseURL)
	}

	// services
	contactService := services.NewContactService(messageRepo, notifier, geo, spam.NewDetector())

	// handlers
	contactHandler := handlers.NewContactHandler(contactService, cfg.AdminToken)
	healthHandler := handlers.NewHealthHandler()

	g := s.Router.Group("/api")
	handlers.RegisterContactRoutes(g, contactHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	// everything that is not an API route is the front-end
	s.Router.NotFound = handlers.NewStaticHandler(cfg.StaticDir)

	logger.Info("starting api", "version", version, "commit", commit, "build_date", date, "addr", cfg.HttpListenAddr)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(cfg.HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

// createLimiter prefers redis so limits survive restarts and are shared
// across replicas; without a redis address it counts in memory.
func createLimiter(cfg *config.Config) ratelimit.Limiter {
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter()
	}
	adapter, err := redis.NewAdapter("default", cfg.AppName, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: "default",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis, falling back to in-memory rate limiting", "error", err)
		return ratelimit.NewMemoryLimiter()
	}
	return ratelimit.NewRedisLimiter(adapter)
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
