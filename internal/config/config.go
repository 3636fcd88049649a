package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mhkarimi/portfolio-backend/pkg/logger"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every env-backed setting. Only this struct must be used to
// hold configuration values, no direct env access elsewhere.
type Config struct {
	AppEnv              string `env:"APP_ENV" default:"dev"`
	AppName             string `env:"APP_NAME" default:"portfolio_backend"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI"`

	HttpListenAddr string `env:"HTTP_LISTEN_ADDR" default:":8080"`
	StaticDir      string `env:"STATIC_DIR" default:"./public"`

	MessagesFile string `env:"MESSAGES_FILE" default:"data/messages.json"`

	// Telegram credentials are optional; when either is empty the notifier
	// is never invoked and deliveries are recorded as "not configured".
	TelegramBotToken   string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID     string `env:"TELEGRAM_CHAT_ID"`
	TelegramAPIBaseURL string `env:"TELEGRAM_API_BASE_URL" default:"https://api.telegram.org"`

	// AdminToken gates the list/get/delete/resend endpoints. Leaving it
	// empty keeps them open, which is only acceptable for local use.
	AdminToken string `env:"ADMIN_TOKEN"`

	GeoAPIBaseURL string `env:"GEO_API_BASE_URL" default:"http://ip-api.com"`
	GeoLookup     bool   `env:"GEO_LOOKUP" default:"1"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisUsername string `env:"REDIS_USER"`
	RedisPassword string `env:"REDIS_PASS"`
	RedisDatabase int    `env:"REDIS_DATABASE"`

	RateLimitGlobal        int64         `env:"RATE_LIMIT_GLOBAL" default:"100"`
	RateLimitGlobalWindow  time.Duration `env:"RATE_LIMIT_GLOBAL_WINDOW" default:"15m"`
	RateLimitContact       int64         `env:"RATE_LIMIT_CONTACT" default:"5"`
	RateLimitContactWindow time.Duration `env:"RATE_LIMIT_CONTACT_WINDOW" default:"1h"`

	PromNamespace string `env:"PROM_NAMESPACE" default:"portfolio"`
}

// TelegramConfigured reports whether delivery credentials are present.
func (c *Config) TelegramConfigured() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)
	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
