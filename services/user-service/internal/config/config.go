package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/SHAN0945/SafeTrail/shared/mailer"
)

// UserServiceConfig holds every setting of the user service, read from the environment.
type UserServiceConfig struct {
	Server    ServerConfig
	Mongo     MongoConfig
	Google    GoogleConfig
	Token     TokenConfig
	Cookie    CookieConfig
	RateLimit RateLimitConfig
	Consul    ConsulConfig
	Log       LogConfig
	SMTP      mailer.Config

	AppPasswordResetURL string `env:"APP_PASSWORD_RESET_URL"`
}

type ServerConfig struct {
	Port                int           `env:"PORT"                  envDefault:"8080"`
	GRPCHealthPort      int           `env:"GRPC_HEALTH_PORT"      envDefault:"9090"`
	AppBaseURL          string        `env:"APP_BASE_URL"`
	DefaultRedirectPath string        `env:"DEFAULT_REDIRECT_PATH" envDefault:"/dashboard"`
	CORSAllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS"  envSeparator:","`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT"      envDefault:"10s"`
}

type MongoConfig struct {
	URI            string        `env:"MONGO_URI"`
	Database       string        `env:"MONGO_DATABASE"        envDefault:"safetour"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize    uint64        `env:"MONGO_MAX_POOL_SIZE"   envDefault:"100"`
}

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
}

type TokenConfig struct {
	Issuer                      string        `env:"SESSION_TOKEN_ISSUER"            envDefault:"safetrail"`
	SessionTokenSecret          string        `env:"SESSION_TOKEN_SECRET"`
	SessionTokenExpiresIn       time.Duration `env:"SESSION_TOKEN_EXPIRES_IN"        envDefault:"720h"`
	PasswordResetTokenSecret    string        `env:"PASSWORD_RESET_TOKEN_SECRET"`
	PasswordResetTokenExpiresIn time.Duration `env:"PASSWORD_RESET_TOKEN_EXPIRES_IN" envDefault:"15m"`
}

type CookieConfig struct {
	SessionCookieName string `env:"SESSION_COOKIE_NAME"   envDefault:"safetrail_session"`
	Secure            bool   `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
	OAuthStateSecret  string `env:"OAUTH_STATE_SECRET"`
}

type RateLimitConfig struct {
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB"              envDefault:"0"`
	RequestsPerMin int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`
}

// Enabled reports whether a Redis address has been configured.
func (c RateLimitConfig) Enabled() bool {
	return c.RedisAddr != ""
}

type ConsulConfig struct {
	Addr        string `env:"CONSUL_ADDR"`
	ServiceName string `env:"SERVICE_NAME"  envDefault:"user-service"`
	ServiceHost string `env:"SERVICE_HOST"  envDefault:"localhost"`
}

// Enabled reports whether the service should register itself with Consul.
func (c ConsulConfig) Enabled() bool {
	return c.Addr != ""
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// NewUserServiceConfig parses the environment and exits when the result is unusable.
func NewUserServiceConfig(logger *zerolog.Logger) *UserServiceConfig {
	cfg, err := Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load user service configuration")
	}

	return cfg
}

// Load parses and validates the configuration, filling derived defaults.
func Load() (*UserServiceConfig, error) {
	cfg, err := env.ParseAs[UserServiceConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	cfg.Server.AppBaseURL = strings.TrimRight(cfg.Server.AppBaseURL, "/")
	if cfg.Google.RedirectURL == "" && cfg.Server.AppBaseURL != "" {
		cfg.Google.RedirectURL = cfg.Server.AppBaseURL + "/auth/google/callback"
	}
	if len(cfg.Server.CORSAllowedOrigins) == 0 && cfg.Server.AppBaseURL != "" {
		cfg.Server.CORSAllowedOrigins = []string{cfg.Server.AppBaseURL}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *UserServiceConfig) validate() error {
	if c.Server.AppBaseURL == "" {
		return fmt.Errorf("missing APP_BASE_URL environment variable")
	}
	u, err := url.Parse(c.Server.AppBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("APP_BASE_URL must be an absolute URL")
	}
	if !strings.HasPrefix(c.Server.DefaultRedirectPath, "/") {
		return fmt.Errorf("DEFAULT_REDIRECT_PATH must start with /")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("missing MONGO_URI environment variable")
	}
	if c.Google.ClientID == "" {
		return fmt.Errorf("missing GOOGLE_CLIENT_ID environment variable")
	}
	if c.Google.ClientSecret == "" {
		return fmt.Errorf("missing GOOGLE_CLIENT_SECRET environment variable")
	}
	if c.Token.SessionTokenSecret == "" {
		return fmt.Errorf("missing SESSION_TOKEN_SECRET environment variable")
	}
	if c.Token.SessionTokenExpiresIn <= 0 {
		return fmt.Errorf("SESSION_TOKEN_EXPIRES_IN must be positive")
	}
	if c.Cookie.OAuthStateSecret == "" {
		return fmt.Errorf("missing OAUTH_STATE_SECRET environment variable")
	}
	if c.SMTP.Enabled() {
		if err := c.SMTP.Validate(); err != nil {
			return err
		}
		if c.Token.PasswordResetTokenSecret == "" {
			return fmt.Errorf("missing PASSWORD_RESET_TOKEN_SECRET environment variable")
		}
		if c.AppPasswordResetURL == "" {
			return fmt.Errorf("missing APP_PASSWORD_RESET_URL environment variable")
		}
	}

	return nil
}
