package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Session   SessionConfig   `mapstructure:"session"`
	Events    EventsConfig    `mapstructure:"events"`
	Billing   BillingConfig   `mapstructure:"billing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Environment    string `mapstructure:"environment"`
}

type BackendConfig struct {
	BaseURL      string          `mapstructure:"base_url"`
	Timeout      time.Duration   `mapstructure:"timeout"`
	ListCacheTTL time.Duration   `mapstructure:"list_cache_ttl"`
	Breaker      BreakerConfig   `mapstructure:"breaker"`
	Endpoints    EndpointsConfig `mapstructure:"endpoints"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// endpointEnv carries endpoint overrides in a single variable, e.g.
// PORTAL_BACKEND_ENDPOINT_OVERRIDES="confirm:v2/confirm.php,cancel:v2/cancel.php".
type endpointEnv struct {
	Overrides map[string]string `envconfig:"ENDPOINT_OVERRIDES"`
}

// EndpointsConfig holds backend paths relative to BaseURL.
type EndpointsConfig struct {
	ListAppointments     string `mapstructure:"list_appointments"`
	UpcomingAppointments string `mapstructure:"upcoming_appointments"`
	Confirm              string `mapstructure:"confirm"`
	Cancel               string `mapstructure:"cancel"`
	Reject               string `mapstructure:"reject"`
	Complete             string `mapstructure:"complete"`
	Reschedule           string `mapstructure:"reschedule"`
	PatientLogin         string `mapstructure:"patient_login"`
	AdminLogin           string `mapstructure:"admin_login"`
	Invoice              string `mapstructure:"invoice"`
	Receipt              string `mapstructure:"receipt"`
}

type SessionConfig struct {
	Secret     string        `mapstructure:"secret"`
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
	RedisURL   string        `mapstructure:"redis_url"`
	Secure     bool          `mapstructure:"secure"`
}

type EventsConfig struct {
	RedisChannel string `mapstructure:"redis_channel"`
}

type BillingConfig struct {
	Logo         string `mapstructure:"logo"`
	HospitalName string `mapstructure:"hospital_name"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Development reports whether the portal runs in a development environment.
func (c *Config) Development() bool {
	return c.Server.Environment == "" || c.Server.Environment == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", "development")

	v.SetDefault("backend.base_url", "http://localhost/hospital/api")
	v.SetDefault("backend.timeout", 0)
	v.SetDefault("backend.list_cache_ttl", 10*time.Second)
	v.SetDefault("backend.breaker.max_failures", 5)
	v.SetDefault("backend.breaker.open_timeout", 30*time.Second)
	v.SetDefault("backend.endpoints.list_appointments", "appointments/list.php")
	v.SetDefault("backend.endpoints.upcoming_appointments", "appointments/upcoming.php")
	v.SetDefault("backend.endpoints.confirm", "appointments/confirm.php")
	v.SetDefault("backend.endpoints.cancel", "appointments/cancel.php")
	v.SetDefault("backend.endpoints.reject", "appointments/reject.php")
	v.SetDefault("backend.endpoints.complete", "appointments/complete.php")
	v.SetDefault("backend.endpoints.reschedule", "appointments/reschedule.php")
	v.SetDefault("backend.endpoints.patient_login", "auth/patient_login.php")
	v.SetDefault("backend.endpoints.admin_login", "auth/admin_login.php")
	v.SetDefault("backend.endpoints.invoice", "billing/invoice.php")
	v.SetDefault("backend.endpoints.receipt", "billing/receipt.php")

	v.SetDefault("session.cookie_name", "portal_session")
	v.SetDefault("session.ttl", 12*time.Hour)

	v.SetDefault("events.redis_channel", "portal.appointments")

	v.SetDefault("billing.hospital_name", "General Hospital")

	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from the working directory or ./config,
// applies PORTAL_* environment overrides and validates the result.
// A missing file is not an error; defaults apply.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env endpointEnv
	if err := envconfig.Process("PORTAL_BACKEND", &env); err != nil {
		return nil, fmt.Errorf("failed to process backend env: %w", err)
	}
	if err := config.Backend.Endpoints.override(env.Overrides); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (e *EndpointsConfig) override(paths map[string]string) error {
	fields := map[string]*string{
		"list_appointments":     &e.ListAppointments,
		"upcoming_appointments": &e.UpcomingAppointments,
		"confirm":               &e.Confirm,
		"cancel":                &e.Cancel,
		"reject":                &e.Reject,
		"complete":              &e.Complete,
		"reschedule":            &e.Reschedule,
		"patient_login":         &e.PatientLogin,
		"admin_login":           &e.AdminLogin,
		"invoice":               &e.Invoice,
		"receipt":               &e.Receipt,
	}
	for name, path := range paths {
		field, ok := fields[name]
		if !ok {
			return fmt.Errorf("unknown backend endpoint override: %q", name)
		}
		if path == "" {
			return fmt.Errorf("empty path for backend endpoint %q", name)
		}
		*field = path
	}
	return nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Session.Secret == "" {
		if !c.Development() {
			return fmt.Errorf("session.secret is required outside development")
		}
		c.Session.Secret = "development-only-secret"
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	return nil
}
