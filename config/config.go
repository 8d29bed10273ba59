package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
	Timeout  string `mapstructure:"timeout"`
}

// TargetConfig describes one backend in the round-robin pool. The balancer
// never inspects the traffic it forwards; the health check path is the only
// HTTP surface it relies on.
type TargetConfig struct {
	Address         string `mapstructure:"address"`
	HealthCheckPath string `mapstructure:"health_check_path"`
}

// PathRouteConfig pins every request path sharing PathPrefix to one fixed
// address. Order matters: the first matching prefix wins.
type PathRouteConfig struct {
	PathPrefix string `mapstructure:"path_prefix"`
	Address    string `mapstructure:"address"`
}

type AdminConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Targets     []TargetConfig    `mapstructure:"targets"`
	PathRoutes  []PathRouteConfig `mapstructure:"path_routes"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("health_check.interval", "5s")
	viper.SetDefault("health_check.timeout", "2s")
	viper.SetDefault("admin.enabled", false)
	viper.SetDefault("admin.address", ":9090")
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Error("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// HealthCheckInterval returns the parsed probe period. Validate guarantees
// the string parses, so the error from a hand-built Config still surfaces.
func (c *Config) HealthCheckInterval() (time.Duration, error) {
	return time.ParseDuration(c.HealthCheck.Interval)
}

// HealthCheckTimeout returns the parsed per-probe timeout.
func (c *Config) HealthCheckTimeout() (time.Duration, error) {
	return time.ParseDuration(c.HealthCheck.Timeout)
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&hc.Timeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Targets,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateTargetConfig)),
		),
		validation.Field(&c.PathRoutes,
			validation.Each(validation.By(validatePathRouteConfig)),
		),
		validation.Field(&c.Admin,
			validation.By(func(value interface{}) error {
				ac, ok := value.(AdminConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an AdminConfig")
				}
				if !ac.Enabled {
					return nil
				}
				return validation.ValidateStruct(&ac,
					validation.Field(&ac.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateTargetConfig(value interface{}) error {
	target, ok := value.(TargetConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a TargetConfig")
	}

	if err := validateHostPort(target.Address); err != nil {
		return err
	}

	if target.HealthCheckPath == "" {
		return validation.NewError("validation_empty_path", "health check path cannot be empty")
	}

	if !strings.HasPrefix(target.HealthCheckPath, "/") {
		return validation.NewError("validation_invalid_path", "health check path must start with /")
	}

	return nil
}

func validatePathRouteConfig(value interface{}) error {
	route, ok := value.(PathRouteConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a PathRouteConfig")
	}

	if route.PathPrefix == "" {
		return validation.NewError("validation_empty_prefix", "path prefix cannot be empty")
	}

	if !strings.HasPrefix(route.PathPrefix, "/") {
		return validation.NewError("validation_invalid_prefix", "path prefix must start with /")
	}

	return validateHostPort(route.Address)
}
