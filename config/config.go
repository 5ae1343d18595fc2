package config

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/edge-router/internal/strategy"
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

const (
	DefaultPath                = "./config/config.yaml"
	DefaultAdminAddress        = ":9090"
	DefaultHealthCheckInterval = time.Second
	DefaultProbeFrequency      = 10 * time.Second
	DefaultProbeTimeout        = time.Second
	DefaultProbeConcurrency    = 16
)

// EnvPrefix prefixes environment overrides, e.g. EDGE_GLOBAL_PORT.
const EnvPrefix = "EDGE"

type TLSConfig struct {
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
	CA   string `mapstructure:"ca"`
}

type HealthCheckConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Frequency   time.Duration `mapstructure:"frequency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

type GlobalConfig struct {
	Port         uint16            `mapstructure:"port"`
	TLS          *TLSConfig        `mapstructure:"tls"`
	AdminAddress string            `mapstructure:"admin_address"`
	LogLevel     string            `mapstructure:"log_level"`
	Environment  string            `mapstructure:"environment"`
	HealthCheck  HealthCheckConfig `mapstructure:"health_check"`
}

// ServerRule binds a list of hostnames to an upstream.
type ServerRule struct {
	ServerName []string `mapstructure:"server_name"`
	Upstream   string   `mapstructure:"upstream"`
	TLS        *bool    `mapstructure:"tls"`
	UpstreamCA string   `mapstructure:"upstream_ca"`
}

// UseTLS reports whether the rule asks for an encrypted upstream connection.
func (s ServerRule) UseTLS() bool {
	return s.TLS != nil && *s.TLS
}

type UpstreamDefinition struct {
	Name    string   `mapstructure:"name"`
	Servers []string `mapstructure:"servers"`
	Policy  string   `mapstructure:"policy"`
}

// RawConfig is the decoded, structurally valid document. It has not been
// checked against the filesystem or for dangling upstream references.
type RawConfig struct {
	Global    GlobalConfig         `mapstructure:"global"`
	Servers   []ServerRule         `mapstructure:"servers"`
	Upstreams []UpstreamDefinition `mapstructure:"upstreams"`
}

// Path returns the configuration file location, taken from EDGE_CONFIG when
// set.
func Path() string {
	if p := strings.TrimSpace(os.Getenv(EnvPrefix + "_CONFIG")); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads and parses the file at path.
func Load(path string) (*RawConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(bytes.NewReader(b))
}

// Parse decodes a YAML document. Environment variables prefixed with
// EnvPrefix override document values.
func Parse(r io.Reader) (*RawConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("global.admin_address", DefaultAdminAddress)
	v.SetDefault("global.log_level", LogLevelInfo)
	v.SetDefault("global.environment", EnvDev)
	v.SetDefault("global.health_check.interval", DefaultHealthCheckInterval)
	v.SetDefault("global.health_check.frequency", DefaultProbeFrequency)
	v.SetDefault("global.health_check.timeout", DefaultProbeTimeout)
	v.SetDefault("global.health_check.concurrency", DefaultProbeConcurrency)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(r); err != nil {
		return nil, &ParseError{Err: err}
	}

	for _, key := range []string{"servers", "upstreams"} {
		if !v.IsSet(key) {
			return nil, &ParseError{Err: fmt.Errorf("missing required key %q", key)}
		}
	}

	var raw RawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, &ParseError{Err: err}
	}

	if err := raw.Validate(); err != nil {
		return nil, &ParseError{Err: err}
	}

	return &raw, nil
}

func (c RawConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Global),
		validation.Field(&c.Servers),
		validation.Field(&c.Upstreams),
	)
}

func (g GlobalConfig) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Port, validation.Required),
		validation.Field(&g.TLS),
		validation.Field(&g.AdminAddress, validation.Required, validation.By(validateHostPort)),
		validation.Field(&g.LogLevel,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
		validation.Field(&g.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&g.HealthCheck),
	)
}

func (t TLSConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Cert, validation.Required),
		validation.Field(&t.Key, validation.Required),
	)
}

func (h HealthCheckConfig) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Interval, validation.By(validatePositiveDuration)),
		validation.Field(&h.Frequency, validation.By(validatePositiveDuration)),
		validation.Field(&h.Timeout, validation.By(validatePositiveDuration)),
		validation.Field(&h.Concurrency, validation.Required, validation.Min(1)),
	)
}

func (s ServerRule) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ServerName,
			validation.Required,
			validation.Each(validation.Required, is.Host),
		),
		validation.Field(&s.Upstream, validation.Required),
	)
}

func (u UpstreamDefinition) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Name, validation.Required),
		validation.Field(&u.Servers, validation.Each(validation.By(validateBackendAddress))),
		validation.Field(&u.Policy, validation.In(strategy.Policies...)),
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

func validateBackendAddress(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if host == "" {
		return validation.NewError("validation_missing_host", "backend host cannot be empty")
	}

	if n, err := strconv.ParseUint(port, 10, 16); err != nil || n == 0 {
		return validation.NewError("validation_invalid_port", "port must be between 1 and 65535")
	}

	return nil
}

func validatePositiveDuration(value interface{}) error {
	d, ok := value.(time.Duration)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a duration")
	}

	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be a positive duration (e.g., 1s, 500ms)")
	}

	return nil
}
