// Package config loads the settings of a comparison run from a YAML file,
// a .env file and MCPCOMPARE_* environment variables, in increasing order of
// precedence, on top of built-in defaults.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/auth"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/client"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/compare"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/fingerprint"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/logging"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/observability"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/protocol"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/transport"
)

// Environment variables that override file values.
const (
	EnvEndpointA   = "MCPCOMPARE_ENDPOINT_A"
	EnvEndpointB   = "MCPCOMPARE_ENDPOINT_B"
	EnvTimeout     = "MCPCOMPARE_TIMEOUT"
	EnvSessionMode = "MCPCOMPARE_SESSION_MODE"
	EnvLogLevel    = "MCPCOMPARE_LOG_LEVEL"
)

// Key orders accepted by nested_key_order.
const (
	KeyOrderSorted   = "sorted"
	KeyOrderPreserve = "preserve"
)

// EndpointConfig describes one of the two compared servers.
type EndpointConfig struct {
	URL string `yaml:"url"`
	// SessionMode is "header" or "event-id". Empty inherits the default.
	SessionMode string            `yaml:"session_mode,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Auth        AuthConfig        `yaml:"auth,omitempty"`
}

// AuthConfig holds endpoint credentials. TokenEnv names an environment
// variable holding the token and wins over Token.
type AuthConfig struct {
	Type     string `yaml:"type,omitempty"`
	Token    string `yaml:"token,omitempty"`
	TokenEnv string `yaml:"token_env,omitempty"`
	Header   string `yaml:"header,omitempty"`
}

// RateLimitConfig paces calls to each endpoint. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// EndpointsConfig holds both sides.
type EndpointsConfig struct {
	A EndpointConfig `yaml:"a"`
	B EndpointConfig `yaml:"b"`
}

// ClientConfig is the identity the client announces in initialize.
type ClientConfig struct {
	Name            string `yaml:"name"`
	Version         string `yaml:"version"`
	SendInitialized bool   `yaml:"send_initialized"`
}

// LoggingConfig selects level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig enables the Prometheus registry and an optional textfile
// written after the run.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile,omitempty"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	// Exporter is "none", "otlp-http" or "otlp-grpc".
	Exporter   string  `yaml:"exporter"`
	Endpoint   string  `yaml:"endpoint,omitempty"`
	Insecure   bool    `yaml:"insecure"`
	SampleRate float64 `yaml:"sample_rate"`
}

// Config is the root configuration of a comparison run.
type Config struct {
	Endpoints       EndpointsConfig `yaml:"endpoints"`
	Timeout         time.Duration   `yaml:"timeout"`
	SessionMode     string          `yaml:"session_mode"`
	ProtocolVersion string          `yaml:"protocol_version"`
	Client          ClientConfig    `yaml:"client"`
	StrictEnvelope  bool            `yaml:"strict_envelope"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	NestedKeyOrder  string          `yaml:"nested_key_order"`
	Logging         LoggingConfig   `yaml:"logging"`
	Metrics         MetricsConfig   `yaml:"metrics"`
	Tracing         TracingConfig   `yaml:"tracing"`
}

// Default returns the built-in configuration. Endpoints are left empty.
func Default() *Config {
	return &Config{
		Timeout:         transport.DefaultRequestTimeout,
		SessionMode:     string(transport.SessionModeHeader),
		ProtocolVersion: protocol.ProtocolRevision,
		Client: ClientConfig{
			Name:    "mcp-fingerprint",
			Version: "1.0.0",
		},
		NestedKeyOrder: KeyOrderSorted,
		Logging: LoggingConfig{
			Level:  "info",
			Format: string(logging.FormatText),
		},
		Tracing: TracingConfig{
			Exporter:   "none",
			SampleRate: 1.0,
		},
	}
}

// Load reads path (if not empty), fills unset values from Default, then
// applies .env and environment overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := mergo.Merge(cfg, Default()); err != nil {
		return nil, errors.Wrap(err, "failed to merge default configuration")
	}

	// A missing .env is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env")
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile parses a YAML configuration file without applying defaults.
// A leading ~ expands to the home directory.
func LoadFile(path string) (*Config, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get home directory to expand path")
		}
		path = filepath.Join(home, path[1:])
	}

	// #nosec G304 -- path comes from the command line.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", path)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file YAML: %s", path)
	}
	return cfg, nil
}

// ApplyEnv overrides values from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEndpointA); ok && v != "" {
		c.Endpoints.A.URL = v
	}
	if v, ok := lookup(EnvEndpointB); ok && v != "" {
		c.Endpoints.B.URL = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvTimeout)
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvSessionMode); ok && v != "" {
		c.SessionMode = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate rejects configurations a comparison cannot start with.
func (c *Config) Validate() error {
	return c.ValidateSides(compare.SideA, compare.SideB)
}

// ValidateSides is Validate restricted to the endpoints of sides.
func (c *Config) ValidateSides(sides ...compare.Side) error {
	for _, side := range sides {
		ep := c.Endpoint(side)
		if ep.URL == "" {
			return errors.Newf("endpoint %s: url is required", side)
		}
		u, err := url.Parse(ep.URL)
		if err != nil {
			return errors.Wrapf(err, "endpoint %s", side)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.Newf("endpoint %s: scheme %q is not http or https", side, u.Scheme)
		}
		if u.Host == "" {
			return errors.Newf("endpoint %s: missing host", side)
		}
		if _, err := c.sessionMode(side); err != nil {
			return errors.Wrapf(err, "endpoint %s", side)
		}
		if _, err := c.Credentials(side); err != nil {
			return errors.Wrapf(err, "endpoint %s", side)
		}
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate_limit: values must not be negative")
	}
	if c.Timeout <= 0 {
		return errors.Newf("timeout must be positive, got %s", c.Timeout)
	}
	if _, err := c.KeyOrder(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, "logging")
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return errors.Wrap(err, "logging")
	}
	if _, err := c.ExporterType(); err != nil {
		return errors.Wrap(err, "tracing")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return errors.Newf("tracing: sample_rate %v is outside [0, 1]", c.Tracing.SampleRate)
	}
	return nil
}

// Endpoint returns the configuration of one side.
func (c *Config) Endpoint(side compare.Side) EndpointConfig {
	if side == compare.SideB {
		return c.Endpoints.B
	}
	return c.Endpoints.A
}

// Credentials resolves the credentials of one side, reading token_env from
// the environment.
func (c *Config) Credentials(side compare.Side) (auth.Credentials, error) {
	ac := c.Endpoint(side).Auth
	typ, err := auth.ParseType(ac.Type)
	if err != nil {
		return auth.Credentials{}, err
	}
	creds := auth.Credentials{Type: typ, Token: ac.Token, Header: ac.Header}
	if ac.TokenEnv != "" {
		token, ok := os.LookupEnv(ac.TokenEnv)
		if !ok {
			return auth.Credentials{}, errors.Newf("auth: environment variable %s is not set", ac.TokenEnv)
		}
		creds.Token = token
	}
	if err := creds.Validate(); err != nil {
		return auth.Credentials{}, err
	}
	return creds, nil
}

func (c *Config) sessionMode(side compare.Side) (transport.SessionMode, error) {
	if mode := c.Endpoint(side).SessionMode; mode != "" {
		return transport.ParseSessionMode(mode)
	}
	return transport.ParseSessionMode(c.SessionMode)
}

// KeyOrder returns the nested key order for the canonicalizer.
func (c *Config) KeyOrder() (fingerprint.KeyOrder, error) {
	switch strings.ToLower(c.NestedKeyOrder) {
	case "", KeyOrderSorted:
		return fingerprint.SortedKeys, nil
	case KeyOrderPreserve:
		return fingerprint.PreserveKeyOrder, nil
	default:
		return fingerprint.SortedKeys, errors.Newf("unknown nested_key_order %q", c.NestedKeyOrder)
	}
}

// ExporterType maps tracing.exporter to an observability exporter. "none"
// and the empty string select the noop exporter.
func (c *Config) ExporterType() (observability.ExporterType, error) {
	if strings.EqualFold(c.Tracing.Exporter, "none") {
		return observability.ExporterTypeNoop, nil
	}
	return observability.ParseExporterType(strings.ToLower(c.Tracing.Exporter))
}

// ConfigureTransport applies the per-side settings to a transport
// configuration. It is meant for compare.WithTransportConfig and assumes a
// validated Config.
func (c *Config) ConfigureTransport(side compare.Side, tc *transport.Config) {
	ep := c.Endpoint(side)
	tc.RequestTimeout = c.Timeout
	tc.StrictEnvelope = c.StrictEnvelope
	if mode, err := c.sessionMode(side); err == nil {
		tc.SessionMode = mode
	}
	if len(ep.Headers) > 0 {
		if tc.Headers == nil {
			tc.Headers = make(map[string]string, len(ep.Headers))
		}
		for k, v := range ep.Headers {
			tc.Headers[k] = v
		}
	}
	if creds, err := c.Credentials(side); err == nil {
		tc.Headers = creds.Apply(tc.Headers)
	}
	limit := auth.RateLimitConfig{RequestsPerSecond: c.RateLimit.RequestsPerSecond, BurstSize: c.RateLimit.Burst}
	if limit.Enabled() {
		tc.Middleware = append(tc.Middleware, auth.RateLimitMiddleware(limit))
	}
}

// CompareOptions translates the configuration into options for compare.Run.
func (c *Config) CompareOptions() ([]compare.Option, error) {
	order, err := c.KeyOrder()
	if err != nil {
		return nil, err
	}
	return []compare.Option{
		compare.WithTransportConfig(c.ConfigureTransport),
		compare.WithFingerprintOptions(fingerprint.WithNestedKeyOrder(order)),
		compare.WithClientOptions(c.ClientOptions()...),
	}, nil
}

// ClientOptions returns the client identity settings.
func (c *Config) ClientOptions() []client.Option {
	return []client.Option{
		client.WithName(c.Client.Name),
		client.WithVersion(c.Client.Version),
		client.WithProtocolVersion(c.ProtocolVersion),
		client.WithInitializedNotification(c.Client.SendInitialized),
	}
}

// TracingOptions converts the tracing section for observability.
func (c *Config) TracingOptions(serviceVersion string) (observability.TracingConfig, error) {
	exporter, err := c.ExporterType()
	if err != nil {
		return observability.TracingConfig{}, err
	}
	return observability.TracingConfig{
		ServiceName:    "mcpcompare",
		ServiceVersion: serviceVersion,
		ExporterType:   exporter,
		Endpoint:       c.Tracing.Endpoint,
		Insecure:       c.Tracing.Insecure,
		SampleRate:     c.Tracing.SampleRate,
	}, nil
}
