// Package config defines the server configuration for browserd.
//
// Configuration is resolved once at process entry and passed by value into
// the session server, so it is frozen for the lifetime of the process.
// Sources, lowest to highest precedence: documented defaults, an optional
// YAML file, environment variables, command-line flags (applied by cmd).
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Documented defaults. A missing optional setting never fails configuration;
// only invalid values do.
const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 37367
	DefaultControlPath = "default"
	DefaultScheme      = "ws"
)

// Environment variables consumed by ApplyEnv.
const (
	EnvHost        = "BROWSERD_HOST"
	EnvPort        = "BROWSERD_PORT"
	EnvControlPath = "BROWSERD_WS_PATH"
	EnvScheme      = "BROWSERD_WS_SCHEME"
)

// ErrInvalidConfig marks configuration validation failures. These surface
// before any launch attempt is made.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the immutable server configuration value.
type Config struct {
	// Host is the bind address for the control listener.
	Host string `yaml:"host" json:"host"`

	// Port is the listen port. Zero requests an ephemeral port chosen by
	// the kernel; the emitted endpoint reports the port actually bound.
	Port int `yaml:"port" json:"port"`

	// ControlPath is the opaque path segment identifying this server
	// instance's control endpoint, without a leading slash.
	ControlPath string `yaml:"ws_path" json:"ws_path"`

	// Scheme is the scheme of the emitted endpoint ("ws" or "wss").
	// The server itself always speaks plain websocket; "wss" is for
	// deployments fronted by a TLS terminator.
	Scheme string `yaml:"ws_scheme" json:"ws_scheme"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		ControlPath: DefaultControlPath,
		Scheme:      DefaultScheme,
	}
}

// LoadFile reads a YAML configuration file over the defaults. Fields left
// unset in the file keep their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}

	return cfg, nil
}

// ApplyEnv overlays environment variables onto the configuration. Unset
// variables are ignored; an invalid integer port is a validation failure.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvHost); v != "" {
		c.Host = v
	}

	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, EnvPort, v)
		}
		c.Port = port
	}

	if v := os.Getenv(EnvControlPath); v != "" {
		c.ControlPath = v
	}

	if v := os.Getenv(EnvScheme); v != "" {
		c.Scheme = v
	}

	return nil
}

// Validate checks the configuration before any launch attempt.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidConfig)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range 0-65535", ErrInvalidConfig, c.Port)
	}

	path := strings.TrimPrefix(c.ControlPath, "/")
	if path == "" {
		return fmt.Errorf("%w: control path must not be empty", ErrInvalidConfig)
	}
	if strings.ContainsAny(path, "/ \t") {
		return fmt.Errorf("%w: control path %q must be a single path segment", ErrInvalidConfig, c.ControlPath)
	}
	// The path is registered as a route; pattern metacharacters would turn
	// the opaque segment into a wildcard or an invalid route.
	if strings.ContainsAny(path, "{}*") {
		return fmt.Errorf("%w: control path %q must not contain {, }, or *", ErrInvalidConfig, c.ControlPath)
	}

	if c.Scheme != "ws" && c.Scheme != "wss" {
		return fmt.Errorf("%w: scheme %q must be ws or wss", ErrInvalidConfig, c.Scheme)
	}

	return nil
}

// NormalizedPath returns the control path without a leading slash.
func (c Config) NormalizedPath() string {
	return strings.TrimPrefix(c.ControlPath, "/")
}

// Endpoint returns the fully qualified control endpoint for this
// configuration, e.g. ws://127.0.0.1:37367/default. IPv6 hosts are
// bracketed so the endpoint stays parseable.
func (c Config) Endpoint() string {
	hostPort := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	return fmt.Sprintf("%s://%s/%s", c.Scheme, hostPort, c.NormalizedPath())
}

// ParseEndpoint recovers a configuration from an emitted endpoint string.
// Supervising tooling uses this to round-trip the announce line back into
// host, port, and control path.
func ParseEndpoint(raw string) (Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%w: endpoint %q: %v", ErrInvalidConfig, raw, err)
	}

	if u.Scheme != "ws" && u.Scheme != "wss" {
		return Config{}, fmt.Errorf("%w: endpoint %q has scheme %q, want ws or wss", ErrInvalidConfig, raw, u.Scheme)
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return Config{}, fmt.Errorf("%w: endpoint %q has no valid port", ErrInvalidConfig, raw)
	}

	cfg := Config{
		Host:        u.Hostname(),
		Port:        port,
		ControlPath: strings.TrimPrefix(u.Path, "/"),
		Scheme:      u.Scheme,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
