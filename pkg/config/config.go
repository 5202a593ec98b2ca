// Package config builds the configuration of the cache transporter, once, at process start.
//
// Settings come from defaults, an optional YAML config file, CACHE_TRANSPORTER_* environment
// variables and command line flags, by increasing order of precedence.
package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/oneconcern/cachetransporter/pkg/dlogger"
	"github.com/oneconcern/cachetransporter/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// Configuration keys. Each key maps to the environment variable CACHE_TRANSPORTER_{KEY},
// with dashes replaced by underscores.
const (
	KeyURI               = "uri"
	KeyTemp              = "temp"
	KeyHost              = "host"
	KeyPort              = "port"
	KeyStorage           = "storage"
	KeyLogLevel          = "loglevel"
	KeyTimeout           = "timeout"
	KeyDialTimeout       = "dial-timeout"
	KeyReadHeaderTimeout = "read-header-timeout"
	KeyShutdownTimeout   = "shutdown-timeout"
	KeyMaxBodySize       = "max-body-size"
)

const (
	// EnvPrefix of all environment variables
	EnvPrefix = "CACHE_TRANSPORTER"

	// EnvConfigFile points to an explicit config file
	EnvConfigFile = EnvPrefix + "_CONFIG"

	// Name of the config file, searched in the current directory then in $HOME/.cache-transporter
	Name = "cache-transporter"
)

var (
	// ErrInvalidConfig indicates a setting out of its domain
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingURI indicates that an operation requires the server url
	ErrMissingURI = errors.New("the server url is required: set " + EnvPrefix + "_URI or use --" + KeyURI)
)

// Config of the cache transporter
type Config struct {
	URI               string        `json:"uri" yaml:"uri"`
	Temp              string        `json:"temp" yaml:"temp"`
	Host              string        `json:"host" yaml:"host"`
	Port              int           `json:"port" yaml:"port"`
	Storage           string        `json:"storage" yaml:"storage"`
	LogLevel          string        `json:"loglevel" yaml:"loglevel"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`
	DialTimeout       time.Duration `json:"dial-timeout" yaml:"dial-timeout"`
	ReadHeaderTimeout time.Duration `json:"read-header-timeout" yaml:"read-header-timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown-timeout" yaml:"shutdown-timeout"`
	MaxBodySize       int64         `json:"max-body-size" yaml:"max-body-size"`
}

// SetDefaults registers the default settings
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyURI, "")
	v.SetDefault(KeyTemp, "/tmp")
	v.SetDefault(KeyHost, "0.0.0.0")
	v.SetDefault(KeyPort, 33813)
	v.SetDefault(KeyStorage, ".cache/cache-transporter")
	v.SetDefault(KeyLogLevel, dlogger.LogLevelInfo)
	v.SetDefault(KeyTimeout, "0s")
	v.SetDefault(KeyDialTimeout, "30s")
	v.SetDefault(KeyReadHeaderTimeout, "30s")
	v.SetDefault(KeyShutdownTimeout, "10s")
	v.SetDefault(KeyMaxBodySize, "0")
}

// New viper instance with defaults, bound to the environment
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadConfigFile loads the config file pointed to by $CACHE_TRANSPORTER_CONFIG, or else
// the first cache-transporter.yaml found in the current directory or in $HOME/.cache-transporter.
//
// It returns the name of the file used, or an empty string when no config file exists.
func ReadConfigFile(v *viper.Viper) (string, error) {
	if explicit := os.Getenv(EnvConfigFile); explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/." + Name)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", err
	}
	return v.ConfigFileUsed(), nil
}

// Load the configuration from viper and validate it
func Load(v *viper.Viper) (Config, error) {
	maxBodySize, err := parseSize(v.GetString(KeyMaxBodySize))
	if err != nil {
		return Config{}, ErrInvalidConfig.Detail("%s: %v", KeyMaxBodySize, err)
	}
	c := Config{
		URI:               v.GetString(KeyURI),
		Temp:              v.GetString(KeyTemp),
		Host:              v.GetString(KeyHost),
		Port:              v.GetInt(KeyPort),
		Storage:           v.GetString(KeyStorage),
		LogLevel:          v.GetString(KeyLogLevel),
		Timeout:           v.GetDuration(KeyTimeout),
		DialTimeout:       v.GetDuration(KeyDialTimeout),
		ReadHeaderTimeout: v.GetDuration(KeyReadHeaderTimeout),
		ShutdownTimeout:   v.GetDuration(KeyShutdownTimeout),
		MaxBodySize:       maxBodySize,
	}
	if err = c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// parseSize accepts a number of bytes or a human readable size such as 10GB
func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	return units.FromHumanSize(s)
}

// Validate the settings
func (c Config) Validate() error {
	switch {
	case c.Temp == "":
		return ErrInvalidConfig.Detail("%s must not be empty", KeyTemp)
	case c.Storage == "":
		return ErrInvalidConfig.Detail("%s must not be empty", KeyStorage)
	case c.Port <= 0 || c.Port > 65535:
		return ErrInvalidConfig.Detail("%s out of range: %d", KeyPort, c.Port)
	case c.Timeout < 0, c.DialTimeout < 0, c.ReadHeaderTimeout < 0, c.ShutdownTimeout < 0:
		return ErrInvalidConfig.Detail("timeouts must not be negative")
	case c.MaxBodySize < 0:
		return ErrInvalidConfig.Detail("%s must not be negative", KeyMaxBodySize)
	}
	if !dlogger.IsValidLevel(c.LogLevel) {
		return ErrInvalidConfig.Detail("%s: unknown level %q", KeyLogLevel, c.LogLevel)
	}
	return nil
}

// RequireURI checks that a server url is configured
func (c Config) RequireURI() error {
	if c.URI == "" {
		return ErrMissingURI
	}
	return nil
}

// Addr the server listens on
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// YAML renders the configuration as a config file
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(fileConfig{
		URI:               c.URI,
		Temp:              c.Temp,
		Host:              c.Host,
		Port:              c.Port,
		Storage:           c.Storage,
		LogLevel:          c.LogLevel,
		Timeout:           c.Timeout.String(),
		DialTimeout:       c.DialTimeout.String(),
		ReadHeaderTimeout: c.ReadHeaderTimeout.String(),
		ShutdownTimeout:   c.ShutdownTimeout.String(),
		MaxBodySize:       strconv.FormatInt(c.MaxBodySize, 10),
	})
}

// fileConfig is the layout of a config file, with durations rendered as text
type fileConfig struct {
	URI               string `yaml:"uri"`
	Temp              string `yaml:"temp"`
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	Storage           string `yaml:"storage"`
	LogLevel          string `yaml:"loglevel"`
	Timeout           string `yaml:"timeout"`
	DialTimeout       string `yaml:"dial-timeout"`
	ReadHeaderTimeout string `yaml:"read-header-timeout"`
	ShutdownTimeout   string `yaml:"shutdown-timeout"`
	MaxBodySize       string `yaml:"max-body-size"`
}
