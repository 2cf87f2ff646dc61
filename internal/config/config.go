// Package config loads runtime settings from .env, an optional YAML file and
// the environment, in that order of increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"apiquery/helper"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL   = "https://jpm9l2v1be.execute-api.us-east-1.amazonaws.com/prod"
	DefaultRawPrefix = "http://localhost:5000/prod/query?sql="
	DefaultPort      = "5000"
	DefaultGUIPort   = "8080"
	DefaultMount     = "/prod"
	DefaultTimeout   = 30 * time.Second
)

const (
	EnvBaseURL     = "APIQUERY_BASE_URL"
	EnvRawPrefix   = "APIQUERY_RAW_PREFIX"
	EnvTimeout     = "APIQUERY_TIMEOUT"
	EnvMount       = "APIQUERY_MOUNT"
	EnvPort        = "PORT"
	EnvGUIPort     = "GUI_PORT"
	EnvDatabaseURL = "DATABASE_URL"
)

// ConfigError wraps any failure to load or validate configuration.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Msg, e.Err)
	}
	return "config: " + e.Msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

type Config struct {
	// client side
	BaseURL        string        `yaml:"base_url"`
	RawPrefix      string        `yaml:"raw_prefix"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	GUIPort        string        `yaml:"gui_port"`

	// backend side
	Port        string            `yaml:"port"`
	Mount       string            `yaml:"mount"`
	DatabaseURL string            `yaml:"database_url"`
	Tables      map[string]string `yaml:"tables"` // table -> id column
}

func Default() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		RawPrefix:      DefaultRawPrefix,
		RequestTimeout: DefaultTimeout,
		GUIPort:        DefaultGUIPort,
		Port:           DefaultPort,
		Mount:          DefaultMount,
		Tables: map[string]string{
			"users":             "id",
			"courses":           "id",
			"course_assignment": "id",
		},
	}
}

// Load reads .env from the working directory (if present), then the YAML file
// at path (if non-empty), then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &ConfigError{Msg: "could not load .env", Err: err}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Msg: "could not read " + path, Err: err}
		}
		if err := cfg.decodeYAML(data); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeYAML(data []byte) error {
	// a tables section replaces the defaults instead of merging into them
	defaults := c.Tables
	c.Tables = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// an empty document decodes to io.EOF and keeps the defaults
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return &ConfigError{Msg: "could not parse YAML", Err: err}
	}
	if c.Tables == nil {
		c.Tables = defaults
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.BaseURL, EnvBaseURL)
	setString(&c.RawPrefix, EnvRawPrefix)
	setString(&c.Mount, EnvMount)
	setString(&c.Port, EnvPort)
	setString(&c.GUIPort, EnvGUIPort)
	setString(&c.DatabaseURL, EnvDatabaseURL)

	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ConfigError{Msg: fmt.Sprintf("could not parse %s=%q", EnvTimeout, v), Err: err}
		}
		c.RequestTimeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if err := validateURL("base_url", c.BaseURL); err != nil {
		return err
	}
	if err := validateURL("raw_prefix", c.RawPrefix); err != nil {
		return err
	}
	for name, port := range map[string]string{"port": c.Port, "gui_port": c.GUIPort} {
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return &ConfigError{Msg: fmt.Sprintf("%s must be a number between 1 and 65535, got %q", name, port)}
		}
	}
	if c.RequestTimeout < 0 {
		return &ConfigError{Msg: "request_timeout cannot be negative"}
	}
	if c.Mount != "" && !strings.HasPrefix(c.Mount, "/") {
		return &ConfigError{Msg: fmt.Sprintf("mount must start with '/', got %q", c.Mount)}
	}
	for table, idColumn := range c.Tables {
		if !helper.IsValidIdentifier(table) || !helper.IsValidIdentifier(idColumn) {
			return &ConfigError{Msg: fmt.Sprintf("invalid table entry %q -> %q", table, idColumn)}
		}
	}
	return nil
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &ConfigError{Msg: name + " is not a valid URL", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Msg: fmt.Sprintf("%s must be an http(s) URL, got %q", name, raw)}
	}
	return nil
}
