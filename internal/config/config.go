package config

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/way/internal/errors"
	"github.com/vango-dev/way/pkg/form"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "way.json"

	// YAMLConfigFileName is the name of the YAML configuration file. It is
	// used when no way.json exists.
	YAMLConfigFileName = "way.yaml"

	// DefaultPort is the default preview server port.
	DefaultPort = 3000

	// DefaultHost is the default preview server host.
	DefaultHost = "localhost"

	// DefaultPage is the default page served by the preview server.
	DefaultPage = "index.html"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultExprCacheSize is the default compiled expression cache size.
	DefaultExprCacheSize = 512

	// DefaultMaxFlushRounds is the default bound on re-entrant flushes.
	DefaultMaxFlushRounds = 100
)

// Config represents a way.json or way.yaml file.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Server contains preview server settings.
	Server ServerConfig `json:"server" yaml:"server"`

	// Log contains logging settings.
	Log LogConfig `json:"log" yaml:"log"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Runtime contains engine tuning.
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`

	// Props are the initial properties of the page's root scope.
	Props map[string]any `json:"props,omitempty" yaml:"props,omitempty"`

	// Forms declares form schemas by name. Each field maps to a rule list
	// such as "required,minlength=4".
	Forms map[string]map[string]string `json:"forms,omitempty" yaml:"forms,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains preview server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Page is the HTML file to serve, relative to the config file.
	Page string `json:"page,omitempty" yaml:"page,omitempty"`

	// Watch reloads connected browsers when the page changes.
	Watch bool `json:"watch,omitempty" yaml:"watch,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled serves /metrics and records engine metrics.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// RuntimeConfig contains engine tuning.
type RuntimeConfig struct {
	// ExprCacheSize bounds the compiled expression cache.
	ExprCacheSize int `json:"exprCacheSize,omitempty" yaml:"exprCacheSize,omitempty"`

	// MaxFlushRounds bounds how often one flush re-drains its queue.
	MaxFlushRounds int `json:"maxFlushRounds,omitempty" yaml:"maxFlushRounds,omitempty"`
}

// env holds the environment overrides. Empty values leave the file's
// settings alone.
type env struct {
	Host     string `env:"WAY_HOST"`
	Port     string `env:"WAY_PORT"`
	LogLevel string `env:"WAY_LOG_LEVEL"`
	Metrics  string `env:"WAY_METRICS"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:  DefaultHost,
			Port:  DefaultPort,
			Page:  DefaultPage,
			Watch: true,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: "way",
		},
		Runtime: RuntimeConfig{
			ExprCacheSize:  DefaultExprCacheSize,
			MaxFlushRounds: DefaultMaxFlushRounds,
		},
	}
}

// Load reads configuration from dir. It looks for way.json first, then
// way.yaml.
func Load(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E141").
		WithDetail("No way.json or way.yaml found in " + dir).
		WithSuggestion("Create way.json or pass --page to use the defaults")
}

// LoadFile reads configuration from path. Files ending in .yaml or .yml
// are parsed as YAML, everything else as JSON. Environment overrides are
// applied after the file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No config file at " + path)
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from WAY_HOST, WAY_PORT, WAY_LOG_LEVEL and
// WAY_METRICS.
func (c *Config) ApplyEnv() error {
	var e env
	if err := envdecode.Decode(&e); err != nil {
		if stderrors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return nil
		}
		return errors.New("E120").Wrap(err)
	}

	if e.Host != "" {
		c.Server.Host = e.Host
	}
	if e.Port != "" {
		port, err := strconv.Atoi(e.Port)
		if err != nil {
			return errors.New("E122").WithDetail("WAY_PORT must be a number, got " + strconv.Quote(e.Port))
		}
		c.Server.Port = port
	}
	if e.LogLevel != "" {
		c.Log.Level = strings.ToLower(e.LogLevel)
	}
	if e.Metrics != "" {
		on, err := strconv.ParseBool(e.Metrics)
		if err != nil {
			return errors.New("E122").WithDetail("WAY_METRICS must be a boolean, got " + strconv.Quote(e.Metrics))
		}
		c.Metrics.Enabled = on
	}
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path in the format its extension
// names.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		// Add newline at end of file
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Page == "" {
		c.Server.Page = DefaultPage
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "way"
	}
	if c.Runtime.ExprCacheSize == 0 {
		c.Runtime.ExprCacheSize = DefaultExprCacheSize
	}
	if c.Runtime.MaxFlushRounds == 0 {
		c.Runtime.MaxFlushRounds = DefaultMaxFlushRounds
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E122").
			WithDetail("Port must be between 0 and 65535")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E122").
			WithDetail(`Log format must be "text" or "json", got ` + strconv.Quote(c.Log.Format))
	}
	if c.Runtime.ExprCacheSize < 0 || c.Runtime.MaxFlushRounds < 0 {
		return errors.New("E122").
			WithDetail("Runtime limits must not be negative")
	}
	for _, name := range c.FormNames() {
		if _, err := c.FormFields(name); err != nil {
			return err
		}
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.New("E122").
		WithDetail("Unknown log level " + strconv.Quote(c.Log.Level)).
		WithSuggestion("Use debug, info, warn or error")
}

// Address returns the host:port the preview server listens on.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the preview server URL.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// PagePath returns the path of the page, resolved against the config
// file's directory.
func (c *Config) PagePath() string {
	page := c.Server.Page
	if page == "" {
		page = DefaultPage
	}
	if filepath.IsAbs(page) || c.configPath == "" {
		return page
	}
	return filepath.Join(c.Dir(), page)
}

// FormNames returns the declared form names in sorted order.
func (c *Config) FormNames() []string {
	names := make([]string, 0, len(c.Forms))
	for name := range c.Forms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormFields builds the validators of the named form from its rule lists.
func (c *Config) FormFields(name string) (form.Fields, error) {
	rules, ok := c.Forms[name]
	if !ok {
		return nil, errors.New("E222").WithDetail(`form "` + name + `"`)
	}
	fields := make(form.Fields, len(rules))
	for field, list := range rules {
		v, err := form.Rules(list)
		if err != nil {
			return nil, errors.New("E122").
				WithDetail(fmt.Sprintf("form %q field %q: %v", name, field, err))
		}
		fields[field] = v
	}
	return fields, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing way.json or way.yaml, or an error if
// not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E141").
				WithDetail("No way.json or way.yaml found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
