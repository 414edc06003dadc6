// Package config loads the search configuration: sources, supported
// architectures and models, request defaults and search behaviour.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/ralt/spksearch/internal/models"
)

// Limit orders
const (
	FilterThenLimit = "filter-then-limit"
	LimitThenFilter = "limit-then-filter"
)

// ErrUnknownSource is returned when a source key matches no configured source
var ErrUnknownSource = errors.New("unknown source")

// Provider exposes the parts of the configuration the search needs
type Provider interface {
	Sources() []models.Source
	Architectures() []string
	Models() []string
}

// Config is the typed configuration file
type Config struct {
	Site             SiteConfig     `yaml:"site"`
	Paths            PathsConfig    `yaml:"paths"`
	Defaults         DefaultsConfig `yaml:"defaults"`
	HTTP             HTTPConfig     `yaml:"http"`
	Cache            CacheConfig    `yaml:"cache"`
	Search           SearchConfig   `yaml:"search"`
	ExcludedServices []string       `yaml:"excluded_services"`
	Archs            []string       `yaml:"architectures"`
	DeviceModels     []string       `yaml:"models"`
	SourceList       []SourceConfig `yaml:"sources"`

	// dir is the directory of the loaded file, used to resolve paths
	dir     string
	sources []models.Source
}

// SiteConfig describes the public site
type SiteConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
}

// PathsConfig holds filesystem locations
type PathsConfig struct {
	Cache      string `yaml:"cache"`
	SourcesDir string `yaml:"sources_dir"`
}

// DefaultsConfig holds the values sent to every source
type DefaultsConfig struct {
	UserAgent string            `yaml:"user_agent"`
	Language  string            `yaml:"language"`
	Timezone  string            `yaml:"timezone"`
	Unique    string            `yaml:"unique"`
	Timeout   time.Duration     `yaml:"timeout"`
	Headers   map[string]string `yaml:"headers"`
}

// HTTPConfig tunes the HTTP fetcher
type HTTPConfig struct {
	RetryMax     int           `yaml:"retry_max"`
	RetryWaitMin time.Duration `yaml:"retry_wait_min"`
	RetryWaitMax time.Duration `yaml:"retry_wait_max"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// CacheConfig tunes the response cache
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// SearchConfig tunes the aggregation
type SearchConfig struct {
	LimitOrder    string `yaml:"limit_order"`
	Deduplicate   *bool  `yaml:"deduplicate"`
	CaseSensitive bool   `yaml:"case_sensitive"`
	InlineIcons   bool   `yaml:"inline_icons"`
	IconWorkers   int    `yaml:"icon_workers"`
}

// SourceConfig is one source entry as written in the file
type SourceConfig struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	URL          string            `yaml:"url"`
	Priority     int               `yaml:"priority"`
	SupportsBeta bool              `yaml:"supports_beta"`
	Supported    *bool             `yaml:"supported"`
	Method       string            `yaml:"method"`
	Headers      map[string]string `yaml:"headers"`
	Timeout      time.Duration     `yaml:"timeout"`
}

// Load reads, validates and resolves the configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewSearchError(models.ErrInvalidConfig, "",
			fmt.Errorf("failed to read config %s: %w", path, err))
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.dir = filepath.Dir(abs)
	cfg.Paths.Cache = cfg.resolve(cfg.Paths.Cache)
	cfg.Paths.SourcesDir = cfg.resolve(cfg.Paths.SourcesDir)

	if cfg.Paths.SourcesDir != "" {
		dropIns, err := ReadSourcesDir(cfg.Paths.SourcesDir)
		if err != nil {
			return nil, models.NewSearchError(models.ErrInvalidConfig, "", err)
		}
		cfg.SourceList = append(cfg.SourceList, dropIns...)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML document, rejecting unknown keys. Drop-in sources are
// not read and relative paths are left untouched.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, models.NewSearchError(models.ErrInvalidConfig, "",
			fmt.Errorf("failed to parse config: %w", err))
	}
	cfg.applyDefaults()
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Site.Name == "" {
		c.Site.Name = "spksearch"
	}
	if c.Paths.Cache == "" {
		c.Paths.Cache = "cache"
	}
	if c.Defaults.UserAgent == "" {
		c.Defaults.UserAgent = "synology_x86_64_DS918+_6.1.3-15152"
	}
	if c.Defaults.Language == "" {
		c.Defaults.Language = "enu"
	}
	if c.Defaults.Timezone == "" {
		c.Defaults.Timezone = "Brussels"
	}
	if c.Defaults.Unique == "" {
		c.Defaults.Unique = "synology_spksearch"
	}
	if c.Defaults.Timeout == 0 {
		c.Defaults.Timeout = 30 * time.Second
	}
	if c.HTTP.RetryMax == 0 {
		c.HTTP.RetryMax = 2
	}
	if c.HTTP.RetryWaitMin == 0 {
		c.HTTP.RetryWaitMin = 500 * time.Millisecond
	}
	if c.HTTP.RetryWaitMax == 0 {
		c.HTTP.RetryWaitMax = 5 * time.Second
	}
	if c.HTTP.MaxBodyBytes == 0 {
		c.HTTP.MaxBodyBytes = 32 << 20
	}
	if c.Search.LimitOrder == "" {
		c.Search.LimitOrder = FilterThenLimit
	}
	if c.Search.Deduplicate == nil {
		dedupe := true
		c.Search.Deduplicate = &dedupe
	}
	if c.Search.IconWorkers == 0 {
		c.Search.IconWorkers = 4
	}
}

// finalize validates the source list and builds the resolved sources
func (c *Config) finalize() error {
	var result *multierror.Error

	switch c.Search.LimitOrder {
	case FilterThenLimit, LimitThenFilter:
	default:
		result = multierror.Append(result,
			fmt.Errorf("search.limit_order: unknown value %q", c.Search.LimitOrder))
	}
	if c.Search.IconWorkers < 0 {
		result = multierror.Append(result, fmt.Errorf("search.icon_workers must be positive"))
	}

	seen := make(map[string]bool)
	sources := make([]models.Source, 0, len(c.SourceList))
	for i, sc := range c.SourceList {
		if err := sc.validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("sources[%d]: %w", i, err))
			continue
		}
		if seen[sc.ID] {
			result = multierror.Append(result, fmt.Errorf("sources[%d]: duplicate id %q", i, sc.ID))
			continue
		}
		seen[sc.ID] = true
		sources = append(sources, sc.toSource())
	}

	if err := result.ErrorOrNil(); err != nil {
		return models.NewSearchError(models.ErrInvalidConfig, "", err)
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority < sources[j].Priority
	})
	for i := range sources {
		sources[i].Index = i
	}
	c.sources = sources
	return nil
}

func (sc *SourceConfig) validate() error {
	if sc.ID == "" {
		return fmt.Errorf("id is required")
	}
	if sc.URL == "" {
		return fmt.Errorf("%s: url is required", sc.ID)
	}
	if !strings.HasPrefix(sc.URL, "http://") && !strings.HasPrefix(sc.URL, "https://") {
		return fmt.Errorf("%s: url must be http or https: %s", sc.ID, sc.URL)
	}
	switch strings.ToUpper(sc.Method) {
	case "", "GET", "POST":
	default:
		return fmt.Errorf("%s: unsupported method %q", sc.ID, sc.Method)
	}
	return nil
}

func (sc *SourceConfig) toSource() models.Source {
	supported := true
	if sc.Supported != nil {
		supported = *sc.Supported
	}
	name := sc.Name
	if name == "" {
		name = sc.ID
	}
	method := strings.ToUpper(sc.Method)
	if method == "" {
		method = "POST"
	}
	return models.Source{
		ID:           sc.ID,
		Name:         name,
		URL:          sc.URL,
		Priority:     sc.Priority,
		SupportsBeta: sc.SupportsBeta,
		Supported:    supported,
		Method:       method,
		Headers:      sc.Headers,
		Timeout:      sc.Timeout,
	}
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Sources returns every configured source ordered by priority
func (c *Config) Sources() []models.Source {
	out := make([]models.Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// Architectures returns the supported architecture codes
func (c *Config) Architectures() []string {
	return c.Archs
}

// Models returns the supported device models
func (c *Config) Models() []string {
	return c.DeviceModels
}

// Deduplicate reports whether duplicate packages are collapsed
func (c *Config) Deduplicate() bool {
	return c.Search.Deduplicate == nil || *c.Search.Deduplicate
}
