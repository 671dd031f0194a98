// Package config holds the dashboard settings read from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	q "github.com/invertedv/qdash"
	"github.com/invertedv/qdash/geo"
	"github.com/invertedv/qdash/quantiles"
	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	SourceFiles      = "files"
	SourceClickHouse = "clickhouse"
	SourcePostgres   = "postgres"
)

// Source says where quantile tables come from.
type Source struct {
	Kind     string `yaml:"kind"`
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

type Config struct {
	Root      string         `yaml:"root"`
	Addr      string         `yaml:"addr"`
	Paths     geo.Paths      `yaml:"paths"`
	Exclude   []string       `yaml:"excludeCountries"`
	Country   string         `yaml:"country"`
	CacheSize int            `yaml:"cacheSize"`
	Watch     bool           `yaml:"watch"`
	Strict    bool           `yaml:"strict"`
	Width     float64        `yaml:"width"`
	Source    Source         `yaml:"source"`
	Style     q.Style        `yaml:"style"`
	Columns   []q.ColumnName `yaml:"columns"`
}

func Default() *Config {
	return &Config{
		Root:      ".",
		Addr:      "localhost:8501",
		Paths:     geo.DefaultPaths(),
		Exclude:   geo.DefaultExclude,
		Country:   quantiles.DefaultCountry,
		CacheSize: quantiles.DefaultCacheSize,
		Watch:     true,
		Width:     1200,
		Source:    Source{Kind: SourceFiles},
		Style:     q.DefaultStyle(),
		Columns:   q.DefaultColumnNames(),
	}
}

// Load reads path over the defaults. An empty path gives the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, e := os.ReadFile(path)
		if e != nil {
			return nil, fmt.Errorf("read config: %w", e)
		}

		if e = yaml.Unmarshal(data, cfg); e != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, e)
		}
	}

	if pw := os.Getenv("QDASH_DB_PASSWORD"); pw != "" {
		cfg.Source.Password = pw
	}

	return cfg, cfg.Validate()
}

func (c *Config) Save(path string) error {
	data, e := yaml.Marshal(c)
	if e != nil {
		return e
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceFiles:
	case SourceClickHouse, SourcePostgres:
		if c.Source.Host == "" || c.Source.Table == "" {
			return fmt.Errorf("%w: source %s needs host and table", q.ErrMalformedInput, c.Source.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown source kind %q", q.ErrMalformedInput, c.Source.Kind)
	}

	if c.CacheSize <= 0 {
		return fmt.Errorf("%w: cache size must be positive", q.ErrMalformedInput)
	}

	if len(c.Columns) == 0 {
		return fmt.Errorf("%w: empty column dictionary", q.ErrMalformedInput)
	}

	return nil
}

// Path resolves a data path against Root.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(c.Root, p)
}

// GeoPaths are Paths resolved against Root.
func (c *Config) GeoPaths() geo.Paths {
	return geo.Paths{
		States:    c.Path(c.Paths.States),
		Countries: c.Path(c.Paths.Countries),
		FIPS:      c.Path(c.Paths.FIPS),
	}
}
