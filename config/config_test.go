package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	q "github.com/invertedv/qdash"
	"github.com/invertedv/qdash/geo"
	"github.com/stretchr/testify/assert"
)

const sample = `root: /srv/forecast
addr: ":9000"
cacheSize: 16
strict: true
paths:
  fips: tables/fips.csv
style:
  lineColor: "#333333"
columns:
  - raw: daily_deaths
    label: Deaths
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qdash.yaml")
	assert.Nil(t, os.WriteFile(path, []byte(sample), 0644))

	cfg, e := Load(path)
	assert.Nil(t, e)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 16, cfg.CacheSize)
	assert.True(t, cfg.Strict)
	assert.True(t, cfg.Watch)
	assert.Equal(t, SourceFiles, cfg.Source.Kind)

	// unset fields keep their defaults
	assert.Equal(t, "#333333", cfg.Style.LineColor)
	assert.Equal(t, q.DefaultStyle().Palette, cfg.Style.Palette)
	assert.Equal(t, geo.DefaultPaths().States, cfg.Paths.States)
	assert.Equal(t, []q.ColumnName{{Raw: "daily_deaths", Label: "Deaths"}}, cfg.Columns)

	gp := cfg.GeoPaths()
	assert.Equal(t, "/srv/forecast/tables/fips.csv", gp.FIPS)
	assert.Equal(t, "/abs/x.csv", cfg.Path("/abs/x.csv"))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, e := Load("")
	assert.Nil(t, e)
	assert.Equal(t, Default().Addr, cfg.Addr)
	assert.Equal(t, geo.DefaultExclude, cfg.Exclude)

	_, e = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NotNil(t, e)
}

func TestLoad_PasswordEnv(t *testing.T) {
	t.Setenv("QDASH_DB_PASSWORD", "secret")
	cfg, e := Load("")
	assert.Nil(t, e)
	assert.Equal(t, "secret", cfg.Source.Password)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Source.Kind = SourceClickHouse
	assert.True(t, errors.Is(cfg.Validate(), q.ErrMalformedInput))

	cfg.Source.Host, cfg.Source.Table = "localhost", "forecast.quantiles"
	assert.Nil(t, cfg.Validate())

	cfg.Source.Kind = "oracle"
	assert.True(t, errors.Is(cfg.Validate(), q.ErrMalformedInput))

	cfg = Default()
	cfg.CacheSize = 0
	assert.NotNil(t, cfg.Validate())

	cfg = Default()
	cfg.Columns = nil
	assert.NotNil(t, cfg.Validate())
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qdash.yaml")
	cfg := Default()
	cfg.Addr = ":8080"
	assert.Nil(t, cfg.Save(path))

	back, e := Load(path)
	assert.Nil(t, e)
	assert.Equal(t, cfg, back)
}
