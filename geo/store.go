package geo

import (
	"fmt"
	"sync"

	q "github.com/invertedv/qdash"
)

// Attribute names after Select.
const (
	CountryName = "country"
	CountryCode = "country_code"
	StateName   = "name"
	StatePostal = "postal"

	FIPSCol   = "FIPS"
	FIPSState = "State"
)

// Paths locates the static reference data.
type Paths struct {
	States    string `yaml:"states"`
	Countries string `yaml:"countries"`
	FIPS      string `yaml:"fips"`
}

// DefaultPaths are relative to the data root.
func DefaultPaths() Paths {
	return Paths{
		States:    "data_tables/geo_data/ne_110m_admin_1_states_provinces_lakes/ne_110m_admin_1_states_provinces_lakes.shp",
		Countries: "data_tables/geo_data/countries_110m/ne_110m_admin_0_countries.shp",
		FIPS:      "data_tables/FIPS_states.csv",
	}
}

// DefaultExclude drops Antarctica from the country layer.
var DefaultExclude = []string{"ATA"}

// Store loads each reference table once and hands out the same copy afterwards.
type Store struct {
	paths   Paths
	exclude []string

	mu        sync.Mutex
	states    *Layer
	countries *Layer
	fips      *q.Table
}

func NewStore(paths Paths, excludeCountries []string) *Store {
	return &Store{paths: paths, exclude: excludeCountries}
}

// Countries is the country layer with fields country and country_code.
func (s *Store) Countries() (*Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countries != nil {
		return s.countries, nil
	}

	var (
		l *Layer
		e error
	)
	if l, e = ReadLayer(s.paths.Countries); e != nil {
		return nil, e
	}

	if l, e = l.Select(map[string]string{"ADMIN": CountryName, "ADM0_A3": CountryCode}); e != nil {
		return nil, e
	}

	s.countries = l.Exclude(CountryCode, s.exclude...)

	return s.countries, nil
}

// States is the state layer with fields name and postal.
func (s *Store) States() (*Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.states != nil {
		return s.states, nil
	}

	var (
		l *Layer
		e error
	)
	if l, e = ReadLayer(s.paths.States); e != nil {
		return nil, e
	}

	if l, e = l.Select(map[string]string{"name": StateName, "postal": StatePostal}); e != nil {
		return nil, e
	}

	s.states = l

	return s.states, nil
}

// FIPS is the state code table.
func (s *Store) FIPS() (*q.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fips != nil {
		return s.fips, nil
	}

	var e error
	if s.fips, e = ReadFIPS(s.paths.FIPS); e != nil {
		return nil, e
	}

	return s.fips, nil
}

// ReadFIPS reads a csv with at least the columns FIPS (numeric) and State (name).
func ReadFIPS(path string) (*q.Table, error) {
	var (
		f *q.Files
		t *q.Table
		e error
	)
	if f, e = q.NewFiles(q.FileFieldType(FIPSCol, q.DTint), q.FileFieldType(FIPSState, q.DTstring)); e != nil {
		return nil, e
	}

	if e = f.Open(path); e != nil {
		return nil, e
	}

	if t, e = f.Load(); e != nil {
		return nil, e
	}

	for _, c := range []string{FIPSCol, FIPSState} {
		if !t.Has(c) {
			return nil, fmt.Errorf("%w: %s has no %s column", q.ErrMalformedInput, path, c)
		}
	}

	return t, nil
}
