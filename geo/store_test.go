package geo

import (
	"errors"
	"testing"

	q "github.com/invertedv/qdash"
	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(Paths{
		Countries: writeFile(t, dir, "countries.geojson", countriesJSON),
		States:    writeFile(t, dir, "states.geojson", statesJSON),
		FIPS:      writeFile(t, dir, "fips.csv", fipsCSV),
	}, DefaultExclude)

	c, e := s.Countries()
	assert.Nil(t, e)
	assert.Equal(t, 2, len(c.Features))
	again, _ := s.Countries()
	assert.Same(t, c, again)

	st, e := s.States()
	assert.Nil(t, e)
	tbl, e := st.Table(StateName, StatePostal)
	assert.Nil(t, e)
	names, _ := tbl.Column(StateName)
	assert.Equal(t, []string{"California", "New York"}, names.AsString())

	fips, e := s.FIPS()
	assert.Nil(t, e)
	assert.Equal(t, 2, fips.RowCount())
	code, _ := fips.Column(FIPSCol)
	assert.Equal(t, q.DTint, code.DataType())
}

func TestStore_Missing(t *testing.T) {
	s := NewStore(Paths{Countries: "absent.shp", States: "absent.shp", FIPS: "absent.csv"}, nil)
	_, e := s.Countries()
	assert.True(t, errors.Is(e, q.ErrMissingData))
	_, e = s.States()
	assert.True(t, errors.Is(e, q.ErrMissingData))
	_, e = s.FIPS()
	assert.True(t, errors.Is(e, q.ErrMissingData))
}

func TestReadFIPS_Columns(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fips.csv", "Code,Name\n6,California\n")
	_, e := ReadFIPS(path)
	assert.True(t, errors.Is(e, q.ErrMalformedInput))
}
