package geo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	q "github.com/invertedv/qdash"
	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

const countriesJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"ADMIN":"United States of America","ADM0_A3":"USA","POP":331},
 "geometry":{"type":"Polygon","coordinates":[[[-100,30],[-90,30],[-90,40],[-100,40],[-100,30]]]}},
{"type":"Feature","properties":{"ADMIN":"Canada","ADM0_A3":"CAN","POP":null},
 "geometry":{"type":"Polygon","coordinates":[[[-100,50],[-90,50],[-90,60],[-100,60],[-100,50]]]}},
{"type":"Feature","properties":{"ADMIN":"Antarctica","ADM0_A3":"ATA"},
 "geometry":{"type":"Polygon","coordinates":[[[0,-80],[10,-80],[10,-70],[0,-70],[0,-80]]]}}
]}`

const statesJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"name":"California","postal":"CA"},
 "geometry":{"type":"Polygon","coordinates":[[[-120,35],[-115,35],[-115,40],[-120,40],[-120,35]]]}},
{"type":"Feature","properties":{"name":"New York","postal":"NY"},
 "geometry":{"type":"Polygon","coordinates":[[[-78,41],[-73,41],[-73,44],[-78,44],[-78,41]]]}}
]}`

const fipsCSV = `FIPS,State,Postal
6,California,CA
36,New York,NY
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.Nil(t, os.WriteFile(path, []byte(body), 0644))

	return path
}

func TestRings(t *testing.T) {
	// clockwise outer ring with a counter-clockwise hole
	p := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}},
		{{X: 0.2, Y: 0.2}, {X: 0.4, Y: 0.2}, {X: 0.4, Y: 0.4}, {X: 0.2, Y: 0.4}, {X: 0.2, Y: 0.2}},
	}))
	g := rings(p.NumParts, p.Parts, p.Points)
	poly, ok := g.(orb.Polygon)
	assert.True(t, ok)
	assert.Equal(t, 2, len(poly))

	// two clockwise rings are two polygons
	p = shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}},
		{{X: 5, Y: 5}, {X: 5, Y: 6}, {X: 6, Y: 6}, {X: 6, Y: 5}, {X: 5, Y: 5}},
	}))
	g = rings(p.NumParts, p.Parts, p.Points)
	mp, ok := g.(orb.MultiPolygon)
	assert.True(t, ok)
	assert.Equal(t, 2, len(mp))
}

func TestReadLayer_GeoJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "countries.geojson", countriesJSON)
	l, e := ReadLayer(path)
	assert.Nil(t, e)
	assert.Equal(t, "countries", l.Name)
	assert.Equal(t, 3, len(l.Features))
	assert.Equal(t, "Canada", l.Features[1].Props["ADMIN"])
	assert.Equal(t, "", l.Features[1].Props["POP"])
	assert.Equal(t, "331", l.Features[0].Props["POP"])

	sel, e := l.Select(map[string]string{"ADMIN": CountryName, "ADM0_A3": CountryCode})
	assert.Nil(t, e)
	sel = sel.Exclude(CountryCode, DefaultExclude...)
	assert.Equal(t, 2, len(sel.Features))

	tbl, e := sel.Table(CountryName, CountryCode)
	assert.Nil(t, e)
	assert.Equal(t, []string{FeatureCol, CountryName, CountryCode}, tbl.ColumnNames())
	code, _ := tbl.Column(CountryCode)
	assert.Equal(t, []string{"USA", "CAN"}, code.AsString())

	fc := sel.GeoJSON()
	assert.Equal(t, 2, len(fc.Features))
	assert.Equal(t, "f0", fc.Features[0].ID)
	assert.Equal(t, "USA", fc.Features[0].Properties[CountryCode])

	_, e = l.Select(map[string]string{"NOPE": "x"})
	assert.True(t, errors.Is(e, q.ErrMalformedInput))
}

func TestReadLayer_Errors(t *testing.T) {
	dir := t.TempDir()
	_, e := ReadLayer(filepath.Join(dir, "absent.shp"))
	assert.True(t, errors.Is(e, q.ErrMissingData))

	_, e = ReadLayer(writeFile(t, dir, "layer.kml", "<kml/>"))
	assert.True(t, errors.Is(e, q.ErrMalformedInput))

	_, e = ReadLayer(writeFile(t, dir, "bad.geojson", "{not json"))
	assert.True(t, errors.Is(e, q.ErrMalformedInput))
}

func TestReadLayer_Shapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.shp")
	w, e := shp.Create(path, shp.POLYGON)
	assert.Nil(t, e)
	assert.Nil(t, w.SetFields([]shp.Field{shp.StringField("name", 40), shp.StringField("postal", 4)}))

	square := func(x0, y0 float64) *shp.Polygon {
		p := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
			{{X: x0, Y: y0}, {X: x0, Y: y0 + 1}, {X: x0 + 1, Y: y0 + 1}, {X: x0 + 1, Y: y0}, {X: x0, Y: y0}},
		}))
		return &p
	}

	n := w.Write(square(-120, 35))
	assert.Nil(t, w.WriteAttribute(int(n), 0, "California"))
	assert.Nil(t, w.WriteAttribute(int(n), 1, "CA"))
	n = w.Write(square(-78, 41))
	assert.Nil(t, w.WriteAttribute(int(n), 0, "New York"))
	assert.Nil(t, w.WriteAttribute(int(n), 1, "NY"))
	w.Close()

	l, e := ReadLayer(path)
	assert.Nil(t, e)
	assert.Equal(t, 2, len(l.Features))
	assert.Equal(t, "New York", l.Features[1].Props["name"])
	assert.Equal(t, "CA", l.Features[0].Props["postal"])

	_, ok := l.Features[0].Geometry.(orb.Polygon)
	assert.True(t, ok)
}
