// Package geo reads the region geometry the choropleth maps are drawn from.
package geo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	q "github.com/invertedv/qdash"
	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCol is the column of Layer.Table holding the feature ID.
const FeatureCol = "feature"

// Feature is one region polygon with its attributes.
type Feature struct {
	ID       string
	Props    map[string]string
	Geometry orb.Geometry
}

// Layer is a set of region polygons.
type Layer struct {
	Name     string
	Features []*Feature
}

// ReadLayer reads a shapefile (.shp) or a GeoJSON feature collection (.geojson, .json).
func ReadLayer(path string) (*Layer, error) {
	if _, e := os.Stat(path); e != nil {
		return nil, fmt.Errorf("%w: geometry layer %s", q.ErrMissingData, path)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return readShp(name, path)
	case ".geojson", ".json":
		return readGeoJSON(name, path)
	}

	return nil, fmt.Errorf("%w: unsupported geometry file %s", q.ErrMalformedInput, path)
}

func readShp(name, path string) (*Layer, error) {
	var (
		rdr *shp.Reader
		e   error
	)
	if rdr, e = shp.Open(path); e != nil {
		return nil, fmt.Errorf("%w: %s: %v", q.ErrMalformedInput, path, e)
	}
	defer func() { _ = rdr.Close() }()

	fields := rdr.Fields()
	layer := &Layer{Name: name}
	for rdr.Next() {
		n, shape := rdr.Shape()

		var geom orb.Geometry
		switch p := shape.(type) {
		case *shp.Polygon:
			geom = rings(p.NumParts, p.Parts, p.Points)
		case *shp.PolyLine:
			geom = rings(p.NumParts, p.Parts, p.Points)
		default:
			continue
		}

		props := make(map[string]string, len(fields))
		for k, f := range fields {
			props[f.String()] = strings.TrimSpace(rdr.ReadAttribute(n, k))
		}

		layer.Features = append(layer.Features, &Feature{ID: featureID(n), Props: props, Geometry: geom})
	}

	return layer, nil
}

// rings assembles shapefile parts into polygons. A clockwise ring starts a new polygon,
// a counter-clockwise ring is a hole in the polygon before it.
func rings(numParts int32, parts []int32, points []shp.Point) orb.Geometry {
	var mp orb.MultiPolygon
	for i := 0; i < int(numParts) && i < len(parts); i++ {
		start, end := int(parts[i]), len(points)
		if i+1 < int(numParts) && i+1 < len(parts) {
			end = int(parts[i+1])
		}

		if start < 0 || start >= end || end > len(points) {
			continue
		}

		ring := make(orb.Ring, 0, end-start)
		for _, pt := range points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}

		if len(mp) == 0 || ring.Orientation() == orb.CW {
			mp = append(mp, orb.Polygon{ring})
			continue
		}

		mp[len(mp)-1] = append(mp[len(mp)-1], ring)
	}

	if len(mp) == 1 {
		return mp[0]
	}

	return mp
}

func readGeoJSON(name, path string) (*Layer, error) {
	var (
		b  []byte
		fc *geojson.FeatureCollection
		e  error
	)
	if b, e = os.ReadFile(path); e != nil {
		return nil, e
	}

	if fc, e = geojson.UnmarshalFeatureCollection(b); e != nil {
		return nil, fmt.Errorf("%w: %s: %v", q.ErrMalformedInput, path, e)
	}

	layer := &Layer{Name: name}
	for n, f := range fc.Features {
		props := make(map[string]string, len(f.Properties))
		for k, v := range f.Properties {
			if v == nil {
				props[k] = ""
				continue
			}

			props[k] = strings.TrimSpace(fmt.Sprint(v))
		}

		layer.Features = append(layer.Features, &Feature{ID: featureID(n), Props: props, Geometry: f.Geometry})
	}

	return layer, nil
}

func featureID(n int) string {
	return "f" + strconv.Itoa(n)
}

// *********** Layer - Methods ***********

// Select keeps the fields named in rename, renamed to its values. Every field must exist
// on at least one feature.
func (l *Layer) Select(rename map[string]string) (*Layer, error) {
	for from := range rename {
		found := false
		for _, f := range l.Features {
			if _, ok := f.Props[from]; ok {
				found = true
				break
			}
		}

		if !found && len(l.Features) > 0 {
			return nil, fmt.Errorf("%w: layer %s has no field %s", q.ErrMalformedInput, l.Name, from)
		}
	}

	out := &Layer{Name: l.Name}
	for _, f := range l.Features {
		props := make(map[string]string, len(rename))
		for from, to := range rename {
			props[to] = f.Props[from]
		}

		out.Features = append(out.Features, &Feature{ID: f.ID, Props: props, Geometry: f.Geometry})
	}

	return out, nil
}

// Exclude drops the features whose field equals one of values.
func (l *Layer) Exclude(field string, values ...string) *Layer {
	out := &Layer{Name: l.Name}
	for _, f := range l.Features {
		drop := false
		for _, v := range values {
			if f.Props[field] == v {
				drop = true
				break
			}
		}

		if !drop {
			out.Features = append(out.Features, f)
		}
	}

	return out
}

// Table is the attribute table: the feature ID followed by fields, all strings.
func (l *Layer) Table(fields ...string) (*q.Table, error) {
	n := len(l.Features)
	ids := make([]string, n)
	vals := make([][]string, len(fields))
	for ind := range vals {
		vals[ind] = make([]string, n)
	}

	for row, f := range l.Features {
		ids[row] = f.ID
		for ind, fld := range fields {
			vals[ind][row] = f.Props[fld]
		}
	}

	var (
		col *q.Col
		e   error
	)
	if col, e = q.NewCol(FeatureCol, ids, q.DTstring); e != nil {
		return nil, e
	}

	cols := []*q.Col{col}
	for ind, fld := range fields {
		if col, e = q.NewCol(fld, vals[ind], q.DTstring); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return q.NewTable(cols...)
}

// GeoJSON is the layer as a feature collection whose feature ids are the Feature IDs.
func (l *Layer) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range l.Features {
		gf := geojson.NewFeature(f.Geometry)
		gf.ID = f.ID
		for k, v := range f.Props {
			gf.Properties[k] = v
		}

		fc.Append(gf)
	}

	return fc
}
