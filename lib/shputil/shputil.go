// Package shputil reads and writes polygon shapefiles.
package shputil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonas-p/go-shp"
)

// dBase limits
const (
	maxFieldName   = 10
	maxFieldLength = 254
)

// Feature is a polygon with string attributes. Points are (x, y), so
// geographic coordinates are (lng, lat).
type Feature struct {
	Rings [][][2]float64
	Attrs map[string]string
}

func fieldName(name string) string {
	if len(name) > maxFieldName {
		return name[:maxFieldName]
	}
	return name
}

// attributeNames returns every attribute name across features, sorted.
func attributeNames(features []Feature) []string {
	seen := map[string]bool{}
	var names []string
	for _, f := range features {
		for name := range f.Attrs {
			short := fieldName(name)
			if seen[short] {
				continue
			}
			seen[short] = true
			names = append(names, short)
		}
	}
	sort.Strings(names)
	return names
}

func toPolygon(rings [][][2]float64) *shp.Polygon {
	parts := make([][]shp.Point, len(rings))
	for i, ring := range rings {
		parts[i] = make([]shp.Point, len(ring))
		for j, pt := range ring {
			parts[i][j] = shp.Point{X: pt[0], Y: pt[1]}
		}
	}
	polygon := shp.Polygon(*shp.NewPolyLine(parts))
	return &polygon
}

// WritePolygons writes features to path (and its .shx and .dbf siblings).
// Attribute names are truncated to the 10 characters dBase allows.
func WritePolygons(path string, features []Feature) error {
	writer, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return err
	}
	defer writer.Close()

	names := attributeNames(features)
	fields := make([]shp.Field, len(names))
	for i, name := range names {
		fields[i] = shp.StringField(name, maxFieldLength)
	}
	err = writer.SetFields(fields)
	if err != nil {
		return err
	}

	for _, f := range features {
		if len(f.Rings) == 0 {
			return fmt.Errorf("feature without rings")
		}
		row := int(writer.Write(toPolygon(f.Rings)))

		values := make(map[string]string, len(f.Attrs))
		for name, value := range f.Attrs {
			values[fieldName(name)] = value
		}
		for i, name := range names {
			value := values[name]
			if len(value) > maxFieldLength {
				value = value[:maxFieldLength]
			}
			err = writer.WriteAttribute(row, i, value)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadPolygons reads every polygon of the shapefile at path, other shape
// types are skipped.
func ReadPolygons(path string) ([]Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	fields := reader.Fields()

	var features []Feature
	for reader.Next() {
		idx, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}

		rings := make([][][2]float64, len(poly.Parts))
		for i := range poly.Parts {
			start := poly.Parts[i]
			end := int32(len(poly.Points))
			if i+1 < len(poly.Parts) {
				end = poly.Parts[i+1]
			}
			ring := make([][2]float64, 0, end-start)
			for _, pt := range poly.Points[start:end] {
				ring = append(ring, [2]float64{pt.X, pt.Y})
			}
			rings[i] = ring
		}

		attrs := make(map[string]string, len(fields))
		for i, f := range fields {
			attrs[f.String()] = strings.TrimRight(reader.ReadAttribute(idx, i), " \x00")
		}
		features = append(features, Feature{Rings: rings, Attrs: attrs})
	}
	return features, nil
}
