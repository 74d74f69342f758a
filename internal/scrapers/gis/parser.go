package gis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
)

type queryError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type queryFeature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *struct {
		Rings [][][]float64 `json:"rings"`
	} `json:"geometry"`
}

type queryResponse struct {
	Features []queryFeature `json:"features"`
	Error    *queryError    `json:"error"`
}

func decodeQuery(body string) (queryResponse, error) {
	var res queryResponse
	err := json.Unmarshal([]byte(body), &res)
	return res, err
}

// Parse builds the parcel record from a feature query response, imagery is
// attached separately.
func Parse(body string, p pin.PIN) (record property.Record) {
	record = property.NewRecord(property.GIS, p.String(), time.Time{})
	defer func() {
		r := recover()
		if r != nil {
			record.Payload = nil
			record.Error = fmt.Sprintf("parse parcel geometry: %v", r)
			record.ErrorCode = property.CodeParseError
		}
	}()

	res, err := decodeQuery(body)
	if err != nil {
		record.Error = fmt.Sprintf("decode feature query: %s", err.Error())
		record.ErrorCode = property.CodeParseError
		return record
	}
	if res.Error != nil {
		record.Error = fmt.Sprintf("feature query failed (%d): %s", res.Error.Code, res.Error.Message)
		record.ErrorCode = property.CodeFetchError
		return record
	}
	if len(res.Features) == 0 {
		record.Error = fmt.Sprintf("no parcel for %s", p.String())
		record.ErrorCode = property.CodeNotFound
		return record
	}

	feature := res.Features[0]
	data := &property.GISData{
		Attributes:      feature.Attributes,
		Rings:           [][]property.Point{},
		GeographicRings: [][]property.LatLng{},
	}
	if feature.Geometry != nil {
		for _, ring := range feature.Geometry.Rings {
			points := make([]property.Point, 0, len(ring))
			for _, vertex := range ring {
				if len(vertex) < 2 {
					continue
				}
				points = append(points, property.Point{X: vertex[0], Y: vertex[1]})
			}
			data.Rings = append(data.Rings, points)
		}
	}

	box, ok := ImageBBox(data.Rings)
	if !ok {
		record.Payload = data
		record.Error = "parcel has no geometry"
		record.ErrorCode = property.CodeParseError
		return record
	}
	data.GeographicRings = GeographicRings(data.Rings)
	data.Centroid = ToLatLng(Centroid(data.Rings))
	data.BBox = box

	record.Payload = data
	return record
}
