package commands

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/aggregate"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/importer"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/lookup"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"

	"github.com/stretchr/testify/require"
)

var fetchedAt = time.Date(2024, 6, 1, 17, 30, 0, 0, time.UTC)

func TestSummarize(t *testing.T) {
	cases := []struct {
		name     string
		record   property.Record
		expected string
	}{
		{
			name: "tax portal",
			record: property.Record{Payload: &property.TaxPortalData{
				Address: property.Address{Street: "123 MAIN ST", City: "CHICAGO"},
				TaxBills: []property.TaxBill{
					{Year: "2023", Status: property.PaymentDue},
					{Year: "2022", Status: property.PaymentPaid},
				},
			}},
			expected: "123 MAIN ST, CHICAGO, 2 bills (1 due)",
		},
		{
			name: "clerk",
			record: property.Record{Payload: &property.ClerkData{
				SoldTaxes:      []property.SoldTax{{TaxYear: "2019"}},
				TotalAmountDue: "$1,234.00",
			}},
			expected: "1 sold, 0 delinquent, due $1,234.00",
		},
		{
			name:     "recorder",
			record:   property.Record{Payload: &property.RecorderData{Layout: property.LayoutWide}},
			expected: "0 documents (wide layout)",
		},
		{
			name: "gis",
			record: property.Record{Payload: &property.GISData{
				Centroid:        property.LatLng{Lat: 41.8781, Lng: -87.6298},
				GeographicRings: [][]property.LatLng{{}},
			}},
			expected: "centroid 41.878100, -87.629800, 1 rings",
		},
		{
			name:     "error only",
			record:   property.ErrorRecord(property.Clerk, "17-20-226-020-0000", fetchedAt, errors.New("boom")),
			expected: "boom",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, summarize(tc.record))
		})
	}
}

func TestSlotTable(t *testing.T) {
	ok := property.NewRecord(property.Recorder, "17-20-226-020-0000", fetchedAt)
	ok.Payload = &property.RecorderData{}
	failed := property.ErrorRecord(
		property.GIS, "17-20-226-020-0000", fetchedAt,
		property.Errorf(property.CodeNotFound, property.GIS, "no parcel"),
	)

	slots := []aggregate.Slot{
		{Source: property.Recorder, Result: lookup.Result{Record: ok, Cached: true, CachedAt: fetchedAt, Stale: true}},
		{Source: property.GIS, Result: lookup.Result{Record: failed}},
	}

	var out bytes.Buffer
	slotTable(&out, slots).Render()

	text := out.String()
	require.Contains(t, text, "stale")
	require.Contains(t, text, "error (NOT_FOUND)")
	// 17:30 UTC is 12:30 in Chicago during daylight saving time
	require.Contains(t, text, "2024-06-01 12:30")
}

func TestJobTable(t *testing.T) {
	job := importer.Job{
		ID:        "job-1",
		Status:    importer.JobComplete,
		Total:     2,
		Completed: 1,
		Failed:    1,
		Entries: []importer.Entry{
			{PIN: "17-20-226-020-0000", Position: 0, Status: importer.EntryComplete},
			{PIN: "bogus", Position: 1, Status: importer.EntryError, Error: "invalid PIN"},
		},
	}

	var out bytes.Buffer
	jobTable(&out, job).Render()

	// go-pretty upper cases headers and footers
	text := strings.ToLower(out.String())
	require.Contains(t, text, "import job-1: complete")
	require.Contains(t, text, "invalid pin")
	require.Contains(t, text, "1 failed")
}

func TestParcelFeature(t *testing.T) {
	record := property.NewRecord(property.GIS, "17-20-226-020-0000", fetchedAt)
	record.Payload = &property.GISData{
		Attributes: map[string]any{
			"PIN":      "17202260200000",
			"TOWNSHIP": "WEST CHICAGO",
			"SHAPE":    map[string]any{"area": 1.0},
			"ACRES":    0.25,
		},
		GeographicRings: [][]property.LatLng{{
			{Lat: 41.0, Lng: -87.0},
			{Lat: 41.1, Lng: -87.0},
			{Lat: 41.1, Lng: -87.1},
			{Lat: 41.0, Lng: -87.0},
		}},
	}

	feature, err := parcelFeature(record)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"PIN":      "17-20-226-020-0000",
		"TOWNSHIP": "WEST CHICAGO",
		"ACRES":    "0.25",
	}, feature.Attrs)
	require.Len(t, feature.Rings, 1)
	require.Equal(t, [2]float64{-87.0, 41.0}, feature.Rings[0][0])

	empty := property.NewRecord(property.GIS, "17-20-226-020-0000", fetchedAt)
	empty.Payload = &property.GISData{}
	_, err = parcelFeature(empty)
	require.Equal(t, property.CodeNotFound, property.CodeOf(err))

	failed := property.ErrorRecord(property.GIS, "17-20-226-020-0000", fetchedAt,
		property.Errorf(property.CodeFetchError, property.GIS, "timeout"))
	_, err = parcelFeature(failed)
	require.Equal(t, property.CodeFetchError, property.CodeOf(err))
}
