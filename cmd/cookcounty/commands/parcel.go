package commands

import (
	"fmt"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/shputil"

	"github.com/spf13/cobra"
)

var parcelCmd = &cobra.Command{
	Use:   "parcel-shp <pin> <out.shp>",
	Short: "Export the parcel outline of a property as a shapefile in WGS84.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.lookup.FetchSource(cmd.Context(), args[0], property.GIS)
		if err != nil {
			return err
		}
		feature, err := parcelFeature(res.Record)
		if err != nil {
			return err
		}
		err = shputil.WritePolygons(args[1], []shputil.Feature{feature})
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d rings to %s\n", len(feature.Rings), args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parcelCmd)
}

// parcelFeature converts the geographic rings of a GIS record into a
// shapefile feature with x as longitude. Scalar attributes are kept.
func parcelFeature(record property.Record) (shputil.Feature, error) {
	if record.Failed() {
		return shputil.Feature{}, property.Errorf(record.ErrorCode, property.GIS, "%s", record.Error)
	}
	data, ok := record.Payload.(*property.GISData)
	if !ok || len(data.GeographicRings) == 0 {
		return shputil.Feature{}, property.Errorf(property.CodeNotFound, property.GIS, "no parcel geometry for %s", record.PIN)
	}

	feature := shputil.Feature{
		Attrs: map[string]string{"PIN": record.PIN},
	}
	for _, ring := range data.GeographicRings {
		coords := make([][2]float64, len(ring))
		for i, ll := range ring {
			coords[i] = [2]float64{ll.Lng, ll.Lat}
		}
		feature.Rings = append(feature.Rings, coords)
	}

	for k, value := range data.Attributes {
		if k == "PIN" {
			continue
		}
		switch v := value.(type) {
		case string:
			feature.Attrs[k] = v
		case float64, bool, int, int64:
			feature.Attrs[k] = fmt.Sprint(v)
		}
	}
	return feature, nil
}
