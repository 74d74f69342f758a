package property

import "fmt"

// SourceKind names one of the four county data providers.
type SourceKind string

const (
	TaxPortal SourceKind = "tax-portal"
	Clerk     SourceKind = "clerk"
	Recorder  SourceKind = "recorder"
	GIS       SourceKind = "gis"
)

var sources = []SourceKind{TaxPortal, Clerk, Recorder, GIS}

// Sources returns every source in a fixed order.
func Sources() []SourceKind {
	out := make([]SourceKind, len(sources))
	copy(out, sources)
	return out
}

// ParseSourceKind accepts the wire name of a source.
func ParseSourceKind(s string) (SourceKind, error) {
	for _, k := range sources {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown source '%s'", s)
}
