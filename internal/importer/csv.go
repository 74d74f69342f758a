package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
)

// ParsePinsCSV reads the PINs in the first column of a CSV upload. Dashed
// and bare 14 digit PINs are both accepted and returned in dashed form, a
// first row that isn't a PIN is taken to be a header. Other cells that
// aren't PINs are returned as is so the job can report them.
func ParsePinsCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var pins []string
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read pins csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		cell := strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff"))
		if cell == "" {
			continue
		}
		p, err := pin.ParseLoose(cell)
		if err != nil {
			if row == 0 {
				continue
			}
			pins = append(pins, cell)
			continue
		}
		pins = append(pins, p.String())
	}
	return pins, nil
}
