// Package csvfile reads the client spreadsheet and writes the region summary.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/region-choropleth/internal/domain"
)

var (
	regionAliases = []string{"region", "region_id", "constituency", "name_of_region"}
	nameAliases   = []string{"name", "client", "client_name"}
	latAliases    = []string{"latitude", "lat"}
	lonAliases    = []string{"longitude", "lon", "lng"}
)

// Options selects the CSV columns to read. Empty fields fall back to the
// built-in aliases.
type Options struct {
	RegionColumn string
	StatusColumn string
}

// Clients is the parsed client spreadsheet.
type Clients struct {
	Records []domain.ClientRecord
	// Invalid lists rows whose coordinates were rejected. Those records are
	// kept without coordinates.
	Invalid []error
}

type columns struct {
	region, status, name, address, lat, lon int
}

// ParseClients reads a client CSV with a header row. A missing status column,
// or a missing region column when there are no coordinate columns to locate
// records by, fails the whole read.
func ParseClients(r io.Reader, opts Options) (Clients, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Clients{}, errors.New("client csv is empty: header row required")
	}
	if err != nil {
		return Clients{}, fmt.Errorf("read client csv header: %w", err)
	}

	cols, err := resolveColumns(header, opts)
	if err != nil {
		return Clients{}, err
	}

	var out Clients
	row := 0
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Clients{}, fmt.Errorf("read client csv after row %d: %w", row, err)
		}
		if blank(fields) {
			continue
		}
		row++

		rec := domain.ClientRecord{
			Row:      row,
			RegionID: cell(fields, cols.region),
			Name:     cell(fields, cols.name),
			Address:  cell(fields, cols.address),
			Status:   cell(fields, cols.status),
		}

		geo, ok, err := parseCoords(cell(fields, cols.lat), cell(fields, cols.lon))
		if err != nil {
			out.Invalid = append(out.Invalid, &domain.DataError{
				Row: row, RegionID: rec.RegionID, Field: "coordinates", Err: err,
			})
		} else if ok {
			rec.Geo = geo
			rec.HasCoords = true
		}

		out.Records = append(out.Records, rec)
	}
	return out, nil
}

func resolveColumns(header []string, opts Options) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	find := func(names ...string) int {
		for _, n := range names {
			if i, ok := index[strings.ToLower(n)]; ok {
				return i
			}
		}
		return -1
	}

	cols := columns{
		name:    find(nameAliases...),
		address: find("address"),
		lat:     find(latAliases...),
		lon:     find(lonAliases...),
	}

	statusCol := opts.StatusColumn
	if statusCol == "" {
		statusCol = "status"
	}
	cols.status = find(statusCol)
	if cols.status < 0 {
		return columns{}, fmt.Errorf("client csv has no %q column", statusCol)
	}

	if opts.RegionColumn != "" {
		cols.region = find(opts.RegionColumn)
		if cols.region < 0 {
			return columns{}, fmt.Errorf("client csv has no %q column", opts.RegionColumn)
		}
	} else {
		cols.region = find(regionAliases...)
	}

	hasCoords := cols.lat >= 0 && cols.lon >= 0
	if cols.region < 0 && !hasCoords && cols.address < 0 {
		return columns{}, fmt.Errorf("client csv needs a region column (%s), coordinates or an address",
			strings.Join(regionAliases, ", "))
	}
	return cols, nil
}

func parseCoords(latStr, lonStr string) (domain.Geo, bool, error) {
	if latStr == "" && lonStr == "" {
		return domain.Geo{}, false, nil
	}
	if latStr == "" || lonStr == "" {
		return domain.Geo{}, false, fmt.Errorf("%w: both latitude and longitude are required", domain.ErrInvalidCoords)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.Geo{}, false, fmt.Errorf("%w: latitude %q", domain.ErrInvalidCoords, latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return domain.Geo{}, false, fmt.Errorf("%w: longitude %q", domain.ErrInvalidCoords, lonStr)
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return domain.Geo{}, false, fmt.Errorf("%w: [%g, %g] out of range", domain.ErrInvalidCoords, lat, lon)
	}
	return domain.Geo{Lat: lat, Lon: lon}, true, nil
}

func cell(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
