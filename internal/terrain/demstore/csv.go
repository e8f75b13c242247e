package demstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/terrasketch/drawtool/pkg/core"
)

const importBatchSize = 2000

// ImportResult summarises a CSV import.
type ImportResult struct {
	Imported int
	Skipped  int
}

// ImportCSV loads elevation posts from a CSV with a header row naming the
// longitude (lon|lng|longitude|x), latitude (lat|latitude|y) and height
// (height|h|elevation|elev|z) columns. Rows that do not parse are skipped.
func (s *Store) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, errors.New("csv: empty input")
	}
	if err != nil {
		return res, fmt.Errorf("csv: reading header: %w", err)
	}

	idxLon, idxLat, idxHeight := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "lon", "lng", "long", "longitude", "x":
			if idxLon == -1 {
				idxLon = i
			}
		case "lat", "latitude", "y":
			if idxLat == -1 {
				idxLat = i
			}
		case "height", "h", "elevation", "elev", "z":
			if idxHeight == -1 {
				idxHeight = i
			}
		}
	}
	if idxLon == -1 || idxLat == -1 || idxHeight == -1 {
		return res, errors.New("csv: longitude/latitude/height columns not found")
	}

	batch := make([]core.GeoPoint, 0, importBatchSize)
	flush := func() error {
		n, err := s.Put(ctx, batch)
		if err != nil {
			return err
		}
		res.Imported += n
		batch = batch[:0]
		return nil
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("csv: %w", err)
		}

		p, ok := parseRow(row, idxLon, idxLat, idxHeight)
		if !ok {
			res.Skipped++
			continue
		}
		batch = append(batch, p)
		if len(batch) == importBatchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}

	s.Logger.Info().
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Msg("Imported DEM cells")
	return res, nil
}

func parseRow(row []string, idxLon, idxLat, idxHeight int) (core.GeoPoint, bool) {
	if idxLon >= len(row) || idxLat >= len(row) || idxHeight >= len(row) {
		return core.GeoPoint{}, false
	}
	lon, err1 := strconv.ParseFloat(strings.TrimSpace(row[idxLon]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(row[idxLat]), 64)
	h, err3 := strconv.ParseFloat(strings.TrimSpace(row[idxHeight]), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return core.GeoPoint{}, false
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return core.GeoPoint{}, false
	}
	return core.GeoPoint{Longitude: lon, Latitude: lat, Height: h}, true
}
