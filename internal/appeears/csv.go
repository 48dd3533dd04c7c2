package appeears

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bloomwatch/backend/internal/domain"
	"github.com/bloomwatch/backend/pkg/utils"
)

// ParseSeriesCSV reads a point-sample CSV. The first row is the header; the
// first column whose name contains "date" or "time" and the first whose name
// contains "ndvi" are used, everything else is ignored. Rows with an empty
// cell or a non-numeric NDVI are skipped.
func ParseSeriesCSV(r io.Reader) ([]domain.SeriesPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", domain.ErrMalformedArtifact)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedArtifact, err)
	}

	dateIdx, ndviIdx := -1, -1
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if dateIdx < 0 && (strings.Contains(name, "date") || strings.Contains(name, "time")) {
			dateIdx = i
		}
		if ndviIdx < 0 && strings.Contains(name, "ndvi") {
			ndviIdx = i
		}
	}
	if dateIdx < 0 || ndviIdx < 0 {
		return nil, fmt.Errorf("%w: header %q lacks a date or ndvi column", domain.ErrMalformedArtifact, header)
	}

	points := make([]domain.SeriesPoint, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				continue
			}
			return nil, fmt.Errorf("appeears: read csv: %w", err)
		}
		if dateIdx >= len(row) || ndviIdx >= len(row) {
			continue
		}
		date := strings.TrimSpace(row[dateIdx])
		raw := strings.TrimSpace(row[ndviIdx])
		if date == "" || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !utils.IsFinite(v) {
			continue
		}
		if len(date) > 10 {
			date = date[:10]
		}
		points = append(points, domain.SeriesPoint{Date: date, NDVI: v})
	}
	return points, nil
}
