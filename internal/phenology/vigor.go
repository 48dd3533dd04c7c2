package phenology

import (
	"github.com/bloomwatch/backend/internal/domain"
)

// Vigor bands
const (
	VigorHighThreshold   = 0.6
	VigorMediumThreshold = 0.3
)

// Vigor interprets one NDVI value for a non-technical reader
func Vigor(value float64) domain.Vigor {
	switch {
	case value >= VigorHighThreshold:
		return domain.Vigor{
			Level:       domain.VigorHigh,
			Value:       value,
			Description: "Plants at this point look very healthy and vigorous.",
		}
	case value >= VigorMediumThreshold:
		return domain.Vigor{
			Level:       domain.VigorMedium,
			Value:       value,
			Description: "Plant vigor is moderate; keep monitoring.",
		}
	default:
		return domain.Vigor{
			Level:       domain.VigorLow,
			Value:       value,
			Description: "Plants show signs of stress or there is little vegetation; needs attention.",
		}
	}
}

// LatestVigor interprets the most recent point of series. ok is false for an
// empty series.
func LatestVigor(series []domain.SeriesPoint) (v domain.Vigor, ok bool) {
	if len(series) == 0 {
		return domain.Vigor{}, false
	}
	sorted := sortedCopy(series)
	last := sorted[len(sorted)-1]
	v = Vigor(last.NDVI)
	v.Date = last.Date
	return v, true
}
