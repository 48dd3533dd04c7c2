package phenology

import "fmt"

// Thresholds tune the stage rule and the confidence score
type Thresholds struct {
	MinPoints       int     // below this the series is InsufficientData
	SmoothingWindow int     // centered moving average width
	SlopeWindow     int     // trailing smoothed samples used for the slope
	PeakWindow      int     // trailing smoothed samples searched for the seasonal peak
	CadenceDays     float64 // nominal spacing of composite samples
	FlatSlope       float64 // |slope| below this counts as a plateau
	RisingSlope     float64 // slope above this counts as green-up
	PeakRatio       float64 // fraction of the peak that counts as "at peak"
	SaturatingSlope float64 // slope at which the slope confidence term saturates
	FullSeries      int     // point count at which the length term saturates
	MinConfidence   float64
}

// DefaultThresholds returns the stock tuning for 16-day MODIS composites
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPoints:       5,
		SmoothingWindow: 3,
		SlopeWindow:     4,
		PeakWindow:      8, // ceil(120 days / 16)
		CadenceDays:     16,
		FlatSlope:       0.015,
		RisingSlope:     0.03,
		PeakRatio:       0.9,
		SaturatingSlope: 0.06,
		FullSeries:      24,
		MinConfidence:   0.2,
	}
}

// Validate checks that the thresholds describe a usable rule
func (t Thresholds) Validate() error {
	switch {
	case t.MinPoints < 2:
		return fmt.Errorf("phenology: min points must be at least 2, got %d", t.MinPoints)
	case t.SmoothingWindow < 1 || t.SlopeWindow < 2 || t.PeakWindow < 1:
		return fmt.Errorf("phenology: windows must be positive")
	case t.CadenceDays <= 0 || t.SaturatingSlope <= 0 || t.FullSeries <= 0:
		return fmt.Errorf("phenology: cadence, saturating slope and full series must be positive")
	case t.FlatSlope < 0 || t.RisingSlope < 0:
		return fmt.Errorf("phenology: slope thresholds must not be negative")
	case t.PeakRatio <= 0 || t.PeakRatio > 1:
		return fmt.Errorf("phenology: peak ratio must be in (0, 1], got %v", t.PeakRatio)
	case t.MinConfidence < 0 || t.MinConfidence > 1:
		return fmt.Errorf("phenology: min confidence must be in [0, 1], got %v", t.MinConfidence)
	}
	return nil
}
