// Package phenology turns an NDVI time series into a crop stage estimate
// and a short-horizon forecast. Everything here is pure and safe for
// concurrent use.
package phenology

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/bloomwatch/backend/internal/domain"
	"github.com/bloomwatch/backend/pkg/utils"
)

// DefaultHorizonDays is the forecast distance used when callers give none
const DefaultHorizonDays = 16

// Classifier applies the stage rule with a fixed set of thresholds
type Classifier struct {
	th Thresholds
}

// NewClassifier creates a classifier. Invalid thresholds fall back to the defaults.
func NewClassifier(th Thresholds) *Classifier {
	if th.Validate() != nil {
		th = DefaultThresholds()
	}
	return &Classifier{th: th}
}

// Thresholds returns the tuning in use
func (c *Classifier) Thresholds() Thresholds {
	return c.th
}

// Classify estimates the current stage of series and the stage horizonDays
// ahead. The input slice is not modified and may be in any order.
func (c *Classifier) Classify(series []domain.SeriesPoint, crop string, horizonDays float64) domain.AnalysisResult {
	n := len(series)
	if n < c.th.MinPoints {
		insufficient := domain.StageEstimate{
			Status: domain.StatusInsufficientData,
			Hint:   HintFor(crop, domain.StatusInsufficientData),
		}
		return domain.AnalysisResult{
			Now:  insufficient,
			Next: insufficient,
			Meta: domain.AnalysisMeta{PointCount: n, Confidence: c.th.MinConfidence},
		}
	}
	if horizonDays < 0 || !utils.IsFinite(horizonDays) {
		horizonDays = 0
	}

	smoothed := smooth(values(sortedCopy(series)), c.th.SmoothingWindow)
	slope := recentSlope(smoothed, c.th.SlopeWindow)
	peak := seasonalPeak(smoothed, c.th.PeakWindow)
	last := smoothed[len(smoothed)-1]

	predicted := last + slope*horizonDays/c.th.CadenceDays
	nowStatus := c.stage(last, slope, peak)
	nextStatus := c.stage(predicted, slope, math.Max(peak, predicted))

	return domain.AnalysisResult{
		Now:  domain.StageEstimate{Status: nowStatus, Hint: HintFor(crop, nowStatus)},
		Next: domain.StageEstimate{Status: nextStatus, Hint: HintFor(crop, nextStatus)},
		Meta: domain.AnalysisMeta{
			PointCount:         n,
			RecentSlope:        utils.RoundTo(slope, 4),
			SeasonalPeak:       utils.RoundTo(peak, 4),
			LastValue:          utils.RoundTo(last, 4),
			PredictedNextValue: utils.RoundTo(predicted, 4),
			Confidence:         utils.RoundTo(c.confidence(n, slope, last, peak), 3),
		},
	}
}

// stage is the priority-ordered rule over a value, a slope and a peak reference
func (c *Classifier) stage(value, slope, peak float64) domain.Status {
	nearPeak := value >= c.th.PeakRatio*peak
	switch {
	case math.Abs(slope) < c.th.FlatSlope && nearPeak:
		return domain.StatusFlowering
	case slope > c.th.RisingSlope:
		return domain.StatusPreFlowering
	case !nearPeak && slope <= 0:
		return domain.StatusPostFlowering
	default:
		return domain.StatusStable
	}
}

func (c *Classifier) confidence(n int, slope, last, peak float64) float64 {
	lengthTerm := float64(n) / float64(c.th.FullSeries)
	slopeTerm := math.Min(1, math.Abs(slope)/c.th.SaturatingSlope)
	peakTerm := 0.0
	if peak > 0 {
		peakTerm = math.Min(1, last/peak)
	}
	score := 0.3*lengthTerm + 0.4*slopeTerm + 0.3*peakTerm
	return utils.Clamp(score, c.th.MinConfidence, 1)
}

// sortedCopy orders by date, then by value so that equal dates are stable
// under any permutation of the input
func sortedCopy(series []domain.SeriesPoint) []domain.SeriesPoint {
	out := make([]domain.SeriesPoint, len(series))
	copy(out, series)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].NDVI < out[j].NDVI
	})
	return out
}

func values(series []domain.SeriesPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.NDVI
	}
	return out
}

// smooth is a centered moving average; windows shrink at the edges
func smooth(xs []float64, window int) []float64 {
	half := window / 2
	out := make([]float64, len(xs))
	for i := range xs {
		lo := max(0, i-half)
		hi := min(len(xs), i+half+1)
		m, _ := stats.Mean(xs[lo:hi])
		out[i] = m
	}
	return out
}

// recentSlope is the mean first difference over the trailing window
func recentSlope(xs []float64, window int) float64 {
	tail := xs[max(0, len(xs)-window):]
	if len(tail) < 2 {
		return 0
	}
	diffs := make([]float64, len(tail)-1)
	for i := 1; i < len(tail); i++ {
		diffs[i-1] = tail[i] - tail[i-1]
	}
	m, _ := stats.Mean(diffs)
	return m
}

// seasonalPeak is the trailing-window maximum, or the global one when the
// window is degenerate
func seasonalPeak(xs []float64, window int) float64 {
	peak, _ := stats.Max(xs[max(0, len(xs)-window):])
	if peak > 0 {
		return peak
	}
	global, _ := stats.Max(xs)
	return global
}
