package service

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/bloomwatch/backend/internal/domain"
	"github.com/bloomwatch/backend/pkg/utils"
)

// SyntheticStepDays is the spacing of generated samples
const SyntheticStepDays = 8

// SyntheticGenerator builds a plausible seasonal NDVI curve for demo mode
type SyntheticGenerator struct {
	mu    sync.Mutex
	noise func() float64
}

// NewSyntheticGenerator creates a generator with uniform noise in [-0.015, 0.015)
func NewSyntheticGenerator() *SyntheticGenerator {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &SyntheticGenerator{
		noise: func() float64 { return (rng.Float64() - 0.5) * 0.03 },
	}
}

// NewSyntheticGeneratorWithNoise uses noise as the per-sample perturbation
func NewSyntheticGeneratorWithNoise(noise func() float64) *SyntheticGenerator {
	return &SyntheticGenerator{noise: noise}
}

// Series generates samples every 8 days across [req.Start, req.End]. Dates
// must already be validated.
func (g *SyntheticGenerator) Series(req domain.SeriesRequest, mode domain.Mode) domain.SeriesResult {
	start, _ := time.Parse(domain.DateLayout, req.Start)
	end, _ := time.Parse(domain.DateLayout, req.End)

	days := int(math.Round(end.Sub(start).Hours() / 24))
	if days < 1 {
		days = 1
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	points := make([]domain.SeriesPoint, 0, days/SyntheticStepDays+1)
	for i := 0; i <= days; i += SyntheticStepDays {
		t := float64(i) / float64(days) * 2 * math.Pi
		ndvi := 0.3 + 0.25*math.Sin(t+0.6) + 0.05*math.Cos(2*t)
		ndvi = utils.Clamp(ndvi+g.noise(), 0, 0.9)
		points = append(points, domain.SeriesPoint{
			Date: start.AddDate(0, 0, i).Format(domain.DateLayout),
			NDVI: utils.RoundTo(ndvi, 3),
		})
	}

	return domain.SeriesResult{
		Points: points,
		Meta: domain.SeriesMeta{
			Mode:    mode,
			Lat:     req.Latitude,
			Lon:     req.Longitude,
			Start:   req.Start,
			End:     req.End,
			Product: req.Product,
		},
		Source: domain.SourceSynthetic,
	}
}
