package phenology

import (
	"time"

	"github.com/bloomwatch/backend/internal/domain"
)

type bloomWindow struct {
	startMonth time.Month
	startDay   int
	endMonth   time.Month
	endDay     int
}

// Northern Mexico bloom windows per crop
var bloomWindows = map[string]bloomWindow{
	CropWalnut:  {time.March, 5, time.April, 15},
	CropApple:   {time.March, 15, time.April, 20},
	CropCotton:  {time.May, 15, time.June, 30},
	CropCorn:    {time.June, 10, time.July, 10},
	CropAlfalfa: {time.March, 1, time.April, 10},
}

var calendarHints = map[domain.Status]string{
	domain.StatusPreFlowering:  "Prepare hives and apply light irrigation.",
	domain.StatusFlowering:     "Maximize pollination and avoid crop stress.",
	domain.StatusPostFlowering: "Watch for post-bloom pests.",
}

// CalendarEstimate places date relative to the crop's fixed bloom window,
// without looking at any NDVI data. An empty crop means walnut.
func CalendarEstimate(date time.Time, crop string) domain.StageEstimate {
	if crop == "" {
		crop = CropWalnut
	}
	c, ok := CanonicalCrop(crop)
	if !ok {
		return domain.StageEstimate{Status: domain.StatusInsufficientData, Hint: "No bloom window defined for this crop."}
	}
	w := bloomWindows[c]

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Date(date.Year(), w.startMonth, w.startDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(date.Year(), w.endMonth, w.endDay, 0, 0, 0, 0, time.UTC)

	var status domain.Status
	switch {
	case day.Before(start):
		status = domain.StatusPreFlowering
	case !day.After(end):
		status = domain.StatusFlowering
	default:
		status = domain.StatusPostFlowering
	}
	return domain.StageEstimate{Status: status, Hint: calendarHints[status]}
}
