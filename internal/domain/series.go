package domain

// DefaultProduct is the MODIS vegetation index product queried when the caller does not override it
const DefaultProduct = "MYD13Q1.061"

// DateLayout is the calendar-date encoding used on the inbound API and in SeriesPoint
const DateLayout = "2006-01-02"

// Mode labels where a series came from
type Mode string

const (
	ModeLive         Mode = "appeears"
	ModeDemo         Mode = "demo"
	ModeFallbackDemo Mode = "fallback_demo"
)

// Source tags a SeriesResult as real or synthetic
type Source string

const (
	SourceReal      Source = "real"
	SourceSynthetic Source = "synthetic"
)

// SyntheticReason explains why a synthetic series was substituted
type SyntheticReason string

const (
	ReasonNone             SyntheticReason = ""
	ReasonNoCredential     SyntheticReason = "no_credential"
	ReasonUpstreamRejected SyntheticReason = "upstream_rejected"
)

// Coordinate is a WGS84 point
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// SeriesRequest is one point time series query
type SeriesRequest struct {
	Coordinate
	Start   string `json:"start"`
	End     string `json:"end"`
	Product string `json:"product,omitempty"`
}

// SeriesPoint is a single NDVI observation at calendar-date precision
type SeriesPoint struct {
	Date string  `json:"date"`
	NDVI float64 `json:"ndvi"`
}

// SeriesMeta documents provenance and echoes the request
type SeriesMeta struct {
	Mode    Mode    `json:"mode"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Start   string  `json:"start"`
	End     string  `json:"end"`
	Product string  `json:"product"`
	Layer   string  `json:"layer,omitempty"`
	TaskID  string  `json:"taskId,omitempty"`
}

// SeriesResult is the tagged outcome of an acquisition. Synthetic results
// carry the reason and, when the upstream rejected the request, its error.
type SeriesResult struct {
	Points   []SeriesPoint
	Meta     SeriesMeta
	Source   Source
	Reason   SyntheticReason
	Upstream *UpstreamError
}

// Synthetic reports whether the points were generated locally
func (r SeriesResult) Synthetic() bool {
	return r.Source == SourceSynthetic
}
