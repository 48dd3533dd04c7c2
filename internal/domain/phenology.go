package domain

// Status is a phenological stage category
type Status string

const (
	StatusInsufficientData Status = "InsufficientData"
	StatusPreFlowering     Status = "PreFlowering"
	StatusFlowering        Status = "Flowering"
	StatusPostFlowering    Status = "PostFlowering"
	StatusStable           Status = "StableVegetation"
)

// StageEstimate is a stage plus advisory text for the crop
type StageEstimate struct {
	Status Status `json:"status"`
	Hint   string `json:"hint"`
}

// AnalysisMeta carries the numbers behind a classification
type AnalysisMeta struct {
	PointCount         int     `json:"pointCount"`
	RecentSlope        float64 `json:"recentSlope"`
	SeasonalPeak       float64 `json:"seasonalPeak"`
	LastValue          float64 `json:"lastValue"`
	PredictedNextValue float64 `json:"predictedNextValue"`
	Confidence         float64 `json:"confidence"`
}

// AnalysisResult is the current stage and the short-horizon forecast
type AnalysisResult struct {
	Now  StageEstimate `json:"now"`
	Next StageEstimate `json:"next"`
	Meta AnalysisMeta  `json:"meta"`
}

// VigorLevel buckets the latest NDVI value for non-technical readers
type VigorLevel string

const (
	VigorHigh   VigorLevel = "high"
	VigorMedium VigorLevel = "medium"
	VigorLow    VigorLevel = "low"
)

// Vigor is the interpretation of a single NDVI value
type Vigor struct {
	Level       VigorLevel `json:"level"`
	Value       float64    `json:"value"`
	Date        string     `json:"date,omitempty"`
	Description string     `json:"description"`
}
