package domain

import (
	"context"
	"time"
)

// AcquisitionRecord is one audit entry for a served series request
type AcquisitionRecord struct {
	Latitude   float64
	Longitude  float64
	Start      string
	End        string
	Product    string
	Layer      string
	Mode       Mode
	PointCount int
	Warning    string
	CreatedAt  time.Time
}

// JournalRepository defines the write-only audit sink for acquisitions.
// Nothing written here is read back to serve a request.
type JournalRepository interface {
	// SaveAcquisition persists one acquisition outcome
	SaveAcquisition(ctx context.Context, rec AcquisitionRecord) error

	// Health checks storage connectivity
	Health(ctx context.Context) error
}
