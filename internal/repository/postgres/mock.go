package postgres

import (
	"context"

	"github.com/bloomwatch/backend/internal/domain"
)

// MockRepository implements domain.JournalRepository when no database is configured
type MockRepository struct{}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SaveAcquisition is a no-op in mock mode
func (r *MockRepository) SaveAcquisition(ctx context.Context, rec domain.AcquisitionRecord) error {
	return nil
}

// Health always succeeds in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
