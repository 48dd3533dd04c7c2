package service

import (
	"github.com/bloomwatch/backend/internal/domain"
)

// JournalRepository is re-exported from domain for convenience
type JournalRepository = domain.JournalRepository
