package repository

import (
	"crowdwatch/internal/dto"
	"crowdwatch/internal/model"
)

// RecordRepository defines the interface for analysis record operations.
type RecordRepository interface {
	// Create operations
	Insert(rec *model.Record) (int64, error)
	InsertBatch(records []model.Record) error

	// Read operations
	GetAll(filter *dto.RecordFilters) ([]model.Record, error)
	GetTotalCount(filter *dto.RecordFilters) (int, error)
	GetSessions() ([]model.Session, error)

	// Delete operations
	DeleteAll() error
}
