package storage

import (
	"context"
	"sync"
	"time"

	"crowdwatch/internal/config"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/repository"
)

// maxPendingFactor bounds how many records are kept, as a multiple of the
// buffer limit, while the database keeps failing.
const maxPendingFactor = 20

// BufferService buffers analysis records in memory and writes them to the
// repository in batches, on a ticker or as soon as the limit is reached.
type BufferService struct {
	records       []model.Record
	limit         int
	flushInterval time.Duration
	flushCh       chan struct{}
	mu            sync.Mutex
	logger        *logger.Logger
	recordRepo    repository.RecordRepository
}

// NewBufferService creates a new BufferService with the flush settings from config.
func NewBufferService(config *config.Config, logger *logger.Logger, recordRepo repository.RecordRepository) *BufferService {
	return &BufferService{
		records:       make([]model.Record, 0, config.RecordBufferLimit),
		limit:         config.RecordBufferLimit,
		flushInterval: time.Duration(config.RecordFlushInterval) * time.Second,
		flushCh:       make(chan struct{}, 1),
		logger:        logger,
		recordRepo:    recordRepo,
	}
}

// Run flushes periodically and on demand until ctx is done, then flushes
// whatever is left.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.Flush(); err != nil {
				s.logger.Error("Final record flush failed: %v", err)
			}
			return
		case <-ticker.C:
		case <-s.flushCh:
		}
		if err := s.Flush(); err != nil {
			s.logger.Error("Record flush failed: %v", err)
		}
	}
}

// AddRecord appends a record and requests a flush once the limit is reached.
func (s *BufferService) AddRecord(rec model.Record) {
	s.mu.Lock()
	s.records = append(s.records, rec)
	full := len(s.records) >= s.limit
	s.mu.Unlock()

	if full {
		select {
		case s.flushCh <- struct{}{}:
		default:
		}
	}
}

// Flush writes every buffered record in one batch. On failure the records are
// put back so the next flush retries them.
func (s *BufferService) Flush() error {
	s.mu.Lock()
	if len(s.records) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := s.records
	s.records = make([]model.Record, 0, s.limit)
	s.mu.Unlock()

	if err := s.recordRepo.InsertBatch(batch); err != nil {
		s.requeue(batch)
		return err
	}

	s.logger.Info("Flushed %d records to database", len(batch))
	return nil
}

// requeue puts a failed batch back in front of newer records, dropping the
// oldest ones beyond the pending limit.
func (s *BufferService) requeue(batch []model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := append(batch, s.records...)
	if limit := s.limit * maxPendingFactor; len(merged) > limit {
		s.logger.Warning("Dropping %d buffered records", len(merged)-limit)
		merged = merged[len(merged)-limit:]
	}
	s.records = merged
}

// Pending returns the number of records waiting to be written.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
