// Package memory is a process-local processing store for single-instance deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kmrl/documind/internal/core/domain"
)

type Store struct {
	mu      sync.RWMutex
	records map[string]domain.ProcessingRecord
}

func NewStore() *Store {
	return &Store{records: make(map[string]domain.ProcessingRecord)}
}

func (s *Store) Save(_ context.Context, rec *domain.ProcessingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = cloneRecord(*rec)
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.ProcessingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get processing record", fmt.Errorf("processing id %s", id))
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (s *Store) UpdateClassification(
	_ context.Context,
	id string,
	status domain.ClassificationStatus,
	cls *domain.ClassificationResult,
	errMessage string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update classification", fmt.Errorf("processing id %s", id))
	}
	rec.ClassificationStatus = status
	rec.Classification = cloneClassification(cls)
	rec.ClassificationError = errMessage
	rec.UpdatedAt = time.Now().UTC()
	s.records[id] = rec
	return nil
}

func cloneRecord(rec domain.ProcessingRecord) domain.ProcessingRecord {
	rec.Classification = cloneClassification(rec.Classification)
	rec.Result.Classification = cloneClassification(rec.Result.Classification)
	if rec.Result.Translation != nil {
		tr := *rec.Result.Translation
		rec.Result.Translation = &tr
	}
	rec.Result.ProcessingInfo.Errors = append([]string(nil), rec.Result.ProcessingInfo.Errors...)
	return rec
}

func cloneClassification(cls *domain.ClassificationResult) *domain.ClassificationResult {
	if cls == nil {
		return nil
	}
	out := *cls
	out.AllCategories = append([]domain.CategoryScore(nil), cls.AllCategories...)
	out.GoogleCategories = append([]domain.VendorCategory(nil), cls.GoogleCategories...)
	return &out
}
