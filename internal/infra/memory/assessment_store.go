package memory

import (
	"context"
	"sync"

	"betting-assessment-service/internal/app"
	"betting-assessment-service/internal/domain"
)

// AssessmentStore is an in-memory implementation of app.AssessmentRepository.
type AssessmentStore struct {
	mu          sync.RWMutex
	codes       map[string]*app.Assessment
	assessments map[string]*app.Assessment
}

func NewAssessmentStore() *AssessmentStore {
	return &AssessmentStore{
		codes:       make(map[string]*app.Assessment),
		assessments: make(map[string]*app.Assessment),
	}
}

func (s *AssessmentStore) Get(code string) (*app.Assessment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.codes[code]
	return a, ok
}

// Put indexes a under both codes, or neither.
func (s *AssessmentStore) Put(_ context.Context, a *app.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[a.StudentCode]; ok {
		return domain.ErrCodeConflict
	}
	if _, ok := s.codes[a.TeacherCode]; ok {
		return domain.ErrCodeConflict
	}
	s.codes[a.StudentCode] = a
	s.codes[a.TeacherCode] = a
	s.assessments[a.ID] = a
	return nil
}

func (s *AssessmentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assessments)
}
