package app

import (
	"sync"
	"time"

	"betting-assessment-service/internal/domain"
)

// Student owns one student's session. All mutations go through its mutex so
// two submits for the same student can never interleave.
type Student struct {
	id string

	mu    sync.Mutex
	state domain.StudentSession
}

func newStudent(id, name string, settings domain.Settings, joinedAt time.Time) *Student {
	return &Student{
		id: id,
		state: domain.StudentSession{
			ID:            id,
			Name:          name,
			Coins:         settings.InitialCoins,
			RemainingTime: settings.TotalDuration,
			Responses:     []domain.Response{},
			JoinedAt:      joinedAt,
		},
	}
}

// ID is the student's immutable identifier.
func (s *Student) ID() string {
	return s.id
}

// Snapshot returns a consistent copy of the session.
func (s *Student) Snapshot() domain.StudentSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Student) submit(bank *domain.QuestionBank, settings domain.Settings, sub domain.Submission) (domain.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, result, err := Settle(s.state, bank, settings, sub)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	s.state = next
	return result, nil
}
