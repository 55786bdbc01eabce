package app

import (
	"sort"
	"strings"
	"sync"
	"time"

	"betting-assessment-service/internal/domain"
	"github.com/google/uuid"
)

// StatusActive is the only status an assessment has during the process lifetime.
const StatusActive = "active"

// Assessment is a live assessment: its immutable question bank plus the
// students who joined it.
type Assessment struct {
	ID          string
	Name        string
	StudentCode string
	TeacherCode string
	Bank        *domain.QuestionBank
	Settings    domain.Settings
	CreatedAt   time.Time
	Status      string

	now func() time.Time

	mu       sync.RWMutex
	students map[string]*Student
	byName   map[string]*Student
}

func newAssessment(name, studentCode, teacherCode string, bank *domain.QuestionBank, settings domain.Settings, now func() time.Time) *Assessment {
	return &Assessment{
		ID:          uuid.NewString(),
		Name:        name,
		StudentCode: studentCode,
		TeacherCode: teacherCode,
		Bank:        bank,
		Settings:    settings,
		CreatedAt:   now(),
		Status:      StatusActive,
		now:         now,
		students:    make(map[string]*Student),
		byName:      make(map[string]*Student),
	}
}

// IsTeacherCode reports an exact, case-insensitive match against the stored teacher code.
func (a *Assessment) IsTeacherCode(code string) bool {
	return a.TeacherCode != "" && NormalizeCode(code) == a.TeacherCode
}

// Student looks up a joined student by ID.
func (a *Assessment) Student(id string) (*Student, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.students[id]
	return s, ok
}

// StudentCount is the number of students who joined.
func (a *Assessment) StudentCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.students)
}

// Students returns snapshots of every session ordered by join time.
func (a *Assessment) Students() []domain.StudentSession {
	a.mu.RLock()
	students := make([]*Student, 0, len(a.students))
	for _, s := range a.students {
		students = append(students, s)
	}
	a.mu.RUnlock()

	out := make([]domain.StudentSession, 0, len(students))
	for _, s := range students {
		out = append(out, s.Snapshot())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Info is the read-only header used by reports.
func (a *Assessment) Info() domain.AssessmentInfo {
	return domain.AssessmentInfo{
		ID:          a.ID,
		Name:        a.Name,
		StudentCode: a.StudentCode,
		CreatedAt:   a.CreatedAt,
		Settings:    a.Settings,
		Questions:   a.Bank.All(),
	}
}

// join returns the existing session for a case-insensitive name match, or
// creates a fresh one. The boolean is true on rejoin.
func (a *Assessment) join(name string) (*Student, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, domain.ErrInvalidName
	}
	key := strings.ToLower(name)

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.byName[key]; ok {
		return existing, true, nil
	}
	student := newStudent(uuid.NewString(), name, a.Settings, a.now())
	a.students[student.ID()] = student
	a.byName[key] = student
	return student, false, nil
}
