package app

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"betting-assessment-service/internal/domain"
)

const (
	// codeAlphabet leaves out I, O, 0 and 1.
	codeAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	studentCodeLength = 6
	maxCodeAttempts   = 32
	defaultName       = "Assessment"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9-]{3,40}$`)

// AssessmentRepository indexes live assessments by both of their codes.
type AssessmentRepository interface {
	Get(code string) (*Assessment, bool)
	// Put indexes a under its student and teacher codes, failing with
	// domain.ErrCodeConflict when either is already taken.
	Put(ctx context.Context, a *Assessment) error
	Count() int
}

// Defaults are the settings applied when a create request leaves them out.
type Defaults struct {
	InitialCoins  int
	WinMultiplier float64
	TimerSeconds  int
}

// MaxWinMultiplier bounds the payout factor accepted at creation.
const MaxWinMultiplier = 10.0

// DefaultSettings mirrors the classroom defaults: 1000 coins, 2x, 30s per question.
var DefaultSettings = Defaults{InitialCoins: 1000, WinMultiplier: 2.0, TimerSeconds: 30}

// Registry maps human-entered codes to assessments.
type Registry struct {
	repo     AssessmentRepository
	defaults Defaults
	random   io.Reader
	now      func() time.Time

	mu sync.Mutex
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithRandom replaces the code entropy source (tests use a fixed stream).
func WithRandom(r io.Reader) RegistryOption {
	return func(reg *Registry) { reg.random = r }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) RegistryOption {
	return func(reg *Registry) { reg.now = now }
}

// WithDefaults overrides the create-time defaults.
func WithDefaults(d Defaults) RegistryOption {
	return func(reg *Registry) { reg.defaults = d }
}

func NewRegistry(repo AssessmentRepository, opts ...RegistryOption) *Registry {
	r := &Registry{
		repo:     repo,
		defaults: DefaultSettings,
		random:   rand.Reader,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NormalizeCode trims and upper-cases a human-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether an already normalised code matches the code format.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Create validates the request, allocates codes and indexes the assessment.
// req.Questions must already hold the validated rows.
func (r *Registry) Create(ctx context.Context, req domain.CreateRequest) (*Assessment, error) {
	bank, err := domain.NewQuestionBank(req.Questions)
	if err != nil {
		return nil, err
	}
	settings, err := r.resolveSettings(req, bank.Len())
	if err != nil {
		return nil, err
	}

	studentCode := NormalizeCode(req.StudentCode)
	teacherCode := NormalizeCode(req.TeacherCode)
	if studentCode != "" && !ValidCode(studentCode) {
		return nil, fmt.Errorf("%w: studentCode %q", domain.ErrInvalidCode, studentCode)
	}
	if teacherCode != "" && !ValidCode(teacherCode) {
		return nil, fmt.Errorf("%w: teacherCode %q", domain.ErrInvalidCode, teacherCode)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if studentCode == "" {
		if studentCode, err = r.generateStudentCode(); err != nil {
			return nil, err
		}
	} else if _, taken := r.repo.Get(studentCode); taken {
		return nil, fmt.Errorf("%w: studentCode %s", domain.ErrCodeConflict, studentCode)
	}

	if teacherCode == "" {
		if teacherCode, err = r.deriveTeacherCode(studentCode); err != nil {
			return nil, err
		}
	} else if _, taken := r.repo.Get(teacherCode); taken {
		return nil, fmt.Errorf("%w: teacherCode %s", domain.ErrCodeConflict, teacherCode)
	}

	if studentCode == teacherCode {
		return nil, fmt.Errorf("%w: student and teacher codes must differ", domain.ErrCodeConflict)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultName
	}
	assessment := newAssessment(name, studentCode, teacherCode, bank, settings, r.now)
	if err := r.repo.Put(ctx, assessment); err != nil {
		return nil, err
	}
	return assessment, nil
}

// Resolve finds the assessment behind a student or teacher code.
func (r *Registry) Resolve(code string) (*Assessment, error) {
	a, ok := r.repo.Get(NormalizeCode(code))
	if !ok {
		return nil, domain.ErrAssessmentNotFound
	}
	return a, nil
}

// IsTeacherCode reports whether code is exactly the assessment's teacher code.
func (r *Registry) IsTeacherCode(a *Assessment, code string) bool {
	return a.IsTeacherCode(code)
}

// JoinStudent adds (or finds) the named student. code is the code the caller
// used to reach the assessment; the teacher code cannot be used to join.
func (r *Registry) JoinStudent(a *Assessment, code, name string) (*Student, bool, error) {
	if a.IsTeacherCode(code) {
		return nil, false, domain.ErrIsTeacherCode
	}
	return a.join(name)
}

// Count is the number of live assessments.
func (r *Registry) Count() int {
	return r.repo.Count()
}

func (r *Registry) resolveSettings(req domain.CreateRequest, questionCount int) (domain.Settings, error) {
	s := domain.Settings{
		InitialCoins:  req.InitialCoins,
		WinMultiplier: req.WinMultiplier,
		TimerSeconds:  req.TimerSeconds,
		TotalDuration: req.TotalDuration,
	}
	if s.InitialCoins == 0 {
		s.InitialCoins = r.defaults.InitialCoins
	}
	if s.WinMultiplier == 0 {
		s.WinMultiplier = r.defaults.WinMultiplier
	}
	if s.TimerSeconds == 0 {
		s.TimerSeconds = r.defaults.TimerSeconds
	}
	if s.TotalDuration == 0 {
		s.TotalDuration = s.TimerSeconds * questionCount
	}

	switch {
	case s.InitialCoins <= 0:
		return s, fmt.Errorf("%w: initialCoins must be positive", domain.ErrInvalidSettings)
	case !(s.WinMultiplier > 1) || s.WinMultiplier > MaxWinMultiplier:
		return s, fmt.Errorf("%w: winMultiplier must be greater than 1 and at most %g", domain.ErrInvalidSettings, MaxWinMultiplier)
	case s.TimerSeconds <= 0 || s.TotalDuration <= 0:
		return s, fmt.Errorf("%w: duration must be positive", domain.ErrInvalidSettings)
	}
	return s, nil
}

func (r *Registry) generateStudentCode() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := r.randomCode(studentCodeLength)
		if err != nil {
			return "", err
		}
		if _, taken := r.repo.Get(code); !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a free student code", domain.ErrCodeConflict)
}

func (r *Registry) deriveTeacherCode(studentCode string) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		digits, err := r.randomDigits()
		if err != nil {
			return "", err
		}
		code := fmt.Sprintf("%s-TCH-%d", studentCode, digits)
		if !ValidCode(code) {
			return "", fmt.Errorf("%w: studentCode too long to derive a teacherCode", domain.ErrInvalidCode)
		}
		if _, taken := r.repo.Get(code); !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a free teacher code", domain.ErrCodeConflict)
}

func (r *Registry) randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(r.random, buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf), nil
}

// randomDigits returns a number in [1000, 9999].
func (r *Registry) randomDigits() (int, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r.random, buf[:]); err != nil {
		return 0, fmt.Errorf("generate code: %w", err)
	}
	return 1000 + int(binary.BigEndian.Uint16(buf[:]))%9000, nil
}
