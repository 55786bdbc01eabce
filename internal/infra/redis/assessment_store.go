package redis

import (
	"context"
	"sync"
	"time"

	"betting-assessment-service/internal/app"
	"betting-assessment-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AssessmentStore is a Redis-aware implementation of app.AssessmentRepository.
// Notes:
//   - The local map stays the system of record; assessments and their
//     sessions never leave the process.
//   - Redis holds code reservations (SETNX code -> assessment ID) so two
//     instances sharing a Redis never hand out the same code.
//   - Reservations are best-effort: when Redis is unreachable the store
//     falls back to local uniqueness only.
type AssessmentStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger

	mu          sync.RWMutex
	codes       map[string]*app.Assessment
	assessments map[string]*app.Assessment
}

type StoreOption func(*AssessmentStore)

// WithLogger reports reservation failures that fall back to local state.
func WithLogger(log *zap.Logger) StoreOption {
	return func(s *AssessmentStore) {
		if log != nil {
			s.log = log
		}
	}
}

func NewAssessmentStore(client *redis.Client, ttl time.Duration, opts ...StoreOption) *AssessmentStore {
	s := &AssessmentStore{
		client:      client,
		ttl:         ttl,
		log:         zap.NewNop(),
		codes:       make(map[string]*app.Assessment),
		assessments: make(map[string]*app.Assessment),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AssessmentStore) Get(code string) (*app.Assessment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.codes[code]
	return a, ok
}

// Put reserves both codes in Redis and indexes a locally. A code already
// reserved by another assessment is a conflict; nothing is kept on failure.
func (s *AssessmentStore) Put(ctx context.Context, a *app.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[a.StudentCode]; ok {
		return domain.ErrCodeConflict
	}
	if _, ok := s.codes[a.TeacherCode]; ok {
		return domain.ErrCodeConflict
	}

	var reserved []string
	for _, code := range []string{a.StudentCode, a.TeacherCode} {
		ok, err := s.client.SetNX(ctx, s.key(code), a.ID, s.ttl).Result()
		if err != nil {
			s.log.Warn("code reservation failed, using local uniqueness only",
				zap.String("code", code), zap.Error(err))
			continue
		}
		if !ok {
			s.release(ctx, reserved)
			return domain.ErrCodeConflict
		}
		reserved = append(reserved, code)
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

func (s *AssessmentStore) release(ctx context.Context, codes []string) {
	if len(codes) == 0 {
		return
	}
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = s.key(code)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn("release code reservations failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *AssessmentStore) key(code string) string {
	return "assessment:code:" + code
}
