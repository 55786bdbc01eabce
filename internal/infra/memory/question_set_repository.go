package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"betting-assessment-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionSetLoader fetches question sets from a backing store (e.g., Postgres).
type QuestionSetLoader interface {
	LoadQuestionSet(ctx context.Context, id string) ([]domain.QuestionRow, error)
}

// QuestionSetRepository caches question sets with TTL to avoid repeated DB hits.
type QuestionSetRepository struct {
	loader QuestionSetLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	rows      []domain.QuestionRow
	expiresAt time.Time
}

func NewQuestionSetRepository(loader QuestionSetLoader, ttl time.Duration) *QuestionSetRepository {
	return &QuestionSetRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

// GetQuestionSet returns a copy of the cached rows, loading them at most once
// per expiry across concurrent callers.
func (r *QuestionSetRepository) GetQuestionSet(ctx context.Context, id string) ([]domain.QuestionRow, error) {
	if rows, ok := r.lookup(id, r.clock()); ok {
		return rows, nil
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		now := r.clock()
		if rows, ok := r.lookup(id, now); ok {
			return rows, nil
		}

		rows, err := r.loader.LoadQuestionSet(ctx, id)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[id] = cachedSet{
			rows:      rows,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return copyRows(rows), nil
	})
	if err != nil {
		return nil, err
	}
	return copyRows(result.([]domain.QuestionRow)), nil
}

func (r *QuestionSetRepository) lookup(id string, now time.Time) ([]domain.QuestionRow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[id]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	return copyRows(entry.rows), true
}

func (r *QuestionSetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionSetLoader is backed by an in-memory map (useful for tests/demos).
type StaticQuestionSetLoader struct {
	sets map[string][]domain.QuestionRow
}

func NewStaticQuestionSetLoader(sets map[string][]domain.QuestionRow) *StaticQuestionSetLoader {
	return &StaticQuestionSetLoader{sets: sets}
}

func (l *StaticQuestionSetLoader) LoadQuestionSet(_ context.Context, id string) ([]domain.QuestionRow, error) {
	if rows, ok := l.sets[id]; ok {
		return copyRows(rows), nil
	}
	return nil, domain.ErrQuestionSetNotFound
}

func copyRows(rows []domain.QuestionRow) []domain.QuestionRow {
	out := make([]domain.QuestionRow, len(rows))
	copy(out, rows)
	return out
}
