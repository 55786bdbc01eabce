package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"betting-assessment-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionSetLoader fetches question sets from a backing store (e.g., Postgres).
type QuestionSetLoader interface {
	LoadQuestionSet(ctx context.Context, id string) ([]domain.QuestionRow, error)
}

// QuestionSetRepository caches question sets in Redis as JSON and falls back to a loader on cache miss.
// Rows are stored as: SET question_set:{id} [{...row...}]
type QuestionSetRepository struct {
	client *redis.Client
	loader QuestionSetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuestionSetRepository(client *redis.Client, loader QuestionSetLoader, ttl time.Duration) *QuestionSetRepository {
	return &QuestionSetRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionSetRepository) GetQuestionSet(ctx context.Context, id string) ([]domain.QuestionRow, error) {
	if rows, ok := r.cached(ctx, id); ok {
		return rows, nil
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if rows, ok := r.cached(ctx, id); ok {
			return rows, nil
		}

		rows, err := r.loader.LoadQuestionSet(ctx, id)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(rows)
		if err != nil {
			return nil, fmt.Errorf("encode question set %s: %w", id, err)
		}
		_ = r.client.Set(ctx, r.key(id), payload, r.ttlWithJitter()).Err()
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	rows := result.([]domain.QuestionRow)
	out := make([]domain.QuestionRow, len(rows))
	copy(out, rows)
	return out, nil
}

// cached treats any Redis or decoding failure as a miss.
func (r *QuestionSetRepository) cached(ctx context.Context, id string) ([]domain.QuestionRow, bool) {
	payload, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []domain.QuestionRow
	if err := json.Unmarshal(payload, &rows); err != nil || len(rows) == 0 {
		return nil, false
	}
	return rows, true
}

func (r *QuestionSetRepository) key(id string) string {
	return "question_set:" + id
}

func (r *QuestionSetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
