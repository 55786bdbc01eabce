package postgres

import (
	"context"
	"fmt"
	"strings"

	"betting-assessment-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

const insertQuestionSQL = `INSERT INTO questions
	(question_set_id, position, question, question_image,
	 option_a, option_a_image, option_b, option_b_image,
	 option_c, option_c_image, option_d, option_d_image,
	 correct_answers, multiple_correct)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	RETURNING id`

const selectQuestionsSQL = `SELECT question, question_image,
	option_a, option_a_image, option_b, option_b_image,
	option_c, option_c_image, option_d, option_d_image,
	correct_answers, multiple_correct
	FROM questions WHERE question_set_id=$1 ORDER BY position`

// QuestionStore persists imported question sets in Postgres.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

// ImportQuestionSet inserts every row in one transaction; any failing row
// rolls the whole set back.
func (s *QuestionStore) ImportQuestionSet(ctx context.Context, name string, rows []domain.QuestionRow) (domain.ImportedSet, error) {
	if len(rows) == 0 {
		return domain.ImportedSet{}, domain.ErrNoQuestions
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ImportedSet{}, fmt.Errorf("begin import: %w", err)
	}
	// Rollback is a no-op once Commit succeeded.
	defer func() { _ = tx.Rollback(ctx) }()

	set := domain.ImportedSet{ID: uuid.NewString(), QuestionIDs: make([]int64, 0, len(rows))}
	if _, err := tx.Exec(ctx, `INSERT INTO question_sets (id, name) VALUES ($1, $2)`, set.ID, name); err != nil {
		return domain.ImportedSet{}, fmt.Errorf("insert question set: %w", err)
	}
	for i, r := range rows {
		var id int64
		err := tx.QueryRow(ctx, insertQuestionSQL,
			set.ID, i+1, r.Question, r.QuestionImage,
			r.OptionA, r.OptionAImage, r.OptionB, r.OptionBImage,
			r.OptionC, r.OptionCImage, r.OptionD, r.OptionDImage,
			joinAnswers(r.CorrectAnswers), r.MultipleCorrect,
		).Scan(&id)
		if err != nil {
			return domain.ImportedSet{}, fmt.Errorf("insert question %d: %w", i+1, err)
		}
		set.QuestionIDs = append(set.QuestionIDs, id)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ImportedSet{}, fmt.Errorf("commit import: %w", err)
	}
	return set, nil
}

// LoadQuestionSet returns the rows of a set in upload order.
func (s *QuestionStore) LoadQuestionSet(ctx context.Context, id string) ([]domain.QuestionRow, error) {
	rows, err := s.pool.Query(ctx, selectQuestionsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("load question set: %w", err)
	}
	defer rows.Close()

	var out []domain.QuestionRow
	for rows.Next() {
		var (
			r       domain.QuestionRow
			answers string
		)
		if err := rows.Scan(&r.Question, &r.QuestionImage,
			&r.OptionA, &r.OptionAImage, &r.OptionB, &r.OptionBImage,
			&r.OptionC, &r.OptionCImage, &r.OptionD, &r.OptionDImage,
			&answers, &r.MultipleCorrect); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if r.CorrectAnswers, err = domain.ParseOptionList(answers); err != nil {
			return nil, fmt.Errorf("question set %s: %w", id, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load question set: %w", err)
	}
	if len(out) == 0 {
		return nil, domain.ErrQuestionSetNotFound
	}
	return out, nil
}

// Ping checks database connectivity.
func (s *QuestionStore) Ping(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func joinAnswers(ids []domain.OptionID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
