package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/duel-tournament/models"
	"github.com/lib/pq"
)

var ErrQuestionNotFound = errors.New("question not found")

// QuestionRepository - упорядоченный пул вопросов для дуэлей.
type QuestionRepository interface {
	List(ctx context.Context) ([]*models.Question, error)
	GetByID(ctx context.Context, id string) (*models.Question, error)
	Upsert(ctx context.Context, questions []*models.Question) error
}

type postgresQuestionRepository struct {
	db *sql.DB
}

func NewPostgresQuestionRepository(db *sql.DB) QuestionRepository {
	return &postgresQuestionRepository{db: db}
}

type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsertQuestion(ctx context.Context, exec sqlExecutor, q *models.Question) error {
	query := `
		INSERT INTO questions (id, prompt, expected_answer, time_limit_seconds, tags)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}
	if _, err := exec.ExecContext(ctx, query, q.ID, q.Prompt, q.ExpectedAnswer, q.TimeLimitSeconds, pq.Array(tags)); err != nil {
		return fmt.Errorf("failed to store question %s: %w", q.ID, err)
	}
	return nil
}

func (r *postgresQuestionRepository) List(ctx context.Context) ([]*models.Question, error) {
	query := `
		SELECT id, prompt, expected_answer, time_limit_seconds, tags
		FROM questions
		ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]*models.Question, 0)
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Prompt, &q.ExpectedAnswer, &q.TimeLimitSeconds, pq.Array(&q.Tags)); err != nil {
			return nil, err
		}
		questions = append(questions, &q)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *postgresQuestionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	query := `
		SELECT id, prompt, expected_answer, time_limit_seconds, tags
		FROM questions
		WHERE id = $1`

	var q models.Question
	err := r.db.QueryRowContext(ctx, query, id).Scan(&q.ID, &q.Prompt, &q.ExpectedAnswer, &q.TimeLimitSeconds, pq.Array(&q.Tags))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *postgresQuestionRepository) Upsert(ctx context.Context, questions []*models.Question) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, q := range questions {
		if err := upsertQuestion(ctx, tx, q); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
