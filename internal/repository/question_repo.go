package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"testwise-backend/internal/models"
)

type QuestionRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionRepo(pool *pgxpool.Pool) *QuestionRepo {
	return &QuestionRepo{pool: pool}
}

const questionColumns = `id, section_id, test_id, question, question_type, options, correct_answer, hint, image, is_final, is_archived, created_at, updated_at`

func scanQuestion(row interface{ Scan(...any) error }) (*models.Question, error) {
	q := &models.Question{}
	var options []byte
	err := row.Scan(
		&q.ID, &q.SectionID, &q.TestID, &q.Text, &q.Type, &options,
		&q.CorrectAnswer, &q.Hint, &q.Image, &q.IsFinal, &q.IsArchived,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if options != nil {
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func (r *QuestionRepo) rowsToQuestions(ctx context.Context, query string, args ...any) ([]*models.Question, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []*models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *QuestionRepo) Create(ctx context.Context, q *models.Question) error {
	q.ID = uuid.New()
	options, _ := json.Marshal(q.Options)
	if q.Options == nil {
		options = nil
	}

	query := `
		INSERT INTO questions (id, section_id, test_id, question, question_type, options, correct_answer, hint, image, is_final)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		q.ID, q.SectionID, q.TestID, q.Text, q.Type, options, q.CorrectAnswer, q.Hint, q.Image, q.IsFinal,
	).Scan(&q.CreatedAt)
}

func (r *QuestionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = $1 AND is_archived = FALSE`
	return scanQuestion(r.pool.QueryRow(ctx, query, id))
}

// ListAnswerable returns the test's active questions that actually carry a
// correct answer; questions without one cannot be graded and are skipped
// when an attempt starts.
func (r *QuestionRepo) ListAnswerable(ctx context.Context, testID uuid.UUID) ([]*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions
		WHERE test_id = $1 AND is_archived = FALSE
		  AND correct_answer IS NOT NULL AND correct_answer::text NOT IN ('null', '""', '[]')
		ORDER BY created_at`
	return r.rowsToQuestions(ctx, query, testID)
}

func (r *QuestionRepo) ListBySection(ctx context.Context, sectionID uuid.UUID, isFinal bool) ([]*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions
		WHERE section_id = $1 AND is_final = $2 AND is_archived = FALSE
		ORDER BY created_at`
	return r.rowsToQuestions(ctx, query, sectionID, isFinal)
}

func (r *QuestionRepo) ListFinalByTopic(ctx context.Context, topicID uuid.UUID) ([]*models.Question, error) {
	query := `SELECT q.id, q.section_id, q.test_id, q.question, q.question_type, q.options, q.correct_answer,
			q.hint, q.image, q.is_final, q.is_archived, q.created_at, q.updated_at
		FROM questions q
		JOIN sections s ON s.id = q.section_id
		WHERE s.topic_id = $1 AND q.is_final = TRUE AND q.is_archived = FALSE AND s.is_archived = FALSE
		ORDER BY q.created_at`
	return r.rowsToQuestions(ctx, query, topicID)
}

// CloneForTest copies the given questions under a freshly generated test so
// the generated test owns its question pool independently of the sources.
func (r *QuestionRepo) CloneForTest(ctx context.Context, testID uuid.UUID, questions []*models.Question) error {
	batch := `
		INSERT INTO questions (id, section_id, test_id, question, question_type, options, correct_answer, hint, image, is_final)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, q := range questions {
		options, _ := json.Marshal(q.Options)
		if q.Options == nil {
			options = nil
		}
		_, err := tx.Exec(ctx, batch,
			uuid.New(), q.SectionID, testID, q.Text, q.Type, options, q.CorrectAnswer, q.Hint, q.Image, q.IsFinal,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *QuestionRepo) Update(ctx context.Context, q *models.Question) error {
	options, _ := json.Marshal(q.Options)
	if q.Options == nil {
		options = nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE questions
		SET question = $1, question_type = $2, options = $3, correct_answer = $4,
			hint = $5, image = $6, is_final = $7, updated_at = NOW()
		WHERE id = $8`,
		q.Text, q.Type, options, q.CorrectAnswer, q.Hint, q.Image, q.IsFinal, q.ID,
	)
	return err
}

func (r *QuestionRepo) Archive(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE questions SET is_archived = TRUE WHERE id = $1 AND is_archived = FALSE`, id)
	return tag.RowsAffected() > 0, err
}

func (r *QuestionRepo) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE questions SET is_archived = FALSE WHERE id = $1 AND is_archived = TRUE`, id)
	return tag.RowsAffected() > 0, err
}

func (r *QuestionRepo) DeletePermanently(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1 AND is_archived = TRUE`, id)
	return tag.RowsAffected() > 0, err
}
