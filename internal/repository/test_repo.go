package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"testwise-backend/internal/models"
)

type TestRepo struct {
	pool *pgxpool.Pool
}

func NewTestRepo(pool *pgxpool.Pool) *TestRepo {
	return &TestRepo{pool: pool}
}

const testColumns = `id, section_id, topic_id, title, type, duration, max_attempts, is_archived, created_at, updated_at`

func scanTest(row interface{ Scan(...any) error }) (*models.Test, error) {
	t := &models.Test{}
	err := row.Scan(
		&t.ID, &t.SectionID, &t.TopicID, &t.Title, &t.Type,
		&t.Duration, &t.MaxAttempts, &t.IsArchived, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TestRepo) CreateTest(ctx context.Context, t *models.Test) error {
	t.ID = uuid.New()
	query := `
		INSERT INTO tests (id, section_id, topic_id, title, type, duration, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		t.ID, t.SectionID, t.TopicID, t.Title, t.Type, t.Duration, t.MaxAttempts,
	).Scan(&t.CreatedAt)
}

func (r *TestRepo) GetTest(ctx context.Context, id uuid.UUID) (*models.Test, error) {
	query := `SELECT ` + testColumns + ` FROM tests WHERE id = $1 AND is_archived = FALSE`
	return scanTest(r.pool.QueryRow(ctx, query, id))
}

// List filters by exactly one of sectionID / topicID.
func (r *TestRepo) List(ctx context.Context, sectionID, topicID *uuid.UUID) ([]*models.Test, error) {
	query := `SELECT ` + testColumns + ` FROM tests WHERE is_archived = FALSE`
	args := []any{}
	if sectionID != nil {
		query += ` AND section_id = $1`
		args = append(args, *sectionID)
	} else if topicID != nil {
		query += ` AND topic_id = $1`
		args = append(args, *topicID)
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []*models.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// ListSectionFinals returns the section's active SECTION_FINAL tests, the
// ones that gate the section's completion percentage.
func (r *TestRepo) ListSectionFinals(ctx context.Context, sectionID uuid.UUID) ([]*models.Test, error) {
	query := `SELECT ` + testColumns + ` FROM tests
		WHERE section_id = $1 AND type = $2 AND is_archived = FALSE`

	rows, err := r.pool.Query(ctx, query, sectionID, models.TestSectionFinal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []*models.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

func (r *TestRepo) Update(ctx context.Context, t *models.Test) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET title = $1, duration = $2, max_attempts = $3, updated_at = NOW() WHERE id = $4`,
		t.Title, t.Duration, t.MaxAttempts, t.ID,
	)
	return err
}

func (r *TestRepo) Archive(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE tests SET is_archived = TRUE WHERE id = $1 AND is_archived = FALSE`, id)
	return tag.RowsAffected() > 0, err
}

func (r *TestRepo) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE tests SET is_archived = FALSE WHERE id = $1 AND is_archived = TRUE`, id)
	return tag.RowsAffected() > 0, err
}

func (r *TestRepo) DeletePermanently(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1 AND is_archived = TRUE`, id)
	return tag.RowsAffected() > 0, err
}

// Attempts

const attemptColumns = `id, user_id, test_id, attempt_number, status, score, time_spent, answers, randomized_config, started_at, completed_at`

func scanAttempt(row interface{ Scan(...any) error }) (*models.TestAttempt, error) {
	a := &models.TestAttempt{}
	var config []byte
	err := row.Scan(
		&a.ID, &a.UserID, &a.TestID, &a.AttemptNumber, &a.Status,
		&a.Score, &a.TimeSpent, &a.Answers, &config, &a.StartedAt, &a.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if config != nil {
		a.RandomizedConfig = &models.RandomizedConfig{}
		if err := json.Unmarshal(config, a.RandomizedConfig); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (r *TestRepo) CreateAttempt(ctx context.Context, a *models.TestAttempt) error {
	a.ID = uuid.New()
	a.Status = models.AttemptInProgress
	a.StartedAt = time.Now()

	var config []byte
	if a.RandomizedConfig != nil {
		var err error
		config, err = json.Marshal(a.RandomizedConfig)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO test_attempts (id, user_id, test_id, attempt_number, status, randomized_config, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.UserID, a.TestID, a.AttemptNumber, a.Status, config, a.StartedAt,
	)
	return err
}

func (r *TestRepo) GetAttempt(ctx context.Context, id uuid.UUID) (*models.TestAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM test_attempts WHERE id = $1`
	return scanAttempt(r.pool.QueryRow(ctx, query, id))
}

func (r *TestRepo) CountAttempts(ctx context.Context, userID, testID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM test_attempts WHERE user_id = $1 AND test_id = $2`,
		userID, testID,
	).Scan(&count)
	return count, err
}

func (r *TestRepo) CountCompletedAttempts(ctx context.Context, userID, testID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM test_attempts WHERE user_id = $1 AND test_id = $2 AND completed_at IS NOT NULL`,
		userID, testID,
	).Scan(&count)
	return count, err
}

// ActiveAttempt returns the user's in-progress attempt for the test, or nil
// when there is none.
func (r *TestRepo) ActiveAttempt(ctx context.Context, userID, testID uuid.UUID) (*models.TestAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM test_attempts
		WHERE user_id = $1 AND test_id = $2 AND completed_at IS NULL
		ORDER BY started_at DESC LIMIT 1`

	a, err := scanAttempt(r.pool.QueryRow(ctx, query, userID, testID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// BestCompletedScore returns the user's highest score across completed
// attempts on any of the given tests; nil when no completed attempt exists.
func (r *TestRepo) BestCompletedScore(ctx context.Context, userID uuid.UUID, testIDs []uuid.UUID) (*float64, error) {
	if len(testIDs) == 0 {
		return nil, nil
	}
	var best *float64
	err := r.pool.QueryRow(ctx, `
		SELECT MAX(score) FROM test_attempts
		WHERE user_id = $1 AND test_id = ANY($2) AND completed_at IS NOT NULL AND score IS NOT NULL`,
		userID, testIDs,
	).Scan(&best)
	return best, err
}

// ExpireAttempt closes a stale in-progress attempt without a score.
func (r *TestRepo) ExpireAttempt(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE test_attempts SET status = 'completed', completed_at = NOW()
		WHERE id = $1 AND completed_at IS NULL`,
		id,
	)
	return err
}

// CompleteAttempt finalizes an attempt in a single conditional update. A
// false return means the attempt was already completed, which removes the
// read-then-write race between concurrent submissions.
func (r *TestRepo) CompleteAttempt(ctx context.Context, id uuid.UUID, score float64, timeSpent int, answers []byte) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE test_attempts
		SET status = 'completed', score = $1, time_spent = $2, answers = $3, completed_at = NOW()
		WHERE id = $4 AND completed_at IS NULL`,
		score, timeSpent, answers, id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TestRepo) ListAttempts(ctx context.Context, userID *uuid.UUID, testID *uuid.UUID) ([]*models.TestAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM test_attempts WHERE 1=1`
	args := []any{}
	if userID != nil {
		args = append(args, *userID)
		query += ` AND user_id = $1`
	}
	if testID != nil {
		args = append(args, *testID)
		if len(args) == 1 {
			query += ` AND test_id = $1`
		} else {
			query += ` AND test_id = $2`
		}
	}
	query += ` ORDER BY started_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.TestAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
