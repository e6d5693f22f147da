package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"testwise-backend/internal/models"
)

type TopicRepo struct {
	pool *pgxpool.Pool
}

func NewTopicRepo(pool *pgxpool.Pool) *TopicRepo {
	return &TopicRepo{pool: pool}
}

func (r *TopicRepo) Create(ctx context.Context, t *models.Topic) error {
	t.ID = uuid.New()
	query := `
		INSERT INTO topics (id, title, description, category, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		t.ID, t.Title, t.Description, t.Category, t.Image,
	).Scan(&t.CreatedAt)
}

func (r *TopicRepo) GetTopic(ctx context.Context, id uuid.UUID) (*models.Topic, error) {
	t := &models.Topic{}
	query := `SELECT id, title, description, category, image, is_archived, created_at, updated_at
		FROM topics WHERE id = $1 AND is_archived = FALSE`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.Description, &t.Category, &t.Image, &t.IsArchived, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TopicRepo) List(ctx context.Context, category *string) ([]*models.Topic, error) {
	query := `SELECT id, title, description, category, image, is_archived, created_at, updated_at
		FROM topics WHERE is_archived = FALSE`
	args := []any{}
	if category != nil {
		query += ` AND category = $1`
		args = append(args, *category)
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []*models.Topic
	for rows.Next() {
		t := &models.Topic{}
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.Image, &t.IsArchived, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (r *TopicRepo) Update(ctx context.Context, t *models.Topic) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE topics SET title = $1, description = $2, category = $3, image = $4, updated_at = NOW() WHERE id = $5`,
		t.Title, t.Description, t.Category, t.Image, t.ID,
	)
	return err
}

func (r *TopicRepo) Archive(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE topics SET is_archived = TRUE WHERE id = $1 AND is_archived = FALSE`, id)
	return tag.RowsAffected() > 0, err
}

func (r *TopicRepo) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE topics SET is_archived = FALSE WHERE id = $1 AND is_archived = TRUE`, id)
	return tag.RowsAffected() > 0, err
}

func (r *TopicRepo) DeletePermanently(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM topics WHERE id = $1 AND is_archived = TRUE`, id)
	return tag.RowsAffected() > 0, err
}

// SectionIDs returns the ids of the topic's non-archived sections in order.
func (r *TopicRepo) SectionIDs(ctx context.Context, topicID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM sections WHERE topic_id = $1 AND is_archived = FALSE ORDER BY position`,
		topicID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
