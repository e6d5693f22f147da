package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"testwise-backend/internal/models"
)

type SectionRepo struct {
	pool *pgxpool.Pool
}

func NewSectionRepo(pool *pgxpool.Pool) *SectionRepo {
	return &SectionRepo{pool: pool}
}

const sectionColumns = `id, topic_id, title, description, content, position, is_archived, created_at, updated_at`

func scanSection(row interface{ Scan(...any) error }) (*models.Section, error) {
	s := &models.Section{}
	err := row.Scan(
		&s.ID, &s.TopicID, &s.Title, &s.Description, &s.Content,
		&s.Order, &s.IsArchived, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SectionRepo) Create(ctx context.Context, s *models.Section) error {
	s.ID = uuid.New()
	query := `
		INSERT INTO sections (id, topic_id, title, description, content, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		s.ID, s.TopicID, s.Title, s.Description, s.Content, s.Order,
	).Scan(&s.CreatedAt)
}

func (r *SectionRepo) GetSection(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE id = $1 AND is_archived = FALSE`
	return scanSection(r.pool.QueryRow(ctx, query, id))
}

func (r *SectionRepo) ListByTopic(ctx context.Context, topicID uuid.UUID) ([]*models.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections
		WHERE topic_id = $1 AND is_archived = FALSE ORDER BY position`

	rows, err := r.pool.Query(ctx, query, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []*models.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func (r *SectionRepo) Update(ctx context.Context, s *models.Section) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sections SET title = $1, description = $2, content = $3, position = $4, updated_at = NOW() WHERE id = $5`,
		s.Title, s.Description, s.Content, s.Order, s.ID,
	)
	return err
}

func (r *SectionRepo) Archive(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE sections SET is_archived = TRUE WHERE id = $1 AND is_archived = FALSE`, id)
	return tag.RowsAffected() > 0, err
}

func (r *SectionRepo) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE sections SET is_archived = FALSE WHERE id = $1 AND is_archived = TRUE`, id)
	return tag.RowsAffected() > 0, err
}

func (r *SectionRepo) DeletePermanently(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sections WHERE id = $1 AND is_archived = TRUE`, id)
	return tag.RowsAffected() > 0, err
}
