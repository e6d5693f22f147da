package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"testwise-backend/internal/models"
)

type SubsectionRepo struct {
	pool *pgxpool.Pool
}

func NewSubsectionRepo(pool *pgxpool.Pool) *SubsectionRepo {
	return &SubsectionRepo{pool: pool}
}

const subsectionColumns = `id, section_id, title, content, type, position, is_archived, created_at, updated_at`

func scanSubsection(row interface{ Scan(...any) error }) (*models.Subsection, error) {
	s := &models.Subsection{}
	err := row.Scan(
		&s.ID, &s.SectionID, &s.Title, &s.Content, &s.Type,
		&s.Order, &s.IsArchived, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SubsectionRepo) Create(ctx context.Context, s *models.Subsection) error {
	s.ID = uuid.New()
	if s.Type == "" {
		s.Type = models.SubsectionText
	}
	query := `
		INSERT INTO subsections (id, section_id, title, content, type, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		s.ID, s.SectionID, s.Title, s.Content, s.Type, s.Order,
	).Scan(&s.CreatedAt)
}

func (r *SubsectionRepo) GetSubsection(ctx context.Context, id uuid.UUID) (*models.Subsection, error) {
	query := `SELECT ` + subsectionColumns + ` FROM subsections WHERE id = $1 AND is_archived = FALSE`
	return scanSubsection(r.pool.QueryRow(ctx, query, id))
}

func (r *SubsectionRepo) ListBySection(ctx context.Context, sectionID uuid.UUID) ([]*models.Subsection, error) {
	query := `SELECT ` + subsectionColumns + ` FROM subsections
		WHERE section_id = $1 AND is_archived = FALSE ORDER BY position`

	rows, err := r.pool.Query(ctx, query, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subsections []*models.Subsection
	for rows.Next() {
		s, err := scanSubsection(rows)
		if err != nil {
			return nil, err
		}
		subsections = append(subsections, s)
	}
	return subsections, rows.Err()
}

func (r *SubsectionRepo) CountBySection(ctx context.Context, sectionID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM subsections WHERE section_id = $1 AND is_archived = FALSE`,
		sectionID,
	).Scan(&count)
	return count, err
}

func (r *SubsectionRepo) Update(ctx context.Context, s *models.Subsection) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE subsections SET title = $1, content = $2, type = $3, position = $4, updated_at = NOW() WHERE id = $5`,
		s.Title, s.Content, s.Type, s.Order, s.ID,
	)
	return err
}

// UpdateContent is used by the PDF worker to store the extracted text or the
// stored file path without touching the rest of the row.
func (r *SubsectionRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE subsections SET content = $1, updated_at = NOW() WHERE id = $2`,
		content, id,
	)
	return err
}

func (r *SubsectionRepo) Archive(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE subsections SET is_archived = TRUE WHERE id = $1 AND is_archived = FALSE`, id)
	return tag.RowsAffected() > 0, err
}

func (r *SubsectionRepo) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE subsections SET is_archived = FALSE WHERE id = $1 AND is_archived = TRUE`, id)
	return tag.RowsAffected() > 0, err
}

func (r *SubsectionRepo) DeletePermanently(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subsections WHERE id = $1 AND is_archived = TRUE`, id)
	return tag.RowsAffected() > 0, err
}
