package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"testwise-backend/internal/models"
)

type ProgressRepo struct {
	pool *pgxpool.Pool
}

func NewProgressRepo(pool *pgxpool.Pool) *ProgressRepo {
	return &ProgressRepo{pool: pool}
}

// EnsureTopicProgress lazily creates the row on first access. The insert is
// ON CONFLICT DO NOTHING so concurrent first reads cannot create duplicates.
func (r *ProgressRepo) EnsureTopicProgress(ctx context.Context, userID, topicID uuid.UUID) (*models.TopicProgress, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO topic_progress (user_id, topic_id, status)
		VALUES ($1, $2, 'started')
		ON CONFLICT (user_id, topic_id) DO NOTHING`,
		userID, topicID,
	)
	if err != nil {
		return nil, err
	}

	p := &models.TopicProgress{}
	err = r.pool.QueryRow(ctx, `
		SELECT id, user_id, topic_id, status, completion_percentage, last_accessed, created_at
		FROM topic_progress WHERE user_id = $1 AND topic_id = $2`,
		userID, topicID,
	).Scan(&p.ID, &p.UserID, &p.TopicID, &p.Status, &p.CompletionPercentage, &p.LastAccessed, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProgressRepo) EnsureSectionProgress(ctx context.Context, userID, sectionID uuid.UUID) (*models.SectionProgress, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO section_progress (user_id, section_id, status)
		VALUES ($1, $2, 'started')
		ON CONFLICT (user_id, section_id) DO NOTHING`,
		userID, sectionID,
	)
	if err != nil {
		return nil, err
	}

	p := &models.SectionProgress{}
	err = r.pool.QueryRow(ctx, `
		SELECT id, user_id, section_id, status, completion_percentage, last_accessed, created_at
		FROM section_progress WHERE user_id = $1 AND section_id = $2`,
		userID, sectionID,
	).Scan(&p.ID, &p.UserID, &p.SectionID, &p.Status, &p.CompletionPercentage, &p.LastAccessed, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProgressRepo) EnsureSubsectionProgress(ctx context.Context, userID, subsectionID uuid.UUID) (*models.SubsectionProgress, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subsection_progress (user_id, subsection_id, is_viewed)
		VALUES ($1, $2, FALSE)
		ON CONFLICT (user_id, subsection_id) DO NOTHING`,
		userID, subsectionID,
	)
	if err != nil {
		return nil, err
	}

	p := &models.SubsectionProgress{}
	err = r.pool.QueryRow(ctx, `
		SELECT id, user_id, subsection_id, is_viewed, viewed_at, created_at
		FROM subsection_progress WHERE user_id = $1 AND subsection_id = $2`,
		userID, subsectionID,
	).Scan(&p.ID, &p.UserID, &p.SubsectionID, &p.IsViewed, &p.ViewedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProgressRepo) SaveSectionProgress(ctx context.Context, userID, sectionID uuid.UUID, percentage float64, status models.ProgressStatus) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO section_progress (user_id, section_id, status, completion_percentage, last_accessed)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, section_id)
		DO UPDATE SET status = $3, completion_percentage = $4, last_accessed = NOW()`,
		userID, sectionID, status, percentage,
	)
	return err
}

func (r *ProgressRepo) SaveTopicProgress(ctx context.Context, userID, topicID uuid.UUID, percentage float64, status models.ProgressStatus) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO topic_progress (user_id, topic_id, status, completion_percentage, last_accessed)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, topic_id)
		DO UPDATE SET status = $3, completion_percentage = $4, last_accessed = NOW()`,
		userID, topicID, status, percentage,
	)
	return err
}

// MarkSubsectionViewed flips the viewed flag once. The false return is the
// idempotent "already viewed" no-op.
func (r *ProgressRepo) MarkSubsectionViewed(ctx context.Context, userID, subsectionID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO subsection_progress (user_id, subsection_id, is_viewed, viewed_at)
		VALUES ($1, $2, TRUE, NOW())
		ON CONFLICT (user_id, subsection_id)
		DO UPDATE SET is_viewed = TRUE, viewed_at = NOW()
		WHERE subsection_progress.is_viewed = FALSE`,
		userID, subsectionID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ProgressRepo) CountViewed(ctx context.Context, userID, sectionID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM subsection_progress sp
		JOIN subsections s ON s.id = sp.subsection_id
		WHERE sp.user_id = $1 AND s.section_id = $2 AND sp.is_viewed = TRUE AND s.is_archived = FALSE`,
		userID, sectionID,
	).Scan(&count)
	return count, err
}

// SectionPercentages returns completion percentages for the user's existing
// progress rows among the given sections. Sections without a row are simply
// absent from the map.
func (r *ProgressRepo) SectionPercentages(ctx context.Context, userID uuid.UUID, sectionIDs []uuid.UUID) (map[uuid.UUID]float64, error) {
	result := make(map[uuid.UUID]float64, len(sectionIDs))
	if len(sectionIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT section_id, completion_percentage
		FROM section_progress
		WHERE user_id = $1 AND section_id = ANY($2)`,
		userID, sectionIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var pct float64
		if err := rows.Scan(&id, &pct); err != nil {
			return nil, err
		}
		result[id] = pct
	}
	return result, rows.Err()
}

// Listings for the progress API

func (r *ProgressRepo) ListTopicProgress(ctx context.Context, userID *uuid.UUID) ([]*models.TopicProgress, error) {
	query := `SELECT id, user_id, topic_id, status, completion_percentage, last_accessed, created_at FROM topic_progress`
	args := []any{}
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY last_accessed DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.TopicProgress
	for rows.Next() {
		p := &models.TopicProgress{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.TopicID, &p.Status, &p.CompletionPercentage, &p.LastAccessed, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ProgressRepo) ListSectionProgress(ctx context.Context, userID *uuid.UUID) ([]*models.SectionProgress, error) {
	query := `SELECT id, user_id, section_id, status, completion_percentage, last_accessed, created_at FROM section_progress`
	args := []any{}
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY last_accessed DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.SectionProgress
	for rows.Next() {
		p := &models.SectionProgress{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.SectionID, &p.Status, &p.CompletionPercentage, &p.LastAccessed, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ProgressRepo) ListSubsectionProgress(ctx context.Context, userID *uuid.UUID) ([]*models.SubsectionProgress, error) {
	query := `SELECT id, user_id, subsection_id, is_viewed, viewed_at, created_at FROM subsection_progress`
	args := []any{}
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY viewed_at DESC NULLS LAST`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.SubsectionProgress
	for rows.Next() {
		p := &models.SubsectionProgress{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.SubsectionID, &p.IsViewed, &p.ViewedAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
