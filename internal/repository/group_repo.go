package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"testwise-backend/internal/models"
)

type GroupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

func (r *GroupRepo) Create(ctx context.Context, g *models.Group) error {
	g.ID = uuid.New()
	query := `
		INSERT INTO groups (id, name, start_year, end_year, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		g.ID, g.Name, g.StartYear, g.EndYear, g.Description,
	).Scan(&g.CreatedAt)
}

func (r *GroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	g := &models.Group{}
	query := `SELECT id, name, start_year, end_year, description, is_archived, created_at
		FROM groups WHERE id = $1 AND is_archived = FALSE`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.Name, &g.StartYear, &g.EndYear, &g.Description, &g.IsArchived, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GroupRepo) List(ctx context.Context) ([]*models.Group, error) {
	query := `SELECT id, name, start_year, end_year, description, is_archived, created_at
		FROM groups WHERE is_archived = FALSE ORDER BY start_year DESC, name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		g := &models.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.StartYear, &g.EndYear, &g.Description, &g.IsArchived, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *GroupRepo) Update(ctx context.Context, g *models.Group) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE groups SET name = $1, start_year = $2, end_year = $3, description = $4 WHERE id = $5`,
		g.Name, g.StartYear, g.EndYear, g.Description, g.ID,
	)
	return err
}

func (r *GroupRepo) Archive(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE groups SET is_archived = TRUE WHERE id = $1 AND is_archived = FALSE`, id)
	return tag.RowsAffected() > 0, err
}

func (r *GroupRepo) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE groups SET is_archived = FALSE WHERE id = $1 AND is_archived = TRUE`, id)
	return tag.RowsAffected() > 0, err
}

func (r *GroupRepo) DeletePermanently(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1 AND is_archived = TRUE`, id)
	return tag.RowsAffected() > 0, err
}

// Membership

func (r *GroupRepo) AddStudent(ctx context.Context, groupID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO group_students (group_id, user_id, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (group_id, user_id)
		DO UPDATE SET status = 'active', left_at = NULL`,
		groupID, userID,
	)
	return err
}

func (r *GroupRepo) RemoveStudent(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE group_students SET status = 'inactive', left_at = NOW()
		WHERE group_id = $1 AND user_id = $2 AND status = 'active'`,
		groupID, userID,
	)
	return tag.RowsAffected() > 0, err
}

func (r *GroupRepo) ListStudents(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMember, error) {
	query := `
		SELECT gs.group_id, gs.user_id, u.username, u.full_name, gs.status, gs.joined_at, gs.left_at
		FROM group_students gs
		JOIN users u ON u.id = gs.user_id
		WHERE gs.group_id = $1
		ORDER BY gs.joined_at`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.GroupMember
	for rows.Next() {
		m := &models.GroupMember{}
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Username, &m.FullName, &m.Status, &m.JoinedAt, &m.LeftAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *GroupRepo) AddTeacher(ctx context.Context, groupID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO group_teachers (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, user_id) DO NOTHING`,
		groupID, userID,
	)
	return err
}

func (r *GroupRepo) RemoveTeacher(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM group_teachers WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	)
	return tag.RowsAffected() > 0, err
}

func (r *GroupRepo) ListTeachers(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMember, error) {
	query := `
		SELECT gt.group_id, gt.user_id, u.username, u.full_name, gt.joined_at
		FROM group_teachers gt
		JOIN users u ON u.id = gt.user_id
		WHERE gt.group_id = $1
		ORDER BY gt.joined_at`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.GroupMember
	for rows.Next() {
		m := &models.GroupMember{}
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Username, &m.FullName, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
