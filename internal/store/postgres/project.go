package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskboard/internal/domain"
)

var projectColumns = []string{ //nolint:gochecknoglobals // column list
	"id", "organization_id", "owner_id", "title", "description", "created_at", "updated_at",
}

type ProjectRepo struct {
	pool *pgxpool.Pool
}

func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO projects (organization_id, owner_id, title, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		p.OrganizationID, p.OwnerID, p.Title, p.Description,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return mapError("projectRepo.Create", err)
	}

	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	query, args, err := psq.Select(projectColumns...).From("projects").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("projectRepo.GetByID: build: %w", err)
	}

	p, err := scanProject(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError("projectRepo.GetByID", err)
	}

	return p, nil
}

func (r *ProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE projects SET title = $1, description = $2, updated_at = now()
		 WHERE id = $3
		 RETURNING updated_at`,
		p.Title, p.Description, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return mapError("projectRepo.Update", err)
	}

	return nil
}

func (r *ProjectRepo) List(ctx context.Context, organizationID int64) ([]*domain.Project, error) {
	query, args, err := projectListQuery(organizationID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("projectRepo.List: build: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("projectRepo.List: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("projectRepo.List: scan: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("projectRepo.List: rows: %w", err)
	}

	return projects, nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return expectOne("projectRepo.Delete", tag, err)
}

func projectListQuery(organizationID int64) sq.SelectBuilder {
	qb := psq.Select(projectColumns...).From("projects").OrderBy("created_at DESC", "id DESC")
	if organizationID != 0 {
		qb = qb.Where(sq.Eq{"organization_id": organizationID})
	}
	return qb
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.OrganizationID, &p.OwnerID, &p.Title, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
