package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskboard/internal/domain"
)

const defaultOrganizationSlug = "default"

type OrganizationRepo struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepo(pool *pgxpool.Pool) *OrganizationRepo {
	return &OrganizationRepo{pool: pool}
}

func (r *OrganizationRepo) Create(ctx context.Context, o *domain.Organization) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO organizations (name, slug) VALUES ($1, $2)
		 RETURNING id, created_at`,
		o.Name, o.Slug,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return mapError("organizationRepo.Create", err)
	}

	return nil
}

func (r *OrganizationRepo) GetByID(ctx context.Context, id int64) (*domain.Organization, error) {
	o, err := scanOrganization(r.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM organizations WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("organizationRepo.GetByID", err)
	}

	return o, nil
}

func (r *OrganizationRepo) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	o, err := scanOrganization(r.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM organizations WHERE slug = $1`, slug))
	if err != nil {
		return nil, mapError("organizationRepo.GetBySlug", err)
	}

	return o, nil
}

// GetOrCreateDefault upserts the default organization so concurrent signups
// agree on one row.
func (r *OrganizationRepo) GetOrCreateDefault(ctx context.Context) (*domain.Organization, error) {
	o, err := scanOrganization(r.pool.QueryRow(ctx,
		`INSERT INTO organizations (name, slug) VALUES ($1, $2)
		 ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		 RETURNING id, name, slug, created_at`,
		domain.DefaultOrganizationName, defaultOrganizationSlug,
	))
	if err != nil {
		return nil, mapError("organizationRepo.GetOrCreateDefault", err)
	}

	return o, nil
}

func (r *OrganizationRepo) Update(ctx context.Context, o *domain.Organization) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE organizations SET name = $1, slug = $2 WHERE id = $3`,
		o.Name, o.Slug, o.ID,
	)
	return expectOne("organizationRepo.Update", tag, err)
}

func (r *OrganizationRepo) List(ctx context.Context) ([]*domain.Organization, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, slug, created_at FROM organizations ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("organizationRepo.List: %w", err)
	}
	defer rows.Close()

	var orgs []*domain.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("organizationRepo.List: scan: %w", err)
		}
		orgs = append(orgs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("organizationRepo.List: rows: %w", err)
	}

	return orgs, nil
}

func (r *OrganizationRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	return expectOne("organizationRepo.Delete", tag, err)
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	var o domain.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}
