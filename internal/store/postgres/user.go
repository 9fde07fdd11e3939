package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskboard/internal/domain"
)

var userColumns = []string{ //nolint:gochecknoglobals // column list
	"id", "username", "email", "first_name", "last_name", "password_hash",
	"is_admin", "is_system_owner", "organization_id", "created_at", "updated_at",
}

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, first_name, last_name, password_hash,
		                    is_admin, is_system_owner, organization_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash,
		u.IsAdmin, u.IsSystemOwner, u.OrganizationID,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapError("userRepo.Create", err)
	}

	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, "userRepo.GetByID", sq.Eq{"id": id})
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "userRepo.GetByUsername", sq.Eq{"username": username})
}

func (r *UserRepo) getOne(ctx context.Context, op string, where sq.Eq) (*domain.User, error) {
	query, args, err := psq.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build: %w", op, err)
	}

	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(op, err)
	}

	return u, nil
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET username = $1, email = $2, first_name = $3, last_name = $4,
		        password_hash = $5, is_admin = $6, is_system_owner = $7,
		        organization_id = $8, updated_at = now()
		 WHERE id = $9
		 RETURNING updated_at`,
		u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash,
		u.IsAdmin, u.IsSystemOwner, u.OrganizationID, u.ID,
	).Scan(&u.UpdatedAt)
	if err != nil {
		return mapError("userRepo.Update", err)
	}

	return nil
}

func (r *UserRepo) List(ctx context.Context, organizationID int64) ([]*domain.User, error) {
	query, args, err := userListQuery(organizationID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("userRepo.List: build: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("userRepo.List: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("userRepo.List: scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userRepo.List: rows: %w", err)
	}

	return users, nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return expectOne("userRepo.Delete", tag, err)
}

func userListQuery(organizationID int64) sq.SelectBuilder {
	qb := psq.Select(userColumns...).From("users").OrderBy("username")
	if organizationID != 0 {
		qb = qb.Where(sq.Eq{"organization_id": organizationID})
	}
	return qb
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.IsAdmin, &u.IsSystemOwner, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
