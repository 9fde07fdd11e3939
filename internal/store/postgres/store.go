package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskboard/internal/domain"
)

// psq builds PostgreSQL statements with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar) //nolint:gochecknoglobals // immutable builder

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

type Store struct {
	pool          *pgxpool.Pool
	organizations *OrganizationRepo
	users         *UserRepo
	projects      *ProjectRepo
	tasks         *TaskRepo
	comments      *CommentRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:          pool,
		organizations: NewOrganizationRepo(pool),
		users:         NewUserRepo(pool),
		projects:      NewProjectRepo(pool),
		tasks:         NewTaskRepo(pool),
		comments:      NewCommentRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate applies embedded schema migrations to the store's database.
func (s *Store) Migrate() error {
	return Migrate(s.pool)
}

func (s *Store) Organizations() domain.OrganizationRepository { return s.organizations }
func (s *Store) Users() domain.UserRepository                 { return s.users }
func (s *Store) Projects() domain.ProjectRepository           { return s.projects }
func (s *Store) Tasks() domain.TaskRepository                 { return s.tasks }
func (s *Store) Comments() domain.CommentRepository           { return s.comments }

// mapError translates driver errors into domain sentinels.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, domain.ErrConflict)
		case pgForeignKeyViolation, pgCheckViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, domain.ErrValidation)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// expectOne reports ErrNotFound when a write touched no rows.
func expectOne(op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}
