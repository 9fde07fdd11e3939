package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskboard/internal/domain"
)

type CommentRepo struct {
	pool *pgxpool.Pool
}

func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

func (r *CommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO comments (task_id, author_id, content) VALUES ($1, $2, $3)
		 RETURNING id, is_edited, created_at, updated_at`,
		c.TaskID, c.AuthorID, c.Content,
	).Scan(&c.ID, &c.IsEdited, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return mapError("commentRepo.Create", err)
	}

	return nil
}

func (r *CommentRepo) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	c, err := scanComment(r.pool.QueryRow(ctx,
		`SELECT id, task_id, author_id, content, is_edited, created_at, updated_at
		 FROM comments WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("commentRepo.GetByID", err)
	}

	return c, nil
}

func (r *CommentRepo) ListByTask(ctx context.Context, taskID int64) ([]*domain.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, task_id, author_id, content, is_edited, created_at, updated_at
		 FROM comments WHERE task_id = $1
		 ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("commentRepo.ListByTask: %w", err)
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("commentRepo.ListByTask: scan: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("commentRepo.ListByTask: rows: %w", err)
	}

	return comments, nil
}

// Update rewrites the content and marks the comment edited.
func (r *CommentRepo) Update(ctx context.Context, c *domain.Comment) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE comments SET content = $1, is_edited = TRUE, updated_at = now()
		 WHERE id = $2
		 RETURNING is_edited, updated_at`,
		c.Content, c.ID,
	).Scan(&c.IsEdited, &c.UpdatedAt)
	if err != nil {
		return mapError("commentRepo.Update", err)
	}

	return nil
}

func (r *CommentRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	return expectOne("commentRepo.Delete", tag, err)
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.IsEdited, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
