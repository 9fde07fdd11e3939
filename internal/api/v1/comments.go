package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/events"
)

type CommentBody struct {
	Content string `json:"content" minLength:"1" maxLength:"10000" doc:"Comment text"`
}

type CreateCommentInput struct {
	ID   int64 `path:"id" doc:"Task ID"`
	Body CommentBody
}

type UpdateCommentInput struct {
	ID   int64 `path:"id" doc:"Comment ID"`
	Body CommentBody
}

type CommentIDInput struct {
	ID int64 `path:"id" doc:"Comment ID"`
}

type CommentOutput struct {
	Body *domain.Comment
}

type ListCommentsOutput struct {
	Body []*domain.Comment
}

func RegisterCommentRoutes(api huma.API, store DataStore, pub EventPublisher) {
	huma.Register(api, huma.Operation{
		OperationID: "list-comments",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/comments",
		Summary:     "List comments on a task",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *TaskIDInput) (*ListCommentsOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		t, err := loadTask(ctx, store, u, input.ID)
		if err != nil {
			return nil, err
		}

		comments, err := store.Comments().ListByTask(ctx, t.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list comments", err)
		}
		if comments == nil {
			comments = []*domain.Comment{}
		}
		return &ListCommentsOutput{Body: comments}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-comment",
		Method:        http.MethodPost,
		Path:          "/tasks/{id}/comments",
		Summary:       "Comment on a task",
		Tags:          []string{"Comments"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateCommentInput) (*CommentOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		t, err := loadTask(ctx, store, u, input.ID)
		if err != nil {
			return nil, err
		}

		c := &domain.Comment{
			TaskID:   t.ID,
			AuthorID: u.ID,
			Content:  strings.TrimSpace(input.Body.Content),
		}
		if err := store.Comments().Create(ctx, c); err != nil {
			return nil, storeError(err, "comment")
		}

		pub.PublishProject(ctx, t.ProjectID, events.CommentCreated{Comment: *c, ProjectID: t.ProjectID})
		return &CommentOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-comment",
		Method:      http.MethodPatch,
		Path:        "/comments/{id}",
		Summary:     "Edit a comment (author only)",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *UpdateCommentInput) (*CommentOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		c, _, err := loadComment(ctx, store, u, input.ID)
		if err != nil {
			return nil, err
		}
		if c.AuthorID != u.ID {
			return nil, huma.Error403Forbidden("only the author can edit this comment")
		}

		c.Content = strings.TrimSpace(input.Body.Content)
		if err := store.Comments().Update(ctx, c); err != nil {
			return nil, storeError(err, "comment")
		}
		return &CommentOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-comment",
		Method:        http.MethodDelete,
		Path:          "/comments/{id}",
		Summary:       "Delete a comment (author or admin)",
		Tags:          []string{"Comments"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *CommentIDInput) (*struct{}, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		c, t, err := loadComment(ctx, store, u, input.ID)
		if err != nil {
			return nil, err
		}
		if c.AuthorID != u.ID && !u.CanManageOrganization(t.OrganizationID) {
			return nil, huma.Error403Forbidden("only the author or an admin can delete this comment")
		}

		if err := store.Comments().Delete(ctx, c.ID); err != nil {
			return nil, storeError(err, "comment")
		}
		return nil, nil
	})
}

// loadComment fetches a comment together with its task, enforcing task
// visibility.
func loadComment(ctx context.Context, store DataStore, u *domain.User, id int64) (*domain.Comment, *domain.Task, error) {
	c, err := store.Comments().GetByID(ctx, id)
	if err != nil {
		return nil, nil, storeError(err, "comment")
	}
	t, err := store.Tasks().GetByID(ctx, c.TaskID)
	if err != nil {
		return nil, nil, storeError(err, "comment")
	}
	if !u.CanAccessOrganization(t.OrganizationID) {
		return nil, nil, huma.Error404NotFound("comment not found")
	}
	return c, t, nil
}
