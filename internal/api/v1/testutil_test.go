package v1_test

import (
	"context"
	"sync"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/events"
	"github.com/gosuda/taskboard/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Users and context helpers. Inject the authenticated user for DoCtx.
// ---------------------------------------------------------------------------

const testOrgID int64 = 10

func int64Ptr(v int64) *int64 { return &v }

func memberUser() *domain.User {
	return &domain.User{ID: 1, Username: "member", OrganizationID: int64Ptr(testOrgID)}
}

func adminUser() *domain.User {
	return &domain.User{ID: 2, Username: "admin", IsAdmin: true, OrganizationID: int64Ptr(testOrgID)}
}

func ownerUser() *domain.User {
	return &domain.User{ID: 3, Username: "owner", IsAdmin: true, IsSystemOwner: true}
}

func outsiderUser() *domain.User {
	return &domain.User{ID: 4, Username: "outsider", OrganizationID: int64Ptr(99)}
}

func userCtx(u *domain.User) context.Context {
	return middleware.WithUser(context.Background(), u)
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	organizations domain.OrganizationRepository
	users         domain.UserRepository
	projects      domain.ProjectRepository
	tasks         domain.TaskRepository
	comments      domain.CommentRepository
}

func (m *mockDataStore) Organizations() domain.OrganizationRepository { return m.organizations }
func (m *mockDataStore) Users() domain.UserRepository                 { return m.users }
func (m *mockDataStore) Projects() domain.ProjectRepository           { return m.projects }
func (m *mockDataStore) Tasks() domain.TaskRepository                 { return m.tasks }
func (m *mockDataStore) Comments() domain.CommentRepository           { return m.comments }

// ---------------------------------------------------------------------------
// Mock OrganizationRepository
// ---------------------------------------------------------------------------

type mockOrganizationRepo struct {
	createFunc    func(ctx context.Context, o *domain.Organization) error
	getByIDFunc   func(ctx context.Context, id int64) (*domain.Organization, error)
	getBySlugFunc func(ctx context.Context, slug string) (*domain.Organization, error)
	defaultFunc   func(ctx context.Context) (*domain.Organization, error)
	updateFunc    func(ctx context.Context, o *domain.Organization) error
	listFunc      func(ctx context.Context) ([]*domain.Organization, error)
	deleteFunc    func(ctx context.Context, id int64) error
}

func (m *mockOrganizationRepo) Create(ctx context.Context, o *domain.Organization) error {
	return m.createFunc(ctx, o)
}

func (m *mockOrganizationRepo) GetByID(ctx context.Context, id int64) (*domain.Organization, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockOrganizationRepo) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	return m.getBySlugFunc(ctx, slug)
}

func (m *mockOrganizationRepo) GetOrCreateDefault(ctx context.Context) (*domain.Organization, error) {
	return m.defaultFunc(ctx)
}

func (m *mockOrganizationRepo) Update(ctx context.Context, o *domain.Organization) error {
	return m.updateFunc(ctx, o)
}

func (m *mockOrganizationRepo) List(ctx context.Context) ([]*domain.Organization, error) {
	return m.listFunc(ctx)
}

func (m *mockOrganizationRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock UserRepository
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	createFunc        func(ctx context.Context, u *domain.User) error
	getByIDFunc       func(ctx context.Context, id int64) (*domain.User, error)
	getByUsernameFunc func(ctx context.Context, username string) (*domain.User, error)
	updateFunc        func(ctx context.Context, u *domain.User) error
	listFunc          func(ctx context.Context, organizationID int64) ([]*domain.User, error)
	deleteFunc        func(ctx context.Context, id int64) error
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	return m.createFunc(ctx, u)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return m.getByUsernameFunc(ctx, username)
}

func (m *mockUserRepo) Update(ctx context.Context, u *domain.User) error {
	return m.updateFunc(ctx, u)
}

func (m *mockUserRepo) List(ctx context.Context, organizationID int64) ([]*domain.User, error) {
	return m.listFunc(ctx, organizationID)
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock ProjectRepository
// ---------------------------------------------------------------------------

type mockProjectRepo struct {
	createFunc  func(ctx context.Context, p *domain.Project) error
	getByIDFunc func(ctx context.Context, id int64) (*domain.Project, error)
	updateFunc  func(ctx context.Context, p *domain.Project) error
	listFunc    func(ctx context.Context, organizationID int64) ([]*domain.Project, error)
	deleteFunc  func(ctx context.Context, id int64) error
}

func (m *mockProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	return m.createFunc(ctx, p)
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	return m.updateFunc(ctx, p)
}

func (m *mockProjectRepo) List(ctx context.Context, organizationID int64) ([]*domain.Project, error) {
	return m.listFunc(ctx, organizationID)
}

func (m *mockProjectRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

// projectsOf returns a repo whose GetByID serves the given projects.
func projectsOf(list ...*domain.Project) *mockProjectRepo {
	return &mockProjectRepo{
		getByIDFunc: func(_ context.Context, id int64) (*domain.Project, error) {
			for _, p := range list {
				if p.ID == id {
					cp := *p
					return &cp, nil
				}
			}
			return nil, domain.ErrNotFound
		},
	}
}

// ---------------------------------------------------------------------------
// Mock TaskRepository
// ---------------------------------------------------------------------------

type mockTaskRepo struct {
	createFunc  func(ctx context.Context, t *domain.Task) error
	getByIDFunc func(ctx context.Context, id int64) (*domain.Task, error)
	listFunc    func(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)
	updateFunc  func(ctx context.Context, t *domain.Task) error
	deleteFunc  func(ctx context.Context, id int64) error
}

func (m *mockTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	return m.createFunc(ctx, t)
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockTaskRepo) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockTaskRepo) Update(ctx context.Context, t *domain.Task) error {
	return m.updateFunc(ctx, t)
}

func (m *mockTaskRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock CommentRepository
// ---------------------------------------------------------------------------

type mockCommentRepo struct {
	createFunc     func(ctx context.Context, c *domain.Comment) error
	getByIDFunc    func(ctx context.Context, id int64) (*domain.Comment, error)
	listByTaskFunc func(ctx context.Context, taskID int64) ([]*domain.Comment, error)
	updateFunc     func(ctx context.Context, c *domain.Comment) error
	deleteFunc     func(ctx context.Context, id int64) error
}

func (m *mockCommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	return m.createFunc(ctx, c)
}

func (m *mockCommentRepo) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockCommentRepo) ListByTask(ctx context.Context, taskID int64) ([]*domain.Comment, error) {
	return m.listByTaskFunc(ctx, taskID)
}

func (m *mockCommentRepo) Update(ctx context.Context, c *domain.Comment) error {
	return m.updateFunc(ctx, c)
}

func (m *mockCommentRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	signupFunc     func(ctx context.Context, nu auth.NewUser) (*domain.User, auth.Tokens, error)
	loginFunc      func(ctx context.Context, username, password string) (*domain.User, auth.Tokens, error)
	refreshFunc    func(ctx context.Context, refreshToken string) (string, error)
	logoutFunc     func(ctx context.Context, refreshToken string) error
	createUserFunc func(ctx context.Context, nu auth.NewUser) (*domain.User, error)
}

func (m *mockAuthService) Signup(ctx context.Context, nu auth.NewUser) (*domain.User, auth.Tokens, error) {
	return m.signupFunc(ctx, nu)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*domain.User, auth.Tokens, error) {
	return m.loginFunc(ctx, username, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshFunc(ctx, refreshToken)
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.logoutFunc(ctx, refreshToken)
}

func (m *mockAuthService) CreateUser(ctx context.Context, nu auth.NewUser) (*domain.User, error) {
	return m.createUserFunc(ctx, nu)
}

// ---------------------------------------------------------------------------
// Recording EventPublisher
// ---------------------------------------------------------------------------

type published struct {
	channel string // "org" or "project"
	id      int64
	event   events.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishOrganization(_ context.Context, organizationID int64, ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{channel: "org", id: organizationID, event: ev})
}

func (p *recordingPublisher) PublishProject(_ context.Context, projectID int64, ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{channel: "project", id: projectID, event: ev})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}
