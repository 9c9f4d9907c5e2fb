// AngelaMos | 2026
// service_test.go

package user_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/user"
)

type memoryRepo struct {
	mu    sync.Mutex
	users map[string]user.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[string]user.User{}}
}

func (m *memoryRepo) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return core.ErrDuplicateKey
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (m *memoryRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memoryRepo) UpdateRole(_ context.Context, id, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.Role = role
	m.users[id] = u
	return nil
}

func (m *memoryRepo) List(_ context.Context, params user.ListUsersParams) ([]user.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.User
	for _, u := range m.users {
		if params.Role != "" && u.Role != params.Role {
			continue
		}
		if params.ConvertedOnly && !u.IsConvertedStudent() {
			continue
		}
		if params.Search != "" && !strings.Contains(u.Email, params.Search) {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memoryRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

type studentEmails map[string]bool

func (s studentEmails) EmailRegistered(_ context.Context, email string) (bool, error) {
	return s[email], nil
}

type UserServiceSuite struct {
	suite.Suite
	repo *memoryRepo
	svc  *user.Service
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.repo = newMemoryRepo()
	s.svc = user.NewService(s.repo, studentEmails{"taken@campus.edu": true}, nil)
}

func (s *UserServiceSuite) TestSignUpNormalizesEmail() {
	u, err := s.svc.SignUp(context.Background(), user.CreateUserRequest{
		Email:    "  Reader@Example.COM ",
		Password: "correct horse",
		Name:     " Reader ",
	})
	s.Require().NoError(err)

	s.Equal("reader@example.com", u.Email)
	s.Equal("Reader", u.Name)
	s.Equal(user.RoleUser, u.Role)
	s.NotEqual("correct horse", u.PasswordHash)

	ok, err := core.VerifyPassword("correct horse", u.PasswordHash)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *UserServiceSuite) TestSignUpRejectsStudentEmail() {
	_, err := s.svc.SignUp(context.Background(), user.CreateUserRequest{
		Email:    "Taken@campus.edu",
		Password: "correct horse",
		Name:     "Student",
	})
	s.ErrorIs(err, core.ErrDuplicateKey)
	s.Empty(s.repo.users)
}

func (s *UserServiceSuite) TestSignUpRejectsExistingAccount() {
	req := user.CreateUserRequest{Email: "a@example.com", Password: "correct horse", Name: "A"}
	_, err := s.svc.SignUp(context.Background(), req)
	s.Require().NoError(err)

	_, err = s.svc.SignUp(context.Background(), req)
	s.ErrorIs(err, core.ErrDuplicateKey)
}

func (s *UserServiceSuite) TestEnsureAdminCreatesOnce() {
	ctx := context.Background()
	s.Require().NoError(s.svc.EnsureAdmin(ctx, "Admin@Shelf.io", "longenough", ""))
	s.Require().NoError(s.svc.EnsureAdmin(ctx, "admin@shelf.io", "different-password", "Other"))

	s.Len(s.repo.users, 1)
	admin, err := s.repo.GetByEmail(ctx, "admin@shelf.io")
	s.Require().NoError(err)
	s.True(admin.IsAdmin())
	s.Equal("Administrator", admin.Name)

	ok, err := core.VerifyPassword("longenough", admin.PasswordHash)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *UserServiceSuite) TestEnsureAdminPromotesExistingUser() {
	ctx := context.Background()
	u, err := s.svc.SignUp(ctx, user.CreateUserRequest{
		Email: "ops@shelf.io", Password: "correct horse", Name: "Ops",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.EnsureAdmin(ctx, "ops@shelf.io", "", ""))

	got, err := s.repo.GetByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(user.RoleAdmin, got.Role)
}

func (s *UserServiceSuite) TestEnsureAdminRejectsShortPassword() {
	err := s.svc.EnsureAdmin(context.Background(), "admin@shelf.io", "short", "")
	s.ErrorIs(err, core.ErrConfiguration)
	s.Empty(s.repo.users)
}

func (s *UserServiceSuite) TestEnsureAdminWithoutEmailIsNoop() {
	s.Require().NoError(s.svc.EnsureAdmin(context.Background(), "  ", "", ""))
	s.Empty(s.repo.users)
}

func (s *UserServiceSuite) TestUpdateUserRole() {
	ctx := context.Background()
	u, err := s.svc.SignUp(ctx, user.CreateUserRequest{
		Email: "b@example.com", Password: "correct horse", Name: "B",
	})
	s.Require().NoError(err)

	_, err = s.svc.UpdateUserRole(ctx, u.ID, "superuser")
	s.ErrorIs(err, core.ErrInvalidInput)

	updated, err := s.svc.UpdateUserRole(ctx, u.ID, user.RoleAdmin)
	s.Require().NoError(err)
	s.Equal(user.RoleAdmin, updated.Role)

	_, err = s.svc.UpdateUserRole(ctx, "missing", user.RoleUser)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *UserServiceSuite) TestGetMeRequiresUser() {
	_, err := s.svc.GetMe(context.Background(), "")
	s.ErrorIs(err, core.ErrUnauthorized)
}

func (s *UserServiceSuite) TestEmailLookups() {
	ctx := context.Background()
	u, err := s.svc.SignUp(ctx, user.CreateUserRequest{
		Email: "c@example.com", Password: "correct horse", Name: "C",
	})
	s.Require().NoError(err)

	exists, err := s.svc.EmailExists(ctx, " C@Example.com")
	s.Require().NoError(err)
	s.True(exists)

	email, err := s.svc.EmailOf(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("c@example.com", email)

	info, err := s.svc.GetByEmail(ctx, "C@EXAMPLE.COM")
	s.Require().NoError(err)
	s.Equal(u.ID, info.ID)
	s.Equal(user.RoleUser, info.Role)
}
