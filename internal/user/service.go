// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/studentshelf/internal/auth"
	"github.com/carterperez-dev/studentshelf/internal/core"
)

// StudentEmails reports whether an email already belongs to a student
// registration. Regular sign-up must not claim it.
type StudentEmails interface {
	EmailRegistered(ctx context.Context, email string) (bool, error)
}

type Service struct {
	repo     Repository
	students StudentEmails
	logger   *slog.Logger
}

func NewService(repo Repository, students StudentEmails, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, students: students, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

// SignUp creates a regular account directly, outside the student flow.
func (s *Service) SignUp(ctx context.Context, req CreateUserRequest) (*User, error) {
	email := normalizeEmail(req.Email)

	if s.students != nil {
		taken, err := s.students.EmailRegistered(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("check student email: %w", err)
		}
		if taken {
			return nil, fmt.Errorf("sign up: %w", core.ErrDuplicateKey)
		}
	}

	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         RoleUser,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// EnsureAdmin creates the bootstrap administrator, or promotes the account
// if it already exists. It never changes an existing password.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return nil
		}
		if err := s.repo.UpdateRole(ctx, existing.ID, RoleAdmin); err != nil {
			return err
		}
		s.logger.Info("promoted bootstrap admin", "user_id", existing.ID)
		return nil
	case !errors.Is(err, core.ErrNotFound):
		return err
	}

	if len(password) < 8 {
		return fmt.Errorf("bootstrap admin password too short: %w", core.ErrConfiguration)
	}

	hash, err := core.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if name == "" {
		name = "Administrator"
	}

	admin := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         RoleAdmin,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return err
	}

	s.logger.Info("created bootstrap admin", "user_id", admin.ID)
	return nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.byID(ctx, id)
}

func (s *Service) byID(ctx context.Context, id string) (*User, error) {
	if !core.ValidID(id) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

// EmailOf resolves a user id to the address notifications go to.
func (s *Service) EmailOf(ctx context.Context, id string) (string, error) {
	user, err := s.byID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	id, role string,
) (*User, error) {
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	if !core.ValidID(id) {
		return nil, fmt.Errorf("update role: %w", core.ErrNotFound)
	}

	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) EmailExists(
	ctx context.Context,
	email string,
) (bool, error) {
	return s.repo.ExistsByEmail(ctx, normalizeEmail(email))
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
	}
}

var _ auth.UserProvider = (*Service)(nil)
