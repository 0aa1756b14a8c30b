package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/aman-churiwal/gatekeeper/internal/apperror"
	"github.com/aman-churiwal/gatekeeper/internal/models"
	"github.com/aman-churiwal/gatekeeper/internal/rbac"
	"github.com/aman-churiwal/gatekeeper/internal/security"
	"github.com/google/uuid"
)

const (
	maxNameLength = 100
	maxBioLength  = 2000
)

type UserService struct {
	repo UserStore
}

func NewUserService(repo UserStore) *UserService {
	return &UserService{repo: repo}
}

// Get returns a user the principal may see. Missing users and users the
// principal may not access look the same.
func (s *UserService) Get(ctx context.Context, p *rbac.Principal, id string) (*models.User, error) {
	if p == nil {
		return nil, apperror.Unauthorized("")
	}

	notFound := apperror.NotFound("User not found")
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound
	}
	if !rbac.CanAccessResource(p, id) {
		return nil, notFound
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, notFound
	}

	return user, nil
}

func (s *UserService) List(ctx context.Context, p *rbac.Principal) ([]models.User, error) {
	if err := rbac.RequireRole(p, rbac.RoleAdmin); err != nil {
		return nil, err
	}

	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) UpdateRole(ctx context.Context, p *rbac.Principal, id, roleName string) error {
	if err := rbac.RequireRole(p, rbac.RoleAdmin); err != nil {
		return err
	}

	role, ok := rbac.ParseRole(roleName)
	if !ok {
		return apperror.BadRequest("Unknown role").WithCode("INVALID_ROLE")
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NotFound("User not found")
	}

	updated, err := s.repo.UpdateRole(ctx, id, role.String())
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if !updated {
		return apperror.NotFound("User not found")
	}
	return nil
}

type ProfileUpdate struct {
	Name *string
	Bio  *string
}

// UpdateProfile stores the caller's own profile. Text that looks like script
// injection is refused and remaining markup is stripped.
func (s *UserService) UpdateProfile(ctx context.Context, p *rbac.Principal, in ProfileUpdate) (*models.User, error) {
	if err := rbac.RequireRole(p, rbac.RoleUser); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.Name != nil {
		name, err := cleanText(*in.Name, maxNameLength, "Name")
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if in.Bio != nil {
		bio, err := cleanText(*in.Bio, maxBioLength, "Bio")
		if err != nil {
			return nil, err
		}
		updates["bio"] = bio
	}
	if len(updates) == 0 {
		return nil, apperror.BadRequest("No fields to update")
	}

	if err := s.repo.UpdateProfile(ctx, p.ID, updates); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	user, err := s.repo.FindByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("reload profile: %w", err)
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}
	return user, nil
}

func cleanText(raw string, maxLen int, field string) (string, error) {
	if security.ContainsSuspiciousContent(raw) {
		return "", apperror.BadRequest(field + " contains disallowed content").WithCode("SUSPICIOUS_CONTENT")
	}
	text := security.StripMarkup(security.SanitizeInput(raw))
	if utf8.RuneCountInString(text) > maxLen {
		return "", apperror.BadRequest(fmt.Sprintf("%s must be at most %d characters", field, maxLen))
	}
	return text, nil
}
