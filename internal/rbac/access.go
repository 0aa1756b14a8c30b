package rbac

import (
	"context"

	"github.com/aman-churiwal/gatekeeper/internal/apperror"
)

// Principal is the authenticated actor of a request
type Principal struct {
	ID    string
	Email string
	Role  Role
}

// IsOwnerOf reports whether the principal owns a resource
func (p *Principal) IsOwnerOf(ownerID string) bool {
	return p != nil && p.ID != "" && p.ID == ownerID
}

func rankOf(p *Principal) Role {
	if p == nil {
		return RoleAnonymous
	}
	return p.Role
}

// RequireRole fails with Unauthorized when there is no principal and with
// Forbidden when the principal ranks below required.
func RequireRole(p *Principal, required Role) error {
	if p == nil {
		return apperror.Unauthorized("")
	}
	if !rankOf(p).AtLeast(required) {
		return apperror.Forbidden("")
	}
	return nil
}

// RequireAnyRole passes if any single RequireRole check passes
func RequireAnyRole(p *Principal, roles ...Role) error {
	if p == nil {
		return apperror.Unauthorized("")
	}
	for _, r := range roles {
		if RequireRole(p, r) == nil {
			return nil
		}
	}
	// ADMIN clears every check, including an empty role list
	if rankOf(p).AtLeast(RoleAdmin) {
		return nil
	}
	return apperror.Forbidden("")
}

func IsOwner(p *Principal, resourceOwnerID string) bool {
	return p.IsOwnerOf(resourceOwnerID)
}

// CanAccessResource allows owners and admins
func CanAccessResource(p *Principal, resourceOwnerID string) bool {
	return IsOwner(p, resourceOwnerID) || rankOf(p).AtLeast(RoleAdmin)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
