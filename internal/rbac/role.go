package rbac

import "strings"

// Role is ordered: a larger value grants everything a smaller one does
type Role int

const (
	RoleAnonymous Role = iota
	RoleUser
	RolePremium
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "USER"
	case RolePremium:
		return "PREMIUM"
	case RoleAdmin:
		return "ADMIN"
	default:
		return "ANONYMOUS"
	}
}

// Rank is the position of the role in the hierarchy, 0 for anonymous
func (r Role) Rank() int {
	if r < RoleAnonymous || r > RoleAdmin {
		return int(RoleAnonymous)
	}
	return int(r)
}

// AtLeast reports whether r satisfies required
func (r Role) AtLeast(required Role) bool {
	return r.Rank() >= required.Rank()
}

// ParseRole maps a stored or claimed role name. Unknown names are anonymous.
func ParseRole(s string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "USER":
		return RoleUser, true
	case "PREMIUM":
		return RolePremium, true
	case "ADMIN":
		return RoleAdmin, true
	default:
		return RoleAnonymous, false
	}
}
