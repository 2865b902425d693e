// AngelaMos | 2026
// authorize.go

package rbac

// Decision is the outcome of the authorization gate.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyInsufficientRole
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyInsufficientRole:
		return "deny_insufficient_role"
	default:
		return "unknown"
	}
}

func (d Decision) Allowed() bool {
	return d == Allow
}

// Authorize decides whether id may continue past a gate requiring the given
// role. It is computed fresh for each request and never cached.
func Authorize(id *Identity, required Role) Decision {
	if id == nil {
		return DenyUnauthenticated
	}
	if !AtLeast(id.Role, required) {
		return DenyInsufficientRole
	}
	return Allow
}

// CanModifyRole reports whether an actor may change the role of a user who
// currently holds target. Peers never modify each other, including two
// holders of the top role.
func CanModifyRole(actor, target Role) bool {
	return StrictlyAbove(actor, target)
}

// CanAssignRole reports whether an actor may hand out newRole. Nobody grants
// a role ranked above their own.
func CanAssignRole(actor, newRole Role) bool {
	return AtLeast(actor, newRole)
}
