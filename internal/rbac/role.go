// AngelaMos | 2026
// role.go

// Package rbac holds the role hierarchy and the authorization decisions
// built on it. Everything here is pure: no I/O, no shared mutable state.
package rbac

import (
	"errors"
	"fmt"
)

// Role is one of the four closed-set role identifiers.
type Role string

const (
	SuperAdmin  Role = "SUPER_ADMIN"
	Admin       Role = "ADMIN"
	ShopManager Role = "SHOP_MANAGER"
	Customer    Role = "CUSTOMER"
)

var ErrUnknownRole = errors.New("unknown role")

// ranks is the only rank table in the process. Authorize and CanModifyRole
// both read it through RankOf.
var ranks = map[Role]int{
	SuperAdmin:  4,
	Admin:       3,
	ShopManager: 2,
	Customer:    1,
}

// Roles returns the closed set in descending rank order.
func Roles() []Role {
	return []Role{SuperAdmin, Admin, ShopManager, Customer}
}

// RankOf returns the integer rank of r, or ErrUnknownRole when r is
// outside the closed set.
func RankOf(r Role) (int, error) {
	rank, ok := ranks[r]
	if !ok {
		return 0, fmt.Errorf("rank of %q: %w", string(r), ErrUnknownRole)
	}
	return rank, nil
}

// ParseRole validates a raw string against the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, err := RankOf(r); err != nil {
		return "", err
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := ranks[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

// AtLeast reports whether role ranks at or above required. An unknown role
// on either side never satisfies the comparison.
func AtLeast(role, required Role) bool {
	have, err := RankOf(role)
	if err != nil {
		return false
	}
	need, err := RankOf(required)
	if err != nil {
		return false
	}
	return have >= need
}

// StrictlyAbove reports whether a ranks strictly higher than b.
func StrictlyAbove(a, b Role) bool {
	rankA, err := RankOf(a)
	if err != nil {
		return false
	}
	rankB, err := RankOf(b)
	if err != nil {
		return false
	}
	return rankA > rankB
}
