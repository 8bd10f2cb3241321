// Package auth answers capability questions for the catalog's gated
// operations. It does not authenticate users; callers arrive with an Actor
// already resolved, optionally from a signed moderator token.
package auth

import (
	"errors"
	"fmt"
	"slices"
)

// PermModeratePost allows approving and blocking link domains.
const PermModeratePost = "moderate_post"

// ErrPermissionDenied is returned when an actor lacks a required permission.
var ErrPermissionDenied = errors.New("permission denied")

// Actor is a server-local user acting on the catalog.
type Actor struct {
	ID          string
	Permissions []string
}

// Authorizer decides whether an actor holds a permission.
type Authorizer interface {
	HasPerm(actor Actor, perm string) bool
}

// PermissionSet grants exactly the permissions listed on the actor.
type PermissionSet struct{}

func (PermissionSet) HasPerm(actor Actor, perm string) bool {
	return slices.Contains(actor.Permissions, perm)
}

// Require returns a wrapped ErrPermissionDenied unless authz grants perm.
func Require(authz Authorizer, actor Actor, perm string) error {
	if authz == nil || !authz.HasPerm(actor, perm) {
		return fmt.Errorf("%w: actor %q lacks %s", ErrPermissionDenied, actor.ID, perm)
	}
	return nil
}
