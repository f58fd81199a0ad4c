package rbac

import "legacyvault/internal/models"

// Evaluator answers permission queries against the effective permission set
// of a single user: the union of permissions granted by every role assigned
// to them. There is no hierarchy, no inheritance, no deny rules and no
// wildcard matching; membership is the whole model.
//
// The set is computed once from the roles handed to NewEvaluator and held
// until the caller builds a new evaluator after a role mutation.
type Evaluator struct {
	effective map[models.Permission]struct{}
}

// NewEvaluator computes the effective permission set from the user's roles.
func NewEvaluator(roles []models.Role) *Evaluator {
	effective := make(map[models.Permission]struct{})
	for _, role := range roles {
		for _, p := range role.Permissions {
			effective[p] = struct{}{}
		}
	}
	return &Evaluator{effective: effective}
}

// HasPermission reports whether p is in the effective set.
func (e *Evaluator) HasPermission(p models.Permission) bool {
	_, ok := e.effective[p]
	return ok
}

// HasAnyPermission reports whether at least one of ps is in the effective set.
func (e *Evaluator) HasAnyPermission(ps ...models.Permission) bool {
	for _, p := range ps {
		if e.HasPermission(p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every one of ps is in the effective set.
func (e *Evaluator) HasAllPermissions(ps ...models.Permission) bool {
	for _, p := range ps {
		if !e.HasPermission(p) {
			return false
		}
	}
	return true
}

// Permissions returns the effective set as a slice. Order is unspecified.
func (e *Evaluator) Permissions() []models.Permission {
	out := make([]models.Permission, 0, len(e.effective))
	for p := range e.effective {
		out = append(out, p)
	}
	return out
}
