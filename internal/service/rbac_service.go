package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"legacyvault/internal/ids"
	"legacyvault/internal/models"
	"legacyvault/internal/rbac"
)

// RBACService manages roles and assignments. The effective permission set
// of a user is recomputed from their current assignments on every request
// (EvaluatorFor) rather than cached, so role mutations take effect
// immediately.
type RBACService struct {
	roles RoleStore
	log   zerolog.Logger
}

func NewRBACService(roles RoleStore, log zerolog.Logger) *RBACService {
	return &RBACService{
		roles: roles,
		log:   log,
	}
}

func (s *RBACService) Roles(ctx context.Context) ([]models.Role, error) {
	return s.roles.List(ctx)
}

func (s *RBACService) Role(ctx context.Context, id string) (models.Role, error) {
	return s.roles.GetByID(ctx, id)
}

type RoleInput struct {
	Name        string
	Description string
	Permissions []models.Permission
}

func (s *RBACService) CreateRole(ctx context.Context, input RoleInput) (models.Role, error) {
	if strings.TrimSpace(input.Name) == "" {
		return models.Role{}, fmt.Errorf("role name required")
	}
	for _, p := range input.Permissions {
		if !rbac.IsKnown(p) {
			return models.Role{}, fmt.Errorf("%w: %s", ErrUnknownPermission, p)
		}
	}

	role := models.Role{
		ID:          "role_" + ids.New(),
		Name:        input.Name,
		Description: input.Description,
		Permissions: input.Permissions,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return models.Role{}, err
	}

	s.log.Info().Str("role_id", role.ID).Str("name", role.Name).Msg("role created")
	return role, nil
}

type RolePatch struct {
	Name        *string
	Description *string
	Permissions []models.Permission
}

func (s *RBACService) UpdateRole(ctx context.Context, id string, patch RolePatch) (models.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return models.Role{}, err
	}
	if role.IsSystem {
		return models.Role{}, ErrSystemRoleImmutable
	}

	if patch.Name != nil {
		role.Name = *patch.Name
	}
	if patch.Description != nil {
		role.Description = *patch.Description
	}
	if patch.Permissions != nil {
		for _, p := range patch.Permissions {
			if !rbac.IsKnown(p) {
				return models.Role{}, fmt.Errorf("%w: %s", ErrUnknownPermission, p)
			}
		}
		role.Permissions = patch.Permissions
	}

	if err := s.roles.Update(ctx, role); err != nil {
		return models.Role{}, err
	}
	return role, nil
}

// DeleteRole removes a custom role and detaches it from every user holding
// it. A user whose only role it is falls back to the default role first, so
// nobody is ever left without one.
func (s *RBACService) DeleteRole(ctx context.Context, id string) error {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRoleImmutable
	}

	userIDs, err := s.roles.UserIDsWithRole(ctx, id)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		assignments, err := s.roles.AssignmentsForUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(assignments) == 1 {
			if err := s.roles.Assign(ctx, models.RoleAssignment{
				UserID:     userID,
				RoleID:     rbac.DefaultRoleID,
				AssignedBy: "system",
			}); err != nil {
				return err
			}
		}
		if err := s.roles.Remove(ctx, userID, id); err != nil {
			return err
		}
	}

	if err := s.roles.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("role_id", id).Int("detached_users", len(userIDs)).Msg("role deleted")
	return nil
}

func (s *RBACService) AssignRole(ctx context.Context, userID, roleID, assignedBy string) error {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return err
	}
	return s.roles.Assign(ctx, models.RoleAssignment{
		UserID:     userID,
		RoleID:     roleID,
		AssignedBy: assignedBy,
	})
}

func (s *RBACService) RemoveRole(ctx context.Context, userID, roleID string) error {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return err
	}

	assignments, err := s.roles.AssignmentsForUser(ctx, userID)
	if err != nil {
		return err
	}
	assigned := false
	for _, a := range assignments {
		if a.RoleID == roleID {
			assigned = true
			break
		}
	}
	if !assigned {
		return s.roles.Remove(ctx, userID, roleID) // surfaces ErrRoleNotAssigned
	}
	if len(assignments) == 1 {
		return ErrLastRole
	}

	return s.roles.Remove(ctx, userID, roleID)
}

// RolesForUser returns the user's assigned roles.
func (s *RBACService) RolesForUser(ctx context.Context, userID string) ([]models.Role, error) {
	return s.roles.RolesForUser(ctx, userID)
}

// EvaluatorFor computes the user's effective permission set: the union of
// the permissions of every role assigned to them.
func (s *RBACService) EvaluatorFor(ctx context.Context, userID string) (*rbac.Evaluator, error) {
	roles, err := s.roles.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rbac.NewEvaluator(roles), nil
}
