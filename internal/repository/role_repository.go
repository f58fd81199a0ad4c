package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"legacyvault/internal/models"
	"legacyvault/internal/rbac"
)

var (
	ErrRoleNotFound        = errors.New("role not found")
	ErrRoleAlreadyAssigned = errors.New("role already assigned to user")
	ErrRoleNotAssigned     = errors.New("role not assigned to user")
)

// RoleRepository persists custom roles and user role assignments. The four
// system roles live in code (rbac.SystemRoles) and are merged into reads, the
// way the catalog always wins over stored rows.
type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

const roleColumns = `id, name, description, permissions, is_system, created_at, updated_at`

func scanRole(row pgx.Row) (models.Role, error) {
	var role models.Role
	var perms []string
	if err := row.Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&perms,
		&role.IsSystem,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Role{}, ErrRoleNotFound
		}
		return models.Role{}, err
	}
	role.Permissions = make([]models.Permission, len(perms))
	for i, p := range perms {
		role.Permissions[i] = models.Permission(p)
	}
	return role, nil
}

func permissionStrings(perms []models.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

// List returns the system roles followed by all custom roles.
func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := rbac.SystemRoles()
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetByID resolves a role from the system catalog first, then the database.
func (r *RoleRepository) GetByID(ctx context.Context, id string) (models.Role, error) {
	for _, role := range rbac.SystemRoles() {
		if role.ID == id {
			return role, nil
		}
	}

	const query = `SELECT ` + roleColumns + ` FROM roles WHERE id = $1`
	return scanRole(r.pool.QueryRow(ctx, query, id))
}

func (r *RoleRepository) Create(ctx context.Context, role models.Role) error {
	const query = `
		INSERT INTO roles (id, name, description, permissions, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		role.ID,
		role.Name,
		role.Description,
		permissionStrings(role.Permissions),
	)
	return err
}

func (r *RoleRepository) Update(ctx context.Context, role models.Role) error {
	const query = `
		UPDATE roles
		SET name = $2, description = $3, permissions = $4, updated_at = NOW()
		WHERE id = $1 AND NOT is_system
	`
	cmd, err := r.pool.Exec(ctx, query,
		role.ID,
		role.Name,
		role.Description,
		permissionStrings(role.Permissions),
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM roles WHERE id = $1 AND NOT is_system`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// AssignmentsForUser returns the user's role assignments, oldest first.
func (r *RoleRepository) AssignmentsForUser(ctx context.Context, userID string) ([]models.RoleAssignment, error) {
	const query = `
		SELECT user_id, role_id, assigned_at, assigned_by
		FROM user_roles
		WHERE user_id = $1
		ORDER BY assigned_at
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []models.RoleAssignment
	for rows.Next() {
		var a models.RoleAssignment
		if err := rows.Scan(&a.UserID, &a.RoleID, &a.AssignedAt, &a.AssignedBy); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// RolesForUser resolves the user's assigned role records.
func (r *RoleRepository) RolesForUser(ctx context.Context, userID string) ([]models.Role, error) {
	assignments, err := r.AssignmentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	roles := make([]models.Role, 0, len(assignments))
	for _, a := range assignments {
		role, err := r.GetByID(ctx, a.RoleID)
		if err != nil {
			if errors.Is(err, ErrRoleNotFound) {
				// Assignment to a role deleted out from under it; skip.
				continue
			}
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (r *RoleRepository) Assign(ctx context.Context, assignment models.RoleAssignment) error {
	const query = `
		INSERT INTO user_roles (user_id, role_id, assigned_at, assigned_by)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`
	cmd, err := r.pool.Exec(ctx, query, assignment.UserID, assignment.RoleID, assignment.AssignedBy)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRoleAlreadyAssigned
	}
	return nil
}

func (r *RoleRepository) Remove(ctx context.Context, userID, roleID string) error {
	const query = `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`
	cmd, err := r.pool.Exec(ctx, query, userID, roleID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRoleNotAssigned
	}
	return nil
}

func (r *RoleRepository) RemoveAllForUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM user_roles WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

// UserIDsWithRole returns every user currently holding the role.
func (r *RoleRepository) UserIDsWithRole(ctx context.Context, roleID string) ([]string, error) {
	const query = `SELECT user_id FROM user_roles WHERE role_id = $1`

	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}
