package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"legacyvault/internal/models"
)

var (
	ErrVaultNotFound  = errors.New("vault not found")
	ErrMemberNotFound = errors.New("vault member not found")
	ErrMemberExists   = errors.New("user is already a vault member")
)

type VaultRepository struct {
	pool *pgxpool.Pool
}

func NewVaultRepository(pool *pgxpool.Pool) *VaultRepository {
	return &VaultRepository{pool: pool}
}

const vaultColumns = `id, name, description, cover_image, theme, require_approval, created_by, created_at, updated_at`

func scanVault(row pgx.Row) (models.Vault, error) {
	var vault models.Vault
	if err := row.Scan(
		&vault.ID,
		&vault.Name,
		&vault.Description,
		&vault.CoverImage,
		&vault.Theme,
		&vault.RequireApproval,
		&vault.CreatedBy,
		&vault.CreatedAt,
		&vault.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Vault{}, ErrVaultNotFound
		}
		return models.Vault{}, err
	}
	return vault, nil
}

// Create inserts the vault and its creator as sole admin member in one
// transaction.
func (r *VaultRepository) Create(ctx context.Context, vault models.Vault, creator models.VaultMember) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertVault = `
		INSERT INTO vaults (id, name, description, cover_image, theme, require_approval, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, insertVault,
		vault.ID,
		vault.Name,
		vault.Description,
		vault.CoverImage,
		vault.Theme,
		vault.RequireApproval,
		vault.CreatedBy,
	); err != nil {
		return err
	}

	const insertMember = `
		INSERT INTO vault_members (vault_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := tx.Exec(ctx, insertMember, vault.ID, creator.UserID, models.VaultRoleAdmin); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID loads a vault with its members (names and emails joined in from
// users).
func (r *VaultRepository) GetByID(ctx context.Context, id string) (models.Vault, error) {
	const query = `SELECT ` + vaultColumns + ` FROM vaults WHERE id = $1`
	vault, err := scanVault(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return models.Vault{}, err
	}

	members, err := r.listMembers(ctx, id)
	if err != nil {
		return models.Vault{}, err
	}
	vault.Members = members
	return vault, nil
}

func (r *VaultRepository) listMembers(ctx context.Context, vaultID string) ([]models.VaultMember, error) {
	const query = `
		SELECT m.vault_id, m.user_id, u.display_name, u.email, m.role, m.joined_at
		FROM vault_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.vault_id = $1
		ORDER BY m.joined_at
	`

	rows, err := r.pool.Query(ctx, query, vaultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.VaultMember
	for rows.Next() {
		var m models.VaultMember
		if err := rows.Scan(&m.VaultID, &m.UserID, &m.Name, &m.Email, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListForUser returns every vault the user is a member of, members included.
func (r *VaultRepository) ListForUser(ctx context.Context, userID string) ([]models.Vault, error) {
	const query = `
		SELECT ` + vaultColumns + `
		FROM vaults
		WHERE id IN (SELECT vault_id FROM vault_members WHERE user_id = $1)
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vaults []models.Vault
	for rows.Next() {
		vault, err := scanVault(rows)
		if err != nil {
			return nil, err
		}
		vaults = append(vaults, vault)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range vaults {
		members, err := r.listMembers(ctx, vaults[i].ID)
		if err != nil {
			return nil, err
		}
		vaults[i].Members = members
	}
	return vaults, nil
}

func (r *VaultRepository) Update(ctx context.Context, vault models.Vault) error {
	const query = `
		UPDATE vaults
		SET name = $2, description = $3, cover_image = $4, theme = $5, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, vault.ID, vault.Name, vault.Description, vault.CoverImage, vault.Theme)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVaultNotFound
	}
	return nil
}

func (r *VaultRepository) UpdateSettings(ctx context.Context, vaultID string, requireApproval bool) error {
	const query = `UPDATE vaults SET require_approval = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, vaultID, requireApproval)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVaultNotFound
	}
	return nil
}

// Delete removes the vault; members and memories go with it via FK cascade.
func (r *VaultRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM vaults WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVaultNotFound
	}
	return nil
}

func (r *VaultRepository) AddMember(ctx context.Context, member models.VaultMember) error {
	const query = `
		INSERT INTO vault_members (vault_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (vault_id, user_id) DO NOTHING
	`
	cmd, err := r.pool.Exec(ctx, query, member.VaultID, member.UserID, member.Role)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMemberExists
	}
	return nil
}

func (r *VaultRepository) RemoveMember(ctx context.Context, vaultID, userID string) error {
	const query = `DELETE FROM vault_members WHERE vault_id = $1 AND user_id = $2`
	cmd, err := r.pool.Exec(ctx, query, vaultID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *VaultRepository) UpdateMemberRole(ctx context.Context, vaultID, userID string, role models.VaultRole) error {
	const query = `UPDATE vault_members SET role = $3 WHERE vault_id = $1 AND user_id = $2`
	cmd, err := r.pool.Exec(ctx, query, vaultID, userID, role)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}
