package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"legacyvault/internal/models"
)

var (
	ErrMemoryNotFound = errors.New("memory not found")

	// ErrStaleTransition means the conditional update matched no row: the
	// memory moved out of the expected state between read and write.
	ErrStaleTransition = errors.New("memory changed state concurrently")
)

type MemoryRepository struct {
	pool *pgxpool.Pool
}

func NewMemoryRepository(pool *pgxpool.Pool) *MemoryRepository {
	return &MemoryRepository{pool: pool}
}

const memoryColumns = `id, vault_id, title, description, media_url, media_type, thumbnail_url, duration_seconds,
	bucket, object_key, size_bytes, signature, tags, approval_status, approved_by, approved_by_name, approved_at,
	rejection_reason, created_by, created_by_name, created_at, updated_at`

func scanMemory(row pgx.Row) (models.Memory, error) {
	var m models.Memory
	if err := row.Scan(
		&m.ID,
		&m.VaultID,
		&m.Title,
		&m.Description,
		&m.MediaURL,
		&m.MediaType,
		&m.ThumbnailURL,
		&m.DurationSeconds,
		&m.Bucket,
		&m.ObjectKey,
		&m.SizeBytes,
		&m.Signature,
		&m.Tags,
		&m.ApprovalStatus,
		&m.ApprovedBy,
		&m.ApprovedByName,
		&m.ApprovedAt,
		&m.RejectionReason,
		&m.CreatedBy,
		&m.CreatedByName,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Memory{}, ErrMemoryNotFound
		}
		return models.Memory{}, err
	}
	return m, nil
}

func (r *MemoryRepository) Create(ctx context.Context, m models.Memory) error {
	const query = `
		INSERT INTO memories (
			id, vault_id, title, description, media_url, media_type, thumbnail_url, duration_seconds,
			bucket, object_key, size_bytes, signature, tags, approval_status, approved_by, approved_by_name, approved_at,
			rejection_reason, created_by, created_by_name, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		m.ID,
		m.VaultID,
		m.Title,
		m.Description,
		m.MediaURL,
		m.MediaType,
		m.ThumbnailURL,
		m.DurationSeconds,
		m.Bucket,
		m.ObjectKey,
		m.SizeBytes,
		m.Signature,
		m.Tags,
		m.ApprovalStatus,
		m.ApprovedBy,
		m.ApprovedByName,
		m.ApprovedAt,
		m.RejectionReason,
		m.CreatedBy,
		m.CreatedByName,
	)
	return err
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (models.Memory, error) {
	const query = `SELECT ` + memoryColumns + ` FROM memories WHERE id = $1`
	return scanMemory(r.pool.QueryRow(ctx, query, id))
}

// ListByVault returns all memories in a vault, newest first, optionally
// filtered by approval status. Visibility projection is the service's job.
func (r *MemoryRepository) ListByVault(ctx context.Context, vaultID string, status *models.ApprovalStatus) ([]models.Memory, error) {
	const query = `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE vault_id = $1 AND ($2::text IS NULL OR approval_status = $2)
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, vaultID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMemories(rows)
}

// ListRejectedForUser returns the user's own rejected memories in a vault.
func (r *MemoryRepository) ListRejectedForUser(ctx context.Context, vaultID, userID string) ([]models.Memory, error) {
	const query = `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE vault_id = $1 AND created_by = $2 AND approval_status = 'rejected'
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, vaultID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMemories(rows)
}

func collectMemories(rows pgx.Rows) ([]models.Memory, error) {
	var memories []models.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// MarkApproved records a pending -> approved transition. The status is part
// of the predicate so a concurrent decision loses cleanly instead of being
// overwritten.
func (r *MemoryRepository) MarkApproved(ctx context.Context, id, approverID, approverName string, at time.Time) error {
	const query = `
		UPDATE memories
		SET approval_status = 'approved',
		    approved_by = $2,
		    approved_by_name = $3,
		    approved_at = $4,
		    rejection_reason = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND approval_status = 'pending'
	`
	return r.conditionalUpdate(ctx, id, query, id, approverID, approverName, at)
}

// MarkRejected records a pending -> rejected transition.
func (r *MemoryRepository) MarkRejected(ctx context.Context, id, reason string) error {
	const query = `
		UPDATE memories
		SET approval_status = 'rejected',
		    rejection_reason = $2,
		    approved_by = NULL,
		    approved_by_name = NULL,
		    approved_at = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND approval_status = 'pending'
	`
	return r.conditionalUpdate(ctx, id, query, id, reason)
}

// MarkResubmitted records a rejected -> pending transition by the creator.
func (r *MemoryRepository) MarkResubmitted(ctx context.Context, id, creatorID string) error {
	const query = `
		UPDATE memories
		SET approval_status = 'pending',
		    rejection_reason = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND approval_status = 'rejected' AND created_by = $2
	`
	return r.conditionalUpdate(ctx, id, query, id, creatorID)
}

func (r *MemoryRepository) conditionalUpdate(ctx context.Context, id, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); errors.Is(err, ErrMemoryNotFound) {
			return ErrMemoryNotFound
		}
		return ErrStaleTransition
	}
	return nil
}

func (r *MemoryRepository) UpdateDetails(ctx context.Context, id, title, description string, tags []string) error {
	const query = `
		UPDATE memories
		SET title = $2, description = $3, tags = $4, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, title, description, tags)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMemoryNotFound
	}
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM memories WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMemoryNotFound
	}
	return nil
}

// ObjectKeysByVault lists the stored objects of a vault's memories, used to
// clean up media when a vault is deleted.
func (r *MemoryRepository) ObjectKeysByVault(ctx context.Context, vaultID string) (map[string]string, error) {
	const query = `SELECT object_key, bucket FROM memories WHERE vault_id = $1`

	rows, err := r.pool.Query(ctx, query, vaultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]string)
	for rows.Next() {
		var key, bucket string
		if err := rows.Scan(&key, &bucket); err != nil {
			return nil, err
		}
		keys[key] = bucket
	}
	return keys, rows.Err()
}

// CountByStatus summarizes approval states across all vaults for the admin
// overview.
func (r *MemoryRepository) CountByStatus(ctx context.Context) (map[models.ApprovalStatus]int, error) {
	const query = `SELECT approval_status, COUNT(*) FROM memories GROUP BY approval_status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.ApprovalStatus]int)
	for rows.Next() {
		var status models.ApprovalStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
