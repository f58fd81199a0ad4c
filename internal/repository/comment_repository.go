package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"legacyvault/internal/models"
)

type CommentRepository struct {
	pool *pgxpool.Pool
}

func NewCommentRepository(pool *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{pool: pool}
}

func (r *CommentRepository) Create(ctx context.Context, comment models.Comment) error {
	const query = `
		INSERT INTO memory_comments (id, memory_id, user_id, text, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.pool.Exec(ctx, query, comment.ID, comment.MemoryID, comment.UserID, comment.Text)
	return err
}

func (r *CommentRepository) ListByMemory(ctx context.Context, memoryID string) ([]models.Comment, error) {
	const query = `
		SELECT c.id, c.memory_id, c.user_id, u.display_name, c.text, c.created_at
		FROM memory_comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.memory_id = $1
		ORDER BY c.created_at
	`

	rows, err := r.pool.Query(ctx, query, memoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.MemoryID, &c.UserID, &c.UserName, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *CommentRepository) DeleteByMemory(ctx context.Context, memoryID string) error {
	const query = `DELETE FROM memory_comments WHERE memory_id = $1`
	_, err := r.pool.Exec(ctx, query, memoryID)
	return err
}
