package service

import (
	"context"
	"errors"
	"io"
	"time"

	"legacyvault/internal/events"
	"legacyvault/internal/models"
	"legacyvault/internal/rbac"
)

// Cross-cutting sentinels surfaced to handlers.
var (
	ErrForbidden = errors.New("forbidden")

	ErrSystemRoleImmutable = errors.New("system roles cannot be modified or deleted")
	ErrLastRole            = errors.New("cannot remove a user's last role")
	ErrUnknownPermission   = errors.New("unknown permission")

	ErrLastAdmin = errors.New("a vault must keep at least one admin")
)

// Actor is the authenticated caller plus their effective global permissions,
// resolved once per request. Vault-level admin rights are checked against
// the vault itself, not the actor.
type Actor struct {
	User  models.User
	Perms *rbac.Evaluator
}

func (a Actor) Can(p models.Permission) bool {
	return a.Perms != nil && a.Perms.HasPermission(p)
}

// Store interfaces are defined here, on the consumer side; the concrete
// pgx repositories satisfy them and tests swap in fakes.

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	UpdateProfile(ctx context.Context, id string, displayName string, avatarURL *string) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	FindByRefreshHash(ctx context.Context, userID string, refreshHash []byte) (models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	DeleteOldestSessions(ctx context.Context, userID string, keepLatest int) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByDevice(ctx context.Context, userID, deviceID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type RoleStore interface {
	List(ctx context.Context) ([]models.Role, error)
	GetByID(ctx context.Context, id string) (models.Role, error)
	Create(ctx context.Context, role models.Role) error
	Update(ctx context.Context, role models.Role) error
	Delete(ctx context.Context, id string) error
	AssignmentsForUser(ctx context.Context, userID string) ([]models.RoleAssignment, error)
	RolesForUser(ctx context.Context, userID string) ([]models.Role, error)
	Assign(ctx context.Context, assignment models.RoleAssignment) error
	Remove(ctx context.Context, userID, roleID string) error
	RemoveAllForUser(ctx context.Context, userID string) error
	UserIDsWithRole(ctx context.Context, roleID string) ([]string, error)
}

type VaultStore interface {
	Create(ctx context.Context, vault models.Vault, creator models.VaultMember) error
	GetByID(ctx context.Context, id string) (models.Vault, error)
	ListForUser(ctx context.Context, userID string) ([]models.Vault, error)
	Update(ctx context.Context, vault models.Vault) error
	UpdateSettings(ctx context.Context, vaultID string, requireApproval bool) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, member models.VaultMember) error
	RemoveMember(ctx context.Context, vaultID, userID string) error
	UpdateMemberRole(ctx context.Context, vaultID, userID string, role models.VaultRole) error
}

type MemoryStore interface {
	Create(ctx context.Context, m models.Memory) error
	GetByID(ctx context.Context, id string) (models.Memory, error)
	ListByVault(ctx context.Context, vaultID string, status *models.ApprovalStatus) ([]models.Memory, error)
	ListRejectedForUser(ctx context.Context, vaultID, userID string) ([]models.Memory, error)
	MarkApproved(ctx context.Context, id, approverID, approverName string, at time.Time) error
	MarkRejected(ctx context.Context, id, reason string) error
	MarkResubmitted(ctx context.Context, id, creatorID string) error
	UpdateDetails(ctx context.Context, id, title, description string, tags []string) error
	Delete(ctx context.Context, id string) error
	ObjectKeysByVault(ctx context.Context, vaultID string) (map[string]string, error)
	CountByStatus(ctx context.Context) (map[models.ApprovalStatus]int, error)
}

type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	ListByMemory(ctx context.Context, memoryID string) ([]models.Comment, error)
	DeleteByMemory(ctx context.Context, memoryID string) error
}

type BlobStore interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (int64, error)
	Remove(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
	MediaBucket() string
	CoversBucket() string
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}
