package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"legacyvault/internal/events"
	"legacyvault/internal/ids"
	"legacyvault/internal/media/sniffer"
	"legacyvault/internal/media/svg"
	"legacyvault/internal/models"
	"legacyvault/internal/rbac"
	"legacyvault/internal/repository"
)

type VaultService struct {
	vaults   VaultStore
	memories MemoryStore
	users    UserStore
	blobs    BlobStore
	events   EventPublisher
	log      zerolog.Logger
}

func NewVaultService(
	vaults VaultStore,
	memories MemoryStore,
	users UserStore,
	blobs BlobStore,
	publisher EventPublisher,
	log zerolog.Logger,
) *VaultService {
	return &VaultService{
		vaults:   vaults,
		memories: memories,
		users:    users,
		blobs:    blobs,
		events:   publisher,
		log:      log,
	}
}

type CreateVaultInput struct {
	Name            string
	Description     string
	Theme           string
	RequireApproval bool
}

func (s *VaultService) CreateVault(ctx context.Context, actor Actor, input CreateVaultInput) (models.Vault, error) {
	if !actor.Can(rbac.PermVaultCreate) {
		return models.Vault{}, ErrForbidden
	}
	if strings.TrimSpace(input.Name) == "" {
		return models.Vault{}, fmt.Errorf("vault name required")
	}

	vault := models.Vault{
		ID:              "vault_" + ids.New(),
		Name:            input.Name,
		Description:     input.Description,
		Theme:           input.Theme,
		RequireApproval: input.RequireApproval,
		CreatedBy:       actor.User.ID,
	}
	creator := models.VaultMember{
		VaultID: vault.ID,
		UserID:  actor.User.ID,
		Role:    models.VaultRoleAdmin,
	}

	if err := s.vaults.Create(ctx, vault, creator); err != nil {
		return models.Vault{}, err
	}

	return s.vaults.GetByID(ctx, vault.ID)
}

// GetVault loads a vault for a viewer. Non-members are refused unless they
// hold admin panel access.
func (s *VaultService) GetVault(ctx context.Context, actor Actor, vaultID string) (models.Vault, error) {
	vault, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return models.Vault{}, err
	}
	if !vault.IsMember(actor.User.ID) && !actor.Can(rbac.PermAdminAccess) {
		return models.Vault{}, ErrForbidden
	}
	return vault, nil
}

func (s *VaultService) ListVaults(ctx context.Context, actor Actor) ([]models.Vault, error) {
	return s.vaults.ListForUser(ctx, actor.User.ID)
}

type VaultPatch struct {
	Name        *string
	Description *string
	Theme       *string
}

func (s *VaultService) UpdateVault(ctx context.Context, actor Actor, vaultID string, patch VaultPatch) (models.Vault, error) {
	vault, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return models.Vault{}, err
	}
	if !vault.IsAdmin(actor.User.ID) && !actor.Can(rbac.PermVaultUpdate) {
		return models.Vault{}, ErrForbidden
	}

	if patch.Name != nil {
		vault.Name = *patch.Name
	}
	if patch.Description != nil {
		vault.Description = *patch.Description
	}
	if patch.Theme != nil {
		vault.Theme = *patch.Theme
	}

	if err := s.vaults.Update(ctx, vault); err != nil {
		return models.Vault{}, err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypeVaultUpdated,
		VaultID:   vault.ID,
		ActorID:   actor.User.ID,
		ActorName: actor.User.DisplayName,
	})
	return s.vaults.GetByID(ctx, vault.ID)
}

// UpdateSettings toggles the approval requirement. Vault admins only;
// already-pending memories keep their state either way.
func (s *VaultService) UpdateSettings(ctx context.Context, actor Actor, vaultID string, requireApproval bool) error {
	vault, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return err
	}
	if !vault.IsAdmin(actor.User.ID) {
		return ErrForbidden
	}

	if err := s.vaults.UpdateSettings(ctx, vaultID, requireApproval); err != nil {
		return err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypeVaultUpdated,
		VaultID:   vaultID,
		ActorID:   actor.User.ID,
		ActorName: actor.User.DisplayName,
	})
	return nil
}

// UploadCover sanitizes and stores a vault cover image.
func (s *VaultService) UploadCover(ctx context.Context, actor Actor, vaultID string, data []byte) (string, error) {
	vault, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return "", err
	}
	if !vault.IsAdmin(actor.User.ID) && !actor.Can(rbac.PermVaultUpdate) {
		return "", ErrForbidden
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	result, err := sniffer.DetectHead(head)
	if err != nil {
		return "", fmt.Errorf("detect cover type: %w", err)
	}
	if result.Kind != models.MediaTypeImage {
		return "", fmt.Errorf("cover must be an image, got %s", result.Kind)
	}
	if result.Format == sniffer.FormatSVG {
		if data, err = svg.Sanitize(data); err != nil {
			return "", fmt.Errorf("sanitize cover: %w", err)
		}
	}

	key := fmt.Sprintf("%s/cover.%s", vault.ID, result.Format)
	if _, err := s.blobs.Put(ctx, s.blobs.CoversBucket(), key, bytes.NewReader(data), int64(len(data)), result.MIME); err != nil {
		return "", err
	}

	vault.CoverImage = s.blobs.PublicURL(s.blobs.CoversBucket(), key)
	if err := s.vaults.Update(ctx, vault); err != nil {
		return "", err
	}
	return vault.CoverImage, nil
}

func (s *VaultService) DeleteVault(ctx context.Context, actor Actor, vaultID string) error {
	vault, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return err
	}
	if !vault.IsAdmin(actor.User.ID) && !actor.Can(rbac.PermVaultDelete) {
		return ErrForbidden
	}
	return purgeVault(ctx, s.vaults, s.memories, s.events, vault, actor.User.ID)
}

// purgeVault deletes a vault and emits cleanup events for its stored media.
// Shared with the account-deletion cascade.
func purgeVault(ctx context.Context, vaults VaultStore, memories MemoryStore, publisher EventPublisher, vault models.Vault, actorID string) error {
	objects, err := memories.ObjectKeysByVault(ctx, vault.ID)
	if err != nil {
		return err
	}

	if err := vaults.Delete(ctx, vault.ID); err != nil {
		return err
	}

	for key, bucket := range objects {
		publisher.Publish(ctx, events.Event{
			Type:      events.TypeMediaCleanup,
			VaultID:   vault.ID,
			ActorID:   actorID,
			Bucket:    bucket,
			ObjectKey: key,
		})
	}
	publisher.Publish(ctx, events.Event{
		Type:    events.TypeVaultDeleted,
		VaultID: vault.ID,
		ActorID: actorID,
	})
	return nil
}

type AddMemberInput struct {
	Email string
	Role  models.VaultRole
}

func (s *VaultService) AddMember(ctx context.Context, actor Actor, vaultID string, input AddMemberInput) (models.VaultMember, error) {
	vault, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return models.VaultMember{}, err
	}
	if !s.canManageMembers(actor, vault) {
		return models.VaultMember{}, ErrForbidden
	}

	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(input.Email)))
	if err != nil {
		return models.VaultMember{}, err
	}

	role := input.Role
	if role == "" {
		role = models.VaultRoleMember
	}

	member := models.VaultMember{
		VaultID: vaultID,
		UserID:  user.ID,
		Name:    user.DisplayName,
		Email:   user.Email,
		Role:    role,
	}
	if err := s.vaults.AddMember(ctx, member); err != nil {
		return models.VaultMember{}, err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypeMemberJoined,
		VaultID:   vaultID,
		ActorID:   user.ID,
		ActorName: user.DisplayName,
	})
	return member, nil
}

// RemoveMember removes a membership. Members may remove themselves; anyone
// else needs member-management rights. The last admin can never leave.
func (s *VaultService) RemoveMember(ctx context.Context, actor Actor, vaultID, userID string) error {
	vault, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return err
	}
	if actor.User.ID != userID && !s.canManageMembers(actor, vault) {
		return ErrForbidden
	}
	if vault.IsAdmin(userID) && vault.AdminCount() == 1 {
		return ErrLastAdmin
	}

	if err := s.vaults.RemoveMember(ctx, vaultID, userID); err != nil {
		return err
	}

	s.events.Publish(ctx, events.Event{
		Type:    events.TypeMemberLeft,
		VaultID: vaultID,
		ActorID: userID,
	})
	return nil
}

func (s *VaultService) UpdateMemberRole(ctx context.Context, actor Actor, vaultID, userID string, role models.VaultRole) error {
	if role != models.VaultRoleAdmin && role != models.VaultRoleMember {
		return fmt.Errorf("invalid vault role %q", role)
	}

	vault, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return err
	}
	if !s.canManageMembers(actor, vault) {
		return ErrForbidden
	}
	if !vault.IsMember(userID) {
		return repository.ErrMemberNotFound
	}
	if role == models.VaultRoleMember && vault.IsAdmin(userID) && vault.AdminCount() == 1 {
		return ErrLastAdmin
	}

	return s.vaults.UpdateMemberRole(ctx, vaultID, userID, role)
}

func (s *VaultService) canManageMembers(actor Actor, vault models.Vault) bool {
	return vault.IsAdmin(actor.User.ID) || actor.Can(rbac.PermVaultManageMembers)
}

// IsVaultAdmin reports whether the user administers the vault.
func (s *VaultService) IsVaultAdmin(ctx context.Context, vaultID, userID string) (bool, error) {
	vault, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return false, err
	}
	return vault.IsAdmin(userID), nil
}
