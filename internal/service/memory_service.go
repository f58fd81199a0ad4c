package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"legacyvault/internal/approval"
	"legacyvault/internal/events"
	"legacyvault/internal/ids"
	"legacyvault/internal/media/sniffer"
	"legacyvault/internal/media/svg"
	"legacyvault/internal/models"
	"legacyvault/internal/rbac"
	"legacyvault/internal/repository"
	"legacyvault/internal/security"
)

var (
	ErrNotVaultMember  = errors.New("not a member of this vault")
	ErrFileTooLarge    = errors.New("file exceeds the upload size limit")
	ErrTypeMismatch    = errors.New("file content does not match its declared type")
	ErrUnsupportedType = errors.New("unsupported media type")
)

type MemoryService struct {
	memories  MemoryStore
	comments  CommentStore
	vaults    VaultStore
	blobs     BlobStore
	events    EventPublisher
	maxSize   int64
	sigSecret string
	log       zerolog.Logger
}

func NewMemoryService(
	memories MemoryStore,
	comments CommentStore,
	vaults VaultStore,
	blobs BlobStore,
	publisher EventPublisher,
	maxSize int64,
	sigSecret string,
	log zerolog.Logger,
) *MemoryService {
	return &MemoryService{
		memories:  memories,
		comments:  comments,
		vaults:    vaults,
		blobs:     blobs,
		events:    publisher,
		maxSize:   maxSize,
		sigSecret: sigSecret,
		log:       log,
	}
}

type UploadInput struct {
	VaultID         string
	Title           string
	Description     string
	Tags            []string
	FileName        string
	DeclaredMIME    string
	Size            int64
	DurationSeconds *int
	Body            io.Reader
}

// Upload stores a media file and records it in the vault. The initial
// approval status depends on the vault's settings and on whether the
// uploader administers the vault.
func (s *MemoryService) Upload(ctx context.Context, actor Actor, input UploadInput) (models.Memory, error) {
	vault, err := s.vaults.GetByID(ctx, input.VaultID)
	if err != nil {
		return models.Memory{}, err
	}
	if !vault.IsMember(actor.User.ID) {
		return models.Memory{}, ErrNotVaultMember
	}
	if s.maxSize > 0 && input.Size > s.maxSize {
		return models.Memory{}, ErrFileTooLarge
	}
	if strings.TrimSpace(input.Title) == "" {
		return models.Memory{}, fmt.Errorf("memory title required")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(input.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return models.Memory{}, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	result, err := sniffer.DetectHead(head)
	if err != nil {
		return models.Memory{}, ErrUnsupportedType
	}
	if declared := sniffer.NormalizeMIME(input.DeclaredMIME); declared != "" {
		// The declared top-level type must agree with what the bytes say;
		// subtype aliases like audio/x-wav are tolerated.
		if kind, _, _ := strings.Cut(declared, "/"); kind != string(result.Kind) {
			return models.Memory{}, ErrTypeMismatch
		}
	}

	body := input.Body
	if s.maxSize > 0 {
		body = io.LimitReader(body, s.maxSize+1)
	}
	rest, err := io.ReadAll(body)
	if err != nil {
		return models.Memory{}, fmt.Errorf("read upload: %w", err)
	}
	data := append(head, rest...)
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return models.Memory{}, ErrFileTooLarge
	}
	if result.Format == sniffer.FormatSVG {
		if data, err = svg.Sanitize(data); err != nil {
			return models.Memory{}, fmt.Errorf("sanitize svg: %w", err)
		}
	}

	id := "mem_" + ids.New()
	key := fmt.Sprintf("%s/%s.%s", vault.ID, id, result.Format)
	if _, err := s.blobs.Put(ctx, s.blobs.MediaBucket(), key, bytes.NewReader(data), int64(len(data)), result.MIME); err != nil {
		return models.Memory{}, err
	}

	memory := models.Memory{
		ID:              id,
		VaultID:         vault.ID,
		Title:           input.Title,
		Description:     input.Description,
		MediaURL:        s.blobs.PublicURL(s.blobs.MediaBucket(), key),
		MediaType:       result.Kind,
		DurationSeconds: input.DurationSeconds,
		Bucket:          s.blobs.MediaBucket(),
		ObjectKey:       key,
		SizeBytes:       int64(len(data)),
		Signature:       security.SignResource(s.sigSecret, id, key),
		Tags:            input.Tags,
		CreatedBy:       actor.User.ID,
		CreatedByName:   actor.User.DisplayName,
	}
	approval.StatusOnCreate(&memory, vault.RequireApproval, vault.IsAdmin(actor.User.ID), time.Now().UTC())

	if err := s.memories.Create(ctx, memory); err != nil {
		// Orphaned objects are swept by the worker; removing here keeps the
		// common failure path clean.
		if rmErr := s.blobs.Remove(ctx, memory.Bucket, memory.ObjectKey); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("key", memory.ObjectKey).Msg("failed to remove orphaned upload")
		}
		return models.Memory{}, err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypeMemoryUploaded,
		VaultID:   vault.ID,
		MemoryID:  memory.ID,
		ActorID:   actor.User.ID,
		ActorName: actor.User.DisplayName,
	})
	return s.memories.GetByID(ctx, memory.ID)
}

// ListVaultMemories returns the memories the viewer may see. Moderators see
// everything and may filter by status; regular members see approved content
// only; their own rejected uploads are served by RejectedMemories instead of
// the main grid.
func (s *MemoryService) ListVaultMemories(ctx context.Context, actor Actor, vaultID string, status *models.ApprovalStatus) ([]models.Memory, error) {
	vault, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if !vault.IsMember(actor.User.ID) && !actor.Can(rbac.PermAdminAccess) {
		return nil, ErrForbidden
	}

	canModerate := s.canModerate(actor, vault)
	if status != nil && !canModerate {
		return nil, ErrForbidden
	}

	memories, err := s.memories.ListByVault(ctx, vaultID, status)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Memory, 0, len(memories))
	for _, m := range memories {
		if approval.Visible(m, canModerate) {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

// RejectedMemories returns the caller's own rejected uploads in a vault,
// with rejection reasons, so they can revise and resubmit.
func (s *MemoryService) RejectedMemories(ctx context.Context, actor Actor, vaultID string) ([]models.Memory, error) {
	vault, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if !vault.IsMember(actor.User.ID) {
		return nil, ErrNotVaultMember
	}
	return s.memories.ListRejectedForUser(ctx, vaultID, actor.User.ID)
}

func (s *MemoryService) GetMemory(ctx context.Context, actor Actor, memoryID string) (models.Memory, error) {
	memory, err := s.memories.GetByID(ctx, memoryID)
	if err != nil {
		return models.Memory{}, err
	}
	vault, err := s.vaults.GetByID(ctx, memory.VaultID)
	if err != nil {
		return models.Memory{}, err
	}
	if !vault.IsMember(actor.User.ID) && !actor.Can(rbac.PermAdminAccess) {
		return models.Memory{}, ErrForbidden
	}
	// Creators may always open their own upload, whatever its status.
	if memory.CreatedBy != actor.User.ID && !approval.Visible(memory, s.canModerate(actor, vault)) {
		return models.Memory{}, repository.ErrMemoryNotFound
	}
	return memory, nil
}

// Approve moves a pending memory to approved, stamping the approver. A
// concurrent resolution surfaces as ErrInvalidTransition, same as a stale
// client retry.
func (s *MemoryService) Approve(ctx context.Context, actor Actor, memoryID string) (models.Memory, error) {
	memory, _, err := s.loadForModeration(ctx, actor, memoryID)
	if err != nil {
		return models.Memory{}, err
	}

	now := time.Now().UTC()
	if err := approval.Approve(&memory, approval.Approver{ID: actor.User.ID, Name: actor.User.DisplayName}, now); err != nil {
		return models.Memory{}, err
	}
	if err := s.memories.MarkApproved(ctx, memory.ID, actor.User.ID, actor.User.DisplayName, now); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return models.Memory{}, approval.ErrInvalidTransition
		}
		return models.Memory{}, err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypeMemoryApproved,
		VaultID:   memory.VaultID,
		MemoryID:  memory.ID,
		ActorID:   actor.User.ID,
		ActorName: actor.User.DisplayName,
	})
	return s.memories.GetByID(ctx, memory.ID)
}

// Reject moves a pending memory to rejected with a reason for the uploader.
func (s *MemoryService) Reject(ctx context.Context, actor Actor, memoryID, reason string) (models.Memory, error) {
	memory, _, err := s.loadForModeration(ctx, actor, memoryID)
	if err != nil {
		return models.Memory{}, err
	}

	if err := approval.Reject(&memory, reason); err != nil {
		return models.Memory{}, err
	}
	if err := s.memories.MarkRejected(ctx, memory.ID, *memory.RejectionReason); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return models.Memory{}, approval.ErrInvalidTransition
		}
		return models.Memory{}, err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypeMemoryRejected,
		VaultID:   memory.VaultID,
		MemoryID:  memory.ID,
		ActorID:   actor.User.ID,
		ActorName: actor.User.DisplayName,
	})
	return s.memories.GetByID(ctx, memory.ID)
}

// Resubmit returns a rejected memory to the approval queue. Only the
// original uploader may resubmit.
func (s *MemoryService) Resubmit(ctx context.Context, actor Actor, memoryID string) (models.Memory, error) {
	memory, err := s.memories.GetByID(ctx, memoryID)
	if err != nil {
		return models.Memory{}, err
	}

	if err := approval.Resubmit(&memory, actor.User.ID); err != nil {
		return models.Memory{}, err
	}
	if err := s.memories.MarkResubmitted(ctx, memory.ID, actor.User.ID); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return models.Memory{}, approval.ErrInvalidTransition
		}
		return models.Memory{}, err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypeMemoryUploaded,
		VaultID:   memory.VaultID,
		MemoryID:  memory.ID,
		ActorID:   actor.User.ID,
		ActorName: actor.User.DisplayName,
	})
	return s.memories.GetByID(ctx, memory.ID)
}

type MemoryPatch struct {
	Title       *string
	Description *string
	Tags        []string
}

func (s *MemoryService) UpdateDetails(ctx context.Context, actor Actor, memoryID string, patch MemoryPatch) (models.Memory, error) {
	memory, err := s.memories.GetByID(ctx, memoryID)
	if err != nil {
		return models.Memory{}, err
	}
	vault, err := s.vaults.GetByID(ctx, memory.VaultID)
	if err != nil {
		return models.Memory{}, err
	}
	if memory.CreatedBy != actor.User.ID && !vault.IsAdmin(actor.User.ID) && !actor.Can(rbac.PermMemoryUpdate) {
		return models.Memory{}, ErrForbidden
	}

	title := memory.Title
	if patch.Title != nil {
		title = *patch.Title
	}
	description := memory.Description
	if patch.Description != nil {
		description = *patch.Description
	}
	tags := memory.Tags
	if patch.Tags != nil {
		tags = patch.Tags
	}

	if err := s.memories.UpdateDetails(ctx, memoryID, title, description, tags); err != nil {
		return models.Memory{}, err
	}
	return s.memories.GetByID(ctx, memoryID)
}

// Delete removes a memory, its comments, and schedules the stored media for
// cleanup. Allowed for the uploader, vault admins, and global moderators.
func (s *MemoryService) Delete(ctx context.Context, actor Actor, memoryID string) error {
	memory, err := s.memories.GetByID(ctx, memoryID)
	if err != nil {
		return err
	}
	vault, err := s.vaults.GetByID(ctx, memory.VaultID)
	if err != nil {
		return err
	}
	if memory.CreatedBy != actor.User.ID && !vault.IsAdmin(actor.User.ID) && !actor.Can(rbac.PermMemoryDelete) {
		return ErrForbidden
	}

	if err := s.comments.DeleteByMemory(ctx, memoryID); err != nil {
		return err
	}
	if err := s.memories.Delete(ctx, memoryID); err != nil {
		return err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypeMediaCleanup,
		VaultID:   memory.VaultID,
		MemoryID:  memory.ID,
		ActorID:   actor.User.ID,
		Bucket:    memory.Bucket,
		ObjectKey: memory.ObjectKey,
	})
	s.events.Publish(ctx, events.Event{
		Type:      events.TypeMemoryDeleted,
		VaultID:   memory.VaultID,
		MemoryID:  memory.ID,
		ActorID:   actor.User.ID,
		ActorName: actor.User.DisplayName,
	})
	return nil
}

// AddComment attaches a comment to a memory the caller can see.
func (s *MemoryService) AddComment(ctx context.Context, actor Actor, memoryID, text string) (models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return models.Comment{}, fmt.Errorf("comment text required")
	}
	memory, err := s.GetMemory(ctx, actor, memoryID)
	if err != nil {
		return models.Comment{}, err
	}

	comment := models.Comment{
		ID:       "cmt_" + ids.New(),
		MemoryID: memory.ID,
		UserID:   actor.User.ID,
		UserName: actor.User.DisplayName,
		Text:     strings.TrimSpace(text),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

func (s *MemoryService) ListComments(ctx context.Context, actor Actor, memoryID string) ([]models.Comment, error) {
	if _, err := s.GetMemory(ctx, actor, memoryID); err != nil {
		return nil, err
	}
	return s.comments.ListByMemory(ctx, memoryID)
}

// PendingCounts reports approval queue sizes. Moderators and admins only.
func (s *MemoryService) PendingCounts(ctx context.Context, actor Actor) (map[models.ApprovalStatus]int, error) {
	if !actor.Can(rbac.PermMemoryApprove) && !actor.Can(rbac.PermAdminAccess) {
		return nil, ErrForbidden
	}
	return s.memories.CountByStatus(ctx)
}

func (s *MemoryService) canModerate(actor Actor, vault models.Vault) bool {
	return vault.IsAdmin(actor.User.ID) || actor.Can(rbac.PermMemoryApprove)
}

// loadForModeration fetches a memory and checks the caller may resolve its
// approval status.
func (s *MemoryService) loadForModeration(ctx context.Context, actor Actor, memoryID string) (models.Memory, models.Vault, error) {
	memory, err := s.memories.GetByID(ctx, memoryID)
	if err != nil {
		return models.Memory{}, models.Vault{}, err
	}
	vault, err := s.vaults.GetByID(ctx, memory.VaultID)
	if err != nil {
		return models.Memory{}, models.Vault{}, err
	}
	if !s.canModerate(actor, vault) {
		return models.Memory{}, models.Vault{}, ErrForbidden
	}
	return memory, vault, nil
}
