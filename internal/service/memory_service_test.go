package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legacyvault/internal/approval"
	"legacyvault/internal/events"
	"legacyvault/internal/models"
	"legacyvault/internal/rbac"
	"legacyvault/internal/repository"
)

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)

func testActor(id, name string, perms ...models.Permission) Actor {
	return Actor{
		User:  models.User{ID: id, DisplayName: name, Status: models.UserStatusActive},
		Perms: rbac.NewEvaluator([]models.Role{{Permissions: perms}}),
	}
}

type memoryFixture struct {
	svc      *MemoryService
	memories *fakeMemoryStore
	comments *fakeCommentStore
	vaults   *fakeVaultStore
	blobs    *fakeBlobStore
	events   *fakePublisher
}

func newMemoryFixture(t *testing.T) *memoryFixture {
	t.Helper()
	f := &memoryFixture{
		memories: newFakeMemoryStore(),
		comments: newFakeCommentStore(),
		vaults:   newFakeVaultStore(),
		blobs:    newFakeBlobStore(),
		events:   &fakePublisher{},
	}
	f.svc = NewMemoryService(f.memories, f.comments, f.vaults, f.blobs, f.events, 1<<20, "test-sign-secret", zerolog.Nop())
	return f
}

func (f *memoryFixture) seedVault(t *testing.T, id string, requireApproval bool, members ...models.VaultMember) {
	t.Helper()
	require.NotEmpty(t, members)
	err := f.vaults.Create(context.Background(), models.Vault{
		ID:              id,
		Name:            "Family",
		RequireApproval: requireApproval,
		CreatedBy:       members[0].UserID,
	}, members[0])
	require.NoError(t, err)
	for _, m := range members[1:] {
		m.VaultID = id
		require.NoError(t, f.vaults.AddMember(context.Background(), m))
	}
}

func member(vaultID, userID string, role models.VaultRole) models.VaultMember {
	return models.VaultMember{VaultID: vaultID, UserID: userID, Role: role}
}

func TestUploadInitialStatus(t *testing.T) {
	tests := []struct {
		name            string
		requireApproval bool
		uploaderRole    models.VaultRole
		wantStatus      models.ApprovalStatus
		wantStamped     bool
	}{
		{"open vault", false, models.VaultRoleMember, models.ApprovalStatusApproved, false},
		{"gated vault member", true, models.VaultRoleMember, models.ApprovalStatusPending, false},
		{"gated vault admin", true, models.VaultRoleAdmin, models.ApprovalStatusApproved, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMemoryFixture(t)
			f.seedVault(t, "v1", tt.requireApproval,
				member("v1", "owner", models.VaultRoleAdmin),
				member("v1", "uploader", tt.uploaderRole),
			)

			actor := testActor("uploader", "Uploader", rbac.PermMemoryCreate)
			got, err := f.svc.Upload(context.Background(), actor, UploadInput{
				VaultID:      "v1",
				Title:        "Beach day",
				DeclaredMIME: "image/png",
				Size:         int64(len(pngBytes)),
				Body:         bytes.NewReader(pngBytes),
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, got.ApprovalStatus)
			assert.Equal(t, models.MediaTypeImage, got.MediaType)
			if tt.wantStamped {
				require.NotNil(t, got.ApprovedBy)
				assert.Equal(t, "uploader", *got.ApprovedBy)
			} else {
				assert.Nil(t, got.ApprovedBy)
			}
		})
	}
}

func TestUploadRejectsNonMember(t *testing.T) {
	f := newMemoryFixture(t)
	f.seedVault(t, "v1", false, member("v1", "owner", models.VaultRoleAdmin))

	_, err := f.svc.Upload(context.Background(), testActor("stranger", "Stranger"), UploadInput{
		VaultID: "v1",
		Title:   "Nope",
		Body:    bytes.NewReader(pngBytes),
	})
	assert.ErrorIs(t, err, ErrNotVaultMember)
}

func TestUploadRejectsMismatchedType(t *testing.T) {
	f := newMemoryFixture(t)
	f.seedVault(t, "v1", false, member("v1", "owner", models.VaultRoleAdmin))

	_, err := f.svc.Upload(context.Background(), testActor("owner", "Owner"), UploadInput{
		VaultID:      "v1",
		Title:        "Beach day",
		DeclaredMIME: "audio/mpeg",
		Body:         bytes.NewReader(pngBytes),
	})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f := newMemoryFixture(t)
	f.seedVault(t, "v1", false, member("v1", "owner", models.VaultRoleAdmin))

	_, err := f.svc.Upload(context.Background(), testActor("owner", "Owner"), UploadInput{
		VaultID: "v1",
		Title:   "Huge",
		Size:    2 << 20,
		Body:    bytes.NewReader(pngBytes),
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func seedMemory(t *testing.T, f *memoryFixture, id, vaultID, createdBy string, status models.ApprovalStatus) {
	t.Helper()
	m := models.Memory{
		ID:             id,
		VaultID:        vaultID,
		Title:          id,
		MediaType:      models.MediaTypeImage,
		Bucket:         f.blobs.MediaBucket(),
		ObjectKey:      vaultID + "/" + id + ".png",
		ApprovalStatus: status,
		CreatedBy:      createdBy,
	}
	if status == models.ApprovalStatusRejected {
		reason := "blurry"
		m.RejectionReason = &reason
	}
	require.NoError(t, f.memories.Create(context.Background(), m))
}

func TestListVaultMemoriesVisibility(t *testing.T) {
	f := newMemoryFixture(t)
	f.seedVault(t, "v1", true,
		member("v1", "admin", models.VaultRoleAdmin),
		member("v1", "alice", models.VaultRoleMember),
		member("v1", "bob", models.VaultRoleMember),
	)
	seedMemory(t, f, "m-approved", "v1", "alice", models.ApprovalStatusApproved)
	seedMemory(t, f, "m-alice-pending", "v1", "alice", models.ApprovalStatusPending)
	seedMemory(t, f, "m-bob-pending", "v1", "bob", models.ApprovalStatusPending)
	seedMemory(t, f, "m-alice-rejected", "v1", "alice", models.ApprovalStatusRejected)

	ctx := context.Background()

	// A member sees approved content only. Their own pending and rejected
	// uploads must not leak into the main listing.
	got, err := f.svc.ListVaultMemories(ctx, testActor("alice", "Alice"), "v1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"m-approved"}, memoryIDs(got))

	// The rejected one is served by the dedicated view instead.
	rejected, err := f.svc.RejectedMemories(ctx, testActor("alice", "Alice"), "v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m-alice-rejected"}, memoryIDs(rejected))

	// A vault admin sees everything.
	got, err = f.svc.ListVaultMemories(ctx, testActor("admin", "Admin"), "v1", nil)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	// A global moderator who is a plain member also sees everything.
	got, err = f.svc.ListVaultMemories(ctx, testActor("bob", "Bob", rbac.PermMemoryApprove), "v1", nil)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestListVaultMemoriesStatusFilterModeratorsOnly(t *testing.T) {
	f := newMemoryFixture(t)
	f.seedVault(t, "v1", true,
		member("v1", "admin", models.VaultRoleAdmin),
		member("v1", "alice", models.VaultRoleMember),
	)
	seedMemory(t, f, "m-pending", "v1", "alice", models.ApprovalStatusPending)

	pending := models.ApprovalStatusPending
	_, err := f.svc.ListVaultMemories(context.Background(), testActor("alice", "Alice"), "v1", &pending)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.svc.ListVaultMemories(context.Background(), testActor("admin", "Admin"), "v1", &pending)
	require.NoError(t, err)
	assert.Equal(t, []string{"m-pending"}, memoryIDs(got))
}

func memoryIDs(memories []models.Memory) []string {
	out := make([]string, 0, len(memories))
	for _, m := range memories {
		out = append(out, m.ID)
	}
	return out
}

func TestApproveStampsApprover(t *testing.T) {
	f := newMemoryFixture(t)
	f.seedVault(t, "v1", true,
		member("v1", "admin", models.VaultRoleAdmin),
		member("v1", "alice", models.VaultRoleMember),
	)
	seedMemory(t, f, "m1", "v1", "alice", models.ApprovalStatusPending)

	got, err := f.svc.Approve(context.Background(), testActor("admin", "Admin"), "m1")
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusApproved, got.ApprovalStatus)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, "admin", *got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)
	assert.Len(t, f.events.byType(events.TypeMemoryApproved), 1)
}

func TestApproveRequiresModerationRights(t *testing.T) {
	f := newMemoryFixture(t)
	f.seedVault(t, "v1", true,
		member("v1", "admin", models.VaultRoleAdmin),
		member("v1", "alice", models.VaultRoleMember),
	)
	seedMemory(t, f, "m1", "v1", "alice", models.ApprovalStatusPending)

	_, err := f.svc.Approve(context.Background(), testActor("alice", "Alice"), "m1")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestApproveAlreadyResolved(t *testing.T) {
	f := newMemoryFixture(t)
	f.seedVault(t, "v1", true, member("v1", "admin", models.VaultRoleAdmin))
	seedMemory(t, f, "m1", "v1", "admin", models.ApprovalStatusRejected)

	_, err := f.svc.Approve(context.Background(), testActor("admin", "Admin"), "m1")
	assert.ErrorIs(t, err, approval.ErrInvalidTransition)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newMemoryFixture(t)
	f.seedVault(t, "v1", true,
		member("v1", "admin", models.VaultRoleAdmin),
		member("v1", "alice", models.VaultRoleMember),
	)
	seedMemory(t, f, "m1", "v1", "alice", models.ApprovalStatusPending)
	ctx := context.Background()

	_, err := f.svc.Reject(ctx, testActor("admin", "Admin"), "m1", "   ")
	assert.ErrorIs(t, err, approval.ErrReasonRequired)

	got, err := f.svc.Reject(ctx, testActor("admin", "Admin"), "m1", "too blurry")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusRejected, got.ApprovalStatus)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "too blurry", *got.RejectionReason)
}

func TestResubmitCreatorOnly(t *testing.T) {
	f := newMemoryFixture(t)
	f.seedVault(t, "v1", true,
		member("v1", "admin", models.VaultRoleAdmin),
		member("v1", "alice", models.VaultRoleMember),
	)
	seedMemory(t, f, "m1", "v1", "alice", models.ApprovalStatusRejected)
	ctx := context.Background()

	_, err := f.svc.Resubmit(ctx, testActor("admin", "Admin"), "m1")
	assert.ErrorIs(t, err, approval.ErrNotCreator)

	got, err := f.svc.Resubmit(ctx, testActor("alice", "Alice"), "m1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, got.ApprovalStatus)
	assert.Nil(t, got.RejectionReason)
}

func TestDeleteMemoryEmitsCleanup(t *testing.T) {
	f := newMemoryFixture(t)
	f.seedVault(t, "v1", false,
		member("v1", "admin", models.VaultRoleAdmin),
		member("v1", "alice", models.VaultRoleMember),
	)
	seedMemory(t, f, "m1", "v1", "alice", models.ApprovalStatusApproved)

	// A plain member cannot delete someone else's memory.
	f2Actor := testActor("bob", "Bob")
	require.NoError(t, f.vaults.AddMember(context.Background(), member("v1", "bob", models.VaultRoleMember)))
	err := f.svc.Delete(context.Background(), f2Actor, "m1")
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.Delete(context.Background(), testActor("alice", "Alice"), "m1"))

	_, err = f.memories.GetByID(context.Background(), "m1")
	assert.ErrorIs(t, err, repository.ErrMemoryNotFound)

	cleanups := f.events.byType(events.TypeMediaCleanup)
	require.Len(t, cleanups, 1)
	assert.Equal(t, "v1/m1.png", cleanups[0].ObjectKey)
	assert.Len(t, f.events.byType(events.TypeMemoryDeleted), 1)
}

func TestCommentsFollowVisibility(t *testing.T) {
	f := newMemoryFixture(t)
	f.seedVault(t, "v1", true,
		member("v1", "admin", models.VaultRoleAdmin),
		member("v1", "alice", models.VaultRoleMember),
		member("v1", "bob", models.VaultRoleMember),
	)
	seedMemory(t, f, "m1", "v1", "alice", models.ApprovalStatusPending)
	ctx := context.Background()

	// Bob cannot comment on Alice's pending upload.
	_, err := f.svc.AddComment(ctx, testActor("bob", "Bob"), "m1", "nice")
	assert.ErrorIs(t, err, repository.ErrMemoryNotFound)

	comment, err := f.svc.AddComment(ctx, testActor("alice", "Alice"), "m1", "caption idea")
	require.NoError(t, err)
	assert.Equal(t, "caption idea", comment.Text)

	comments, err := f.svc.ListComments(ctx, testActor("alice", "Alice"), "m1")
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}
