package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legacyvault/internal/models"
)

func newMemory(status models.ApprovalStatus) *models.Memory {
	return &models.Memory{
		ID:             "memory_1",
		VaultID:        "vault_1",
		CreatedBy:      "user_1",
		CreatedByName:  "Sarah Johnson",
		ApprovalStatus: status,
	}
}

func TestStatusOnCreate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name            string
		requireApproval bool
		isVaultAdmin    bool
		wantStatus      models.ApprovalStatus
		wantStamp       bool
	}{
		{"open vault, member", false, false, models.ApprovalStatusApproved, false},
		{"open vault, admin", false, true, models.ApprovalStatusApproved, false},
		{"moderated vault, member", true, false, models.ApprovalStatusPending, false},
		{"moderated vault, admin", true, true, models.ApprovalStatusApproved, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemory("")
			StatusOnCreate(m, tt.requireApproval, tt.isVaultAdmin, now)
			assert.Equal(t, tt.wantStatus, m.ApprovalStatus)
			if tt.wantStamp {
				require.NotNil(t, m.ApprovedBy)
				assert.Equal(t, "user_1", *m.ApprovedBy)
				assert.Equal(t, "Sarah Johnson", *m.ApprovedByName)
				require.NotNil(t, m.ApprovedAt)
				assert.Equal(t, now, *m.ApprovedAt)
			} else {
				assert.Nil(t, m.ApprovedBy)
			}
		})
	}
}

func TestApprove(t *testing.T) {
	now := time.Now()
	m := newMemory(models.ApprovalStatusPending)

	require.NoError(t, Approve(m, Approver{ID: "user_9", Name: "Mod"}, now))
	assert.Equal(t, models.ApprovalStatusApproved, m.ApprovalStatus)
	require.NotNil(t, m.ApprovedBy)
	assert.Equal(t, "user_9", *m.ApprovedBy)
}

func TestApproveGuardsState(t *testing.T) {
	for _, status := range []models.ApprovalStatus{
		models.ApprovalStatusApproved,
		models.ApprovalStatusRejected,
	} {
		m := newMemory(status)
		err := Approve(m, Approver{ID: "user_9"}, time.Now())
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, status, m.ApprovalStatus, "state must be unchanged on refusal")
	}
}

func TestReject(t *testing.T) {
	m := newMemory(models.ApprovalStatusPending)
	approver := "user_9"
	m.ApprovedBy = &approver

	require.NoError(t, Reject(m, "blurry"))
	assert.Equal(t, models.ApprovalStatusRejected, m.ApprovalStatus)
	require.NotNil(t, m.RejectionReason)
	assert.Equal(t, "blurry", *m.RejectionReason)
	assert.Nil(t, m.ApprovedBy, "rejection must clear any prior approver stamp")
	assert.Nil(t, m.ApprovedAt)
}

func TestRejectRequiresReason(t *testing.T) {
	m := newMemory(models.ApprovalStatusPending)

	assert.ErrorIs(t, Reject(m, ""), ErrReasonRequired)
	assert.ErrorIs(t, Reject(m, "   "), ErrReasonRequired)
	assert.Equal(t, models.ApprovalStatusPending, m.ApprovalStatus)
}

func TestRejectGuardsState(t *testing.T) {
	m := newMemory(models.ApprovalStatusApproved)
	assert.ErrorIs(t, Reject(m, "blurry"), ErrInvalidTransition)
	assert.Equal(t, models.ApprovalStatusApproved, m.ApprovalStatus)
}

func TestResubmit(t *testing.T) {
	m := newMemory(models.ApprovalStatusRejected)
	reason := "blurry"
	m.RejectionReason = &reason

	require.NoError(t, Resubmit(m, "user_1"))
	assert.Equal(t, models.ApprovalStatusPending, m.ApprovalStatus)
	assert.Nil(t, m.RejectionReason)
}

func TestResubmitOnlyByCreator(t *testing.T) {
	m := newMemory(models.ApprovalStatusRejected)
	assert.ErrorIs(t, Resubmit(m, "user_2"), ErrNotCreator)
	assert.Equal(t, models.ApprovalStatusRejected, m.ApprovalStatus)
}

func TestResubmitGuardsState(t *testing.T) {
	m := newMemory(models.ApprovalStatusApproved)
	assert.ErrorIs(t, Resubmit(m, "user_1"), ErrInvalidTransition)
}

func TestVisible(t *testing.T) {
	ownRejected := *newMemory(models.ApprovalStatusRejected)
	ownPending := *newMemory(models.ApprovalStatusPending)
	rejected := models.Memory{CreatedBy: "user_2", ApprovalStatus: models.ApprovalStatusRejected}
	pending := models.Memory{CreatedBy: "user_2", ApprovalStatus: models.ApprovalStatusPending}
	approved := models.Memory{CreatedBy: "user_2", ApprovalStatus: models.ApprovalStatusApproved}

	// The main listing shows plain members approved content only. Even their
	// own pending and rejected uploads stay out; the rejected view carries
	// those.
	assert.True(t, Visible(approved, false))
	assert.False(t, Visible(ownRejected, false))
	assert.False(t, Visible(ownPending, false))
	assert.False(t, Visible(rejected, false))
	assert.False(t, Visible(pending, false))

	// Moderators see every state.
	for _, m := range []models.Memory{ownRejected, ownPending, rejected, pending, approved} {
		assert.True(t, Visible(m, true))
	}
}
