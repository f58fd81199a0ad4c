// Package approval implements the moderation lifecycle of a memory:
// pending -> approved | rejected, rejected -> pending (resubmit by creator).
// Memories uploaded into a vault that does not require approval, or uploaded
// by a vault admin, start out approved.
package approval

import (
	"errors"
	"strings"
	"time"

	"legacyvault/internal/models"
)

var (
	// ErrInvalidTransition is returned when a transition is applied to a
	// memory that is not in the state the transition starts from.
	ErrInvalidTransition = errors.New("invalid approval transition")

	// ErrReasonRequired is returned when rejecting without a reason.
	ErrReasonRequired = errors.New("rejection reason required")

	// ErrNotCreator is returned when someone other than the memory's
	// creator attempts to resubmit it.
	ErrNotCreator = errors.New("only the creator may resubmit")
)

// Approver identifies who approved or rejected a memory.
type Approver struct {
	ID   string
	Name string
}

// StatusOnCreate decides the initial approval status of an upload. Uploads
// by a vault admin into an approval-required vault are self-approved and
// carry an approver stamp.
func StatusOnCreate(m *models.Memory, requireApproval, uploaderIsVaultAdmin bool, now time.Time) {
	if requireApproval && !uploaderIsVaultAdmin {
		m.ApprovalStatus = models.ApprovalStatusPending
		return
	}
	m.ApprovalStatus = models.ApprovalStatusApproved
	if requireApproval && uploaderIsVaultAdmin {
		stamp(m, Approver{ID: m.CreatedBy, Name: m.CreatedByName}, now)
	}
}

// Approve moves a pending memory to approved and stamps the approver.
func Approve(m *models.Memory, by Approver, now time.Time) error {
	if m.ApprovalStatus != models.ApprovalStatusPending {
		return ErrInvalidTransition
	}
	m.ApprovalStatus = models.ApprovalStatusApproved
	m.RejectionReason = nil
	stamp(m, by, now)
	return nil
}

// Reject moves a pending memory to rejected with a non-empty reason and
// clears any approver stamp.
func Reject(m *models.Memory, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	if m.ApprovalStatus != models.ApprovalStatusPending {
		return ErrInvalidTransition
	}
	m.ApprovalStatus = models.ApprovalStatusRejected
	m.RejectionReason = &reason
	m.ApprovedBy = nil
	m.ApprovedByName = nil
	m.ApprovedAt = nil
	return nil
}

// Resubmit moves a rejected memory back to pending. Only the original
// creator may resubmit; the rejection reason is cleared.
func Resubmit(m *models.Memory, callerID string) error {
	if m.CreatedBy != callerID {
		return ErrNotCreator
	}
	if m.ApprovalStatus != models.ApprovalStatusRejected {
		return ErrInvalidTransition
	}
	m.ApprovalStatus = models.ApprovalStatusPending
	m.RejectionReason = nil
	return nil
}

// Visible reports whether m belongs in the main vault listing. Moderators
// see every state; everyone else sees approved content only. A member's own
// rejected uploads are surfaced through the dedicated rejected view, not
// here.
func Visible(m models.Memory, canModerate bool) bool {
	if canModerate {
		return true
	}
	return m.ApprovalStatus == models.ApprovalStatusApproved
}

func stamp(m *models.Memory, by Approver, now time.Time) {
	id, name := by.ID, by.Name
	m.ApprovedBy = &id
	m.ApprovedByName = &name
	m.ApprovedAt = &now
}
