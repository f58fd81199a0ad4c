package models

import "time"

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

type Memory struct {
	ID              string
	VaultID         string
	Title           string
	Description     string
	MediaURL        string
	MediaType       MediaType
	ThumbnailURL    *string
	DurationSeconds *int
	Bucket          string
	ObjectKey       string
	SizeBytes       int64
	Signature       []byte
	Tags            []string
	ApprovalStatus  ApprovalStatus
	ApprovedBy      *string
	ApprovedByName  *string
	ApprovedAt      *time.Time
	RejectionReason *string
	CreatedBy       string
	CreatedByName   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Comment struct {
	ID        string
	MemoryID  string
	UserID    string
	UserName  string
	Text      string
	CreatedAt time.Time
}
