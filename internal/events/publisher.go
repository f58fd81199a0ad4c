// Package events publishes vault activity onto a Redis stream. A worker
// consumes the stream through a consumer group and fans entries out to
// per-vault pub/sub channels, so delivery to the stream is at-least-once
// and ordered per stream.
package events

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TypeMemoryUploaded = "memory.uploaded"
	TypeMemoryApproved = "memory.approved"
	TypeMemoryRejected = "memory.rejected"
	TypeMemoryDeleted  = "memory.deleted"
	TypeVaultUpdated   = "vault.updated"
	TypeVaultDeleted   = "vault.deleted"
	TypeMemberJoined   = "member.joined"
	TypeMemberLeft     = "member.left"
	TypeMediaCleanup   = "media.cleanup"
)

// Event is one entry on the vault activity stream. Bucket and ObjectKey are
// set on deletion events so the worker can remove the stored media.
type Event struct {
	Type      string `json:"type"`
	VaultID   string `json:"vaultId"`
	MemoryID  string `json:"memoryId,omitempty"`
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	ObjectKey string `json:"objectKey,omitempty"`
	At        string `json:"at"`
}

type Publisher struct {
	client *redis.Client
	stream string
	log    zerolog.Logger
}

func NewPublisher(client *redis.Client, stream string, log zerolog.Logger) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		log:    log,
	}
}

// Publish appends the event to the stream. Failures are logged, not
// propagated: event delivery is best-effort relative to the mutation that
// produced it, which has already committed.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil || p.client == nil {
		return
	}
	if event.At == "" {
		event.At = time.Now().UTC().Format(time.RFC3339Nano)
	}

	values := map[string]any{
		"type":    event.Type,
		"vaultId": event.VaultID,
		"actorId": event.ActorID,
		"at":      event.At,
	}
	if event.MemoryID != "" {
		values["memoryId"] = event.MemoryID
	}
	if event.ActorName != "" {
		values["actorName"] = event.ActorName
	}
	if event.Bucket != "" {
		values["bucket"] = event.Bucket
	}
	if event.ObjectKey != "" {
		values["objectKey"] = event.ObjectKey
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		p.log.Error().Err(err).Str("type", event.Type).Str("vault_id", event.VaultID).Msg("publish event failed")
	}
}
