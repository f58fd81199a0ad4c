package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"legacyvault/internal/events"
	"legacyvault/internal/storage"
)

// Processor handles entries from the vault event stream. Cleanup events
// remove the backing object from storage; everything with a vault id is
// fanned out to that vault's pub/sub channel so connected clients refresh.
type Processor struct {
	cache         *redis.Client
	store         *storage.ObjectStore
	channelPrefix string
	logger        zerolog.Logger
}

func NewProcessor(cache *redis.Client, store *storage.ObjectStore, channelPrefix string, logger zerolog.Logger) *Processor {
	return &Processor{
		cache:         cache,
		store:         store,
		channelPrefix: channelPrefix,
		logger:        logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var event events.Event
	if err := decodeEvent(msg.Values, &event); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	if event.Type == events.TypeMediaCleanup {
		if err := p.cleanupMedia(ctx, event); err != nil {
			return err
		}
	}

	return p.fanOut(ctx, event)
}

func decodeEvent(values map[string]interface{}, out *events.Event) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *Processor) cleanupMedia(ctx context.Context, event events.Event) error {
	if event.Bucket == "" || event.ObjectKey == "" {
		p.logger.Warn().Str("vault_id", event.VaultID).Msg("cleanup event without object reference")
		return nil
	}

	if err := p.store.Remove(ctx, event.Bucket, event.ObjectKey); err != nil {
		return fmt.Errorf("remove %s/%s: %w", event.Bucket, event.ObjectKey, err)
	}

	p.logger.Info().
		Str("bucket", event.Bucket).
		Str("object_key", event.ObjectKey).
		Msg("stored media removed")
	return nil
}

func (p *Processor) fanOut(ctx context.Context, event events.Event) error {
	if event.VaultID == "" {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := p.channelPrefix + event.VaultID
	if err := p.cache.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}
