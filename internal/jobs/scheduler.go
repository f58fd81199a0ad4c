package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"legacyvault/internal/models"
	"legacyvault/internal/repository"
)

// StatsCacheKey holds the latest approval queue snapshot as JSON.
const StatsCacheKey = "stats:memories"

// ParseStatsSnapshot decodes a snapshot written by the hourly stats job.
func ParseStatsSnapshot(payload []byte) (map[models.ApprovalStatus]int, error) {
	var counts map[models.ApprovalStatus]int
	if err := json.Unmarshal(payload, &counts); err != nil {
		return nil, fmt.Errorf("parse stats snapshot: %w", err)
	}
	return counts, nil
}

// Scheduler runs the API's periodic maintenance: a nightly purge of expired
// sessions and an hourly approval stats snapshot into Redis.
type Scheduler struct {
	cron     *cron.Cron
	cache    *redis.Client
	sessions *repository.SessionRepository
	memories *repository.MemoryRepository
	log      zerolog.Logger
}

func NewScheduler(cache *redis.Client, sessions *repository.SessionRepository, memories *repository.MemoryRepository, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		cache:    cache,
		sessions: sessions,
		memories: memories,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.purgeSessions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.snapshotStats); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		s.cron.Stop()
		cancel()
	}()
	return cancel
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("session purge failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("expired sessions removed")
	}
}

func (s *Scheduler) snapshotStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	counts, err := s.memories.CountByStatus(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("stats snapshot failed")
		return
	}

	payload, err := json.Marshal(counts)
	if err != nil {
		s.log.Error().Err(err).Msg("stats snapshot marshal failed")
		return
	}

	if err := s.cache.Set(ctx, StatsCacheKey, payload, 2*time.Hour).Err(); err != nil {
		s.log.Error().Err(err).Msg("stats snapshot write failed")
	}
}
