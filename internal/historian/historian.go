// internal/historian/historian.go is the consumer that pops activity entries from the Redis queue
// and persists them in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/unodealer/internal/game"
	"github.com/jason-s-yu/unodealer/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// maxBacklogBatches bounds how many batches are retained while the sink keeps failing.
const maxBacklogBatches = 10

// Config tunes the consumer.
type Config struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	// PopTimeout is the BLPOP block time; it also bounds how late a cancellation is noticed.
	PopTimeout time.Duration
}

// Service moves activities from Redis to a durable sink.
type Service struct {
	rdb  *redis.Client
	sink game.ActivityLog
	cfg  Config
	log  *logrus.Entry

	batchMu sync.Mutex
	batch   []models.Activity
}

// New builds a Service. Zero config values fall back to 20 entries, 500ms and 1s.
func New(rdb *redis.Client, sink game.ActivityLog, cfg Config, log *logrus.Entry) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		rdb:   rdb,
		sink:  sink,
		cfg:   cfg,
		log:   log.WithField("queue", cfg.Queue),
		batch: make([]models.Activity, 0, cfg.BatchSize),
	}
}

// Run pops until ctx ends, flushing whenever the batch fills up or the flush delay passes.
// The remaining batch is flushed on the way out.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()
	s.log.Info("historian started")
	defer func() {
		s.flush(context.Background())
		s.log.Info("historian stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.flush(ctx)
		default:
			res, err := s.rdb.BLPop(ctx, s.cfg.PopTimeout, s.cfg.Queue).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue
				}
				s.log.WithError(err).Error("BLPOP failed")
				select {
				case <-ctx.Done():
				case <-time.After(s.cfg.PopTimeout):
				}
				continue
			}
			// res[0] is the queue name and res[1] the payload.
			if len(res) < 2 {
				continue
			}
			var act models.Activity
			if err := json.Unmarshal([]byte(res[1]), &act); err != nil {
				s.log.WithError(err).Warn("invalid activity record")
				continue
			}
			s.add(ctx, act)
		}
	}
}

func (s *Service) add(ctx context.Context, act models.Activity) {
	s.batchMu.Lock()
	s.batch = append(s.batch, act)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()
	if full {
		s.flush(ctx)
	}
}

// flush writes the batch in one call. A failed batch is kept for the next flush, up to a bound.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	if len(s.batch) == 0 {
		return
	}
	if err := s.sink.AppendActivities(ctx, s.batch...); err != nil {
		s.log.WithError(err).WithField("count", len(s.batch)).Error("failed to flush activities")
		if limit := maxBacklogBatches * s.cfg.BatchSize; len(s.batch) > limit {
			dropped := len(s.batch) - limit
			s.batch = append(s.batch[:0], s.batch[dropped:]...)
			s.log.WithField("dropped", dropped).Warn("activity backlog full, dropping oldest entries")
		}
		return
	}
	s.log.WithField("count", len(s.batch)).Debug("flushed activities")
	s.batch = s.batch[:0]
}

// Pending returns the number of entries waiting for the next flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
