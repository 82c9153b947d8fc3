package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/speakeval/speakeval-backend/internal/config"
	"github.com/speakeval/speakeval-backend/internal/model"
	"github.com/speakeval/speakeval-backend/internal/repository"
)

const (
	// BatchSize caps how many queued events are written per flush.
	BatchSize = 50
	// BatchTimeout bounds how long a partial batch may sit in memory.
	BatchTimeout = 2 * time.Second
	// PollTimeout must be >= 1s to satisfy Redis BLPOP.
	PollTimeout = 1 * time.Second
)

// ProctoringWorker drains the proctoring event queue into Postgres in
// batches, so face-check requests never wait on the database.
type ProctoringWorker struct {
	events *repository.ProctoringRepository
	rdb    *redis.Client
	log    zerolog.Logger
}

// NewProctoringWorker creates a new ProctoringWorker.
func NewProctoringWorker(events *repository.ProctoringRepository, rdb *redis.Client, log zerolog.Logger) *ProctoringWorker {
	return &ProctoringWorker{
		events: events,
		rdb:    rdb,
		log:    log.With().Str("component", "proctoring_worker").Logger(),
	}
}

// Start runs the drain loop until ctx is cancelled, then flushes whatever is
// buffered.
func (w *ProctoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("proctoring worker started")

	buffer := make([]model.ProctoringEvent, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistProctoringQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Queue empty, loop back to check the flush timer.
				continue
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var event model.ProctoringEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			// Malformed JSON can never be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("discarding malformed event")
			continue
		}
		buffer = append(buffer, event)
	}
}

// flushSafe tries a bulk insert first, then falls back to row-by-row writes
// with requeue on failure.
func (w *ProctoringWorker) flushSafe(ctx context.Context, batch []model.ProctoringEvent) {
	err := w.events.BulkInsert(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("bulk insert failed, attempting row-by-row recovery")

	requeue := make([]model.ProctoringEvent, 0)
	for i := range batch {
		if err := w.events.Insert(ctx, &batch[i]); err != nil {
			w.log.Error().Err(err).Str("attempt_id", batch[i].AttemptID.String()).Msg("insert failed, requeueing")
			requeue = append(requeue, batch[i])
		}
	}
	if len(requeue) > 0 {
		w.requeue(ctx, requeue)
	}
}

func (w *ProctoringWorker) requeue(ctx context.Context, events []model.ProctoringEvent) {
	pipe := w.rdb.Pipeline()
	for i := range events {
		data, _ := json.Marshal(events[i])
		pipe.RPush(ctx, config.WorkerKey.PersistProctoringQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(events)).Msg("failed to requeue events, data lost")
		return
	}
	w.log.Info().Int("count", len(events)).Msg("requeued failed events")
	// Back off a little if the database is down hard.
	time.Sleep(2 * time.Second)
}

func (w *ProctoringWorker) shutdown(buffer []model.ProctoringEvent) {
	w.log.Info().Msg("proctoring worker stopping, flushing remaining buffer")

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(flushCtx, buffer)
	}
}
