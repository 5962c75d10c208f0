package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/lesson-orchestrator/internal/config"
	"github.com/stemsi/lesson-orchestrator/internal/session"
)

const (
	// PollTimeout must be >= 1s to satisfy Redis.
	PollTimeout    = 1 * time.Second
	enqueueTimeout = 500 * time.Millisecond
)

// TransitionPublisher relays session phase transitions to the per-session
// monitor channel. OnTransition only enqueues; Start pops and publishes.
type TransitionPublisher struct {
	rdb   *redis.Client
	queue string
	log   zerolog.Logger
}

// NewTransitionPublisher creates a new TransitionPublisher.
func NewTransitionPublisher(rdb *redis.Client, log zerolog.Logger) *TransitionPublisher {
	return &TransitionPublisher{
		rdb:   rdb,
		queue: config.WorkerKey.PublishTransitionsQueue,
		log:   log.With().Str("component", "transition_publisher").Logger(),
	}
}

// OnTransition implements session.Observer. It runs on the controller
// goroutine, so the enqueue is bounded by a short timeout.
func (p *TransitionPublisher) OnTransition(t session.Transition) {
	data, err := json.Marshal(t)
	if err != nil {
		p.log.Error().Err(err).Msg("Marshal transition")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		p.log.Warn().Err(err).
			Str("session_id", t.SessionID).
			Str("to", string(t.To)).
			Msg("Failed to enqueue transition")
	}
}

// Start begins the worker loop. Call in a goroutine.
func (p *TransitionPublisher) Start(ctx context.Context) {
	p.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			p.drain(context.Background())
			p.log.Info().Msg("Worker stopped")
			return
		default:
			p.processNext(ctx)
		}
	}
}

func (p *TransitionPublisher) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or the poll timeout passes.
	result, err := p.rdb.BLPop(ctx, PollTimeout, p.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return
		}
		p.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
		select {
		case <-ctx.Done():
		case <-time.After(3 * time.Second):
		}
		return
	}

	if len(result) < 2 {
		return
	}

	if err := p.publish(ctx, result[1]); err != nil {
		p.log.Error().Err(err).Msg("Publish error, requeueing")
		p.rdb.LPush(context.Background(), p.queue, result[1])
	}
}

func (p *TransitionPublisher) publish(ctx context.Context, raw string) error {
	var t session.Transition
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		// Not retryable.
		p.log.Error().Err(err).Msg("Unmarshal error")
		return nil
	}
	return p.rdb.Publish(ctx, config.CacheKey.SessionMonitorChannel(t.SessionID), raw).Err()
}

// drain publishes all remaining items in the queue before shutdown.
func (p *TransitionPublisher) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := p.rdb.LPop(ctx, p.queue).Result()
		if err != nil {
			break
		}
		if err := p.publish(ctx, raw); err != nil {
			p.log.Error().Err(err).Msg("Drain publish error")
			p.rdb.LPush(ctx, p.queue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		p.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
