package eventpublisher

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
	"github.com/iho/splitledger/internal/usecase"
)

// EventPublisher drains unpublished activity entries to a Publisher.
type EventPublisher struct {
	activityRepo usecase.ActivityRepository
	publisher    Publisher
	logger       zerolog.Logger
	metrics      *metrics.Metrics
	batchSize    int
	interval     time.Duration
	maxRetries   uint64
	retryBase    time.Duration
}

// Publisher defines the interface for publishing activity to external systems.
type Publisher interface {
	Publish(ctx context.Context, activity *domain.Activity) error
}

// Config for EventPublisher.
type Config struct {
	ActivityRepo usecase.ActivityRepository
	Publisher    Publisher
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
	BatchSize    int           // Number of entries to fetch per batch
	Interval     time.Duration // Polling interval
	MaxRetries   uint64        // Publish retries per entry before moving on
	RetryBase    time.Duration // First retry delay
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cfg Config) *EventPublisher {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = 100 * time.Millisecond
	}

	return &EventPublisher{
		activityRepo: cfg.ActivityRepo,
		publisher:    cfg.Publisher,
		logger:       cfg.Logger.With().Str("component", "eventpublisher").Logger(),
		metrics:      cfg.Metrics,
		batchSize:    cfg.BatchSize,
		interval:     cfg.Interval,
		maxRetries:   cfg.MaxRetries,
		retryBase:    cfg.RetryBase,
	}
}

// Start begins the publishing loop.
// It runs continuously until the context is cancelled.
func (ep *EventPublisher) Start(ctx context.Context) error {
	ep.logger.Info().
		Int("batch_size", ep.batchSize).
		Dur("interval", ep.interval).
		Msg("event publisher started")

	ticker := time.NewTicker(ep.interval)
	defer ticker.Stop()

	if err := ep.processEvents(ctx); err != nil {
		ep.logger.Error().Err(err).Msg("error processing activity on start")
	}

	for {
		select {
		case <-ctx.Done():
			ep.logger.Info().Msg("event publisher shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := ep.processEvents(ctx); err != nil {
				ep.logger.Error().Err(err).Msg("error processing activity")
			}
		}
	}
}

// processEvents publishes one batch of unpublished activity.
func (ep *EventPublisher) processEvents(ctx context.Context) error {
	activities, err := ep.activityRepo.GetUnpublished(ctx, ep.batchSize)
	if err != nil {
		return err
	}

	if len(activities) == 0 {
		return nil
	}

	ep.logger.Debug().Int("count", len(activities)).Msg("processing activity")

	for _, a := range activities {
		if err := ep.publishWithRetry(ctx, a); err != nil {
			if ep.metrics != nil {
				ep.metrics.PublishErrors.Inc()
			}
			ep.logger.Error().
				Err(err).
				Str("activity_id", a.ID).
				Str("event_type", string(a.EventType)).
				Msg("failed to publish activity")
			// Left unpublished; the next poll picks it up again.
			continue
		}

		if err := ep.activityRepo.MarkPublished(ctx, a.ID, time.Now().UTC()); err != nil {
			ep.logger.Error().
				Err(err).
				Str("activity_id", a.ID).
				Msg("failed to mark activity as published")
			continue
		}

		if ep.metrics != nil {
			ep.metrics.ActivitiesPublished.Inc()
		}
	}

	return nil
}

func (ep *EventPublisher) publishWithRetry(ctx context.Context, a *domain.Activity) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = ep.retryBase
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		return ep.publisher.Publish(ctx, a)
	}, backoff.WithContext(backoff.WithMaxRetries(b, ep.maxRetries), ctx))
}

// LogPublisher writes activity to the log.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the activity.
func (p *LogPublisher) Publish(ctx context.Context, a *domain.Activity) error {
	p.logger.Info().
		Str("activity_id", a.ID).
		Str("event_type", string(a.EventType)).
		Str("group_id", a.GroupID).
		Str("subject_id", a.SubjectID).
		Str("actor_membership_id", a.ActorMembershipID).
		Interface("metadata", a.Metadata).
		Time("created_at", a.CreatedAt).
		Msg("activity published")

	return nil
}
