// Package worker implements background warm refresh of cached rate tables.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"convertsvc/internal/ratestore"
	"convertsvc/internal/service"
)

// TaskTypeRefreshRates is the Asynq task type for rate table refresh jobs.
const TaskTypeRefreshRates = "rates:refresh"

// RefreshRatesPayload is the payload structure for rate refresh Asynq tasks.
type RefreshRatesPayload struct {
	Base string `json:"base"`
}

// NewRefreshRatesHandler returns a function to handle rate refresh tasks.
// A refresh failure is logged and swallowed: the stale entry stays installed
// and expires by TTL on the read path, which keeps the request-time fail-fast
// policy intact.
func NewRefreshRatesHandler(svc service.ConverterInterface, logger *zap.SugaredLogger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RefreshRatesPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Errorw("Invalid task payload", "type", t.Type(), "error", err)
			return nil
		}

		if err := svc.RefreshBase(ctx, payload.Base); err != nil {
			logger.Warnw("Background refresh failed", "base", payload.Base, "error", err)
			return nil
		}

		logger.Infow("Background refresh completed", "base", payload.Base)
		return nil
	}
}

// RefreshScheduler periodically enqueues one refresh task per cached base currency.
type RefreshScheduler struct {
	client   *asynq.Client
	store    ratestore.Store
	log      *zap.SugaredLogger
	interval time.Duration
	maxRetry int
	timeout  time.Duration
}

// NewRefreshScheduler creates a RefreshScheduler.
func NewRefreshScheduler(client *asynq.Client, store ratestore.Store, logger *zap.SugaredLogger, interval time.Duration, maxRetry int, timeout time.Duration) *RefreshScheduler {
	return &RefreshScheduler{
		client:   client,
		store:    store,
		log:      logger,
		interval: interval,
		maxRetry: maxRetry,
		timeout:  timeout,
	}
}

// Run enqueues refresh tasks on every tick until the context is canceled.
func (s *RefreshScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.enqueueAll(ctx)
		}
	}
}

func (s *RefreshScheduler) enqueueAll(ctx context.Context) {
	bases := s.store.Bases(ctx)
	for _, base := range bases {
		payload, err := json.Marshal(RefreshRatesPayload{Base: base})
		if err != nil {
			s.log.Errorw("Failed to create refresh task payload", "base", base, "error", err)
			continue
		}

		task := asynq.NewTask(TaskTypeRefreshRates, payload,
			asynq.MaxRetry(s.maxRetry),
			asynq.Timeout(s.timeout),
		)
		if _, err := s.client.EnqueueContext(ctx, task); err != nil {
			s.log.Errorw("Failed to enqueue refresh task", "base", base, "error", err)
		}
	}
	if len(bases) > 0 {
		s.log.Infow("Enqueued refresh tasks", "bases", len(bases))
	}
}
