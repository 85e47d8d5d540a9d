package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/core/ports"
	"github.com/kmrl/documind/internal/observability/metrics"
)

type classificationPreparer interface {
	PrepareClassification(ctx context.Context, processingID string) error
}

// runWorker consumes processing-completed events until ctx ends and prepares phase two for each record.
func runWorker(ctx context.Context, sub ports.EventSubscriber, preparer classificationPreparer, m *metrics.WorkerMetrics, logger *slog.Logger) error {
	return sub.SubscribeProcessingCompleted(ctx, func(handlerCtx context.Context, event domain.ProcessingCompletedEvent) error {
		start := time.Now()
		if !event.CompletedAt.IsZero() {
			m.ObserveQueueLag(serviceName, start.Sub(event.CompletedAt))
		}
		m.StartJob()
		err := preparer.PrepareClassification(handlerCtx, event.ProcessingID)
		m.FinishJob(serviceName, time.Since(start), err)
		if err == nil {
			logger.Info("classification_prepared", "processing_id", event.ProcessingID, "duration_ms", time.Since(start).Milliseconds())
		}
		return err
	})
}
