package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/infrastructure/resilience"
)

// transientConnErrors are the client errors a reconnecting connection recovers from.
var transientConnErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrConnectionReconnecting,
	nats.ErrDisconnected,
}

func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err), isTransient(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func isTransient(err error) bool {
	for _, target := range transientConnErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// publishError marks a processing-completed publish that may succeed later as temporary.
func publishError(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyPublishError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, "publish processing completed", err)
	}
	return err
}
