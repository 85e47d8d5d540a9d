package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/infrastructure/resilience"
)

const (
	// queueGroup spreads deferred classification across worker replicas.
	queueGroup = "classifiers"

	eventHeader        = "Documind-Event"
	eventProcessingEnd = "processing.completed"
	drainFlushTimeout  = 5 * time.Second
)

// Queue carries processing-completed events from the API to classification workers.
type Queue struct {
	conn           *nats.Conn
	subject        string
	executor       *resilience.Executor
	handlerTimeout time.Duration
	logger         *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	HandlerTimeout       time.Duration
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func (o Options) connectOptions(logger *slog.Logger) []nats.Option {
	retry := true
	if o.RetryOnFailedConnect != nil {
		retry = *o.RetryOnFailedConnect
	}
	return []nats.Option{
		nats.Name("documind"),
		nats.Timeout(positiveOr(o.ConnectTimeout, 2*time.Second)),
		nats.ReconnectWait(positiveOr(o.ReconnectWait, 2*time.Second)),
		nats.MaxReconnects(positiveOr(o.MaxReconnects, 60)),
		nats.RetryOnFailedConnect(retry),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	}
}

func positiveOr[T int | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "nats", "subject", subject)

	conn, err := nats.Connect(url, options.connectOptions(logger)...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		subject:        subject,
		executor:       options.ResilienceExecutor,
		handlerTimeout: options.HandlerTimeout,
		logger:         logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// PublishProcessingCompleted announces a stored record that still awaits classification.
func (q *Queue) PublishProcessingCompleted(ctx context.Context, event domain.ProcessingCompletedEvent) error {
	msg, err := newEventMessage(q.subject, event)
	if err != nil {
		return err
	}
	publish := func(context.Context) error {
		if err := q.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish %s: %w", event.ProcessingID, err)
		}
		return nil
	}
	if q.executor == nil {
		return publishError(publish(ctx))
	}
	return publishError(q.executor.Execute(ctx, "nats.publish", publish, classifyPublishError))
}

// SubscribeProcessingCompleted blocks until ctx is done, then drains the subscription.
func (q *Queue) SubscribeProcessingCompleted(ctx context.Context, handler func(context.Context, domain.ProcessingCompletedEvent) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		q.deliver(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	q.logger.Info("nats_subscribed", "queue_group", queueGroup)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(drainFlushTimeout); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) deliver(ctx context.Context, msg *nats.Msg, handler func(context.Context, domain.ProcessingCompletedEvent) error) {
	if ctx.Err() != nil {
		return
	}
	event, err := eventFromMessage(msg)
	if err != nil {
		q.logger.Warn("nats_message_dropped", "error", err)
		return
	}

	handlerCtx, cancel := q.handlerContext(ctx)
	defer cancel()
	if err := handler(handlerCtx, event); err != nil {
		q.logger.Error("deferred_classification_failed", "processing_id", event.ProcessingID, "error", err)
	}
}

func (q *Queue) handlerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.handlerTimeout > 0 {
		return context.WithTimeout(ctx, q.handlerTimeout)
	}
	return context.WithCancel(ctx)
}

// newEventMessage sets the processing id as the message id so JetStream-enabled servers can dedupe republishes.
func newEventMessage(subject string, event domain.ProcessingCompletedEvent) (*nats.Msg, error) {
	payload, err := encodeEvent(event)
	if err != nil {
		return nil, err
	}
	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, event.ProcessingID)
	msg.Header.Set(eventHeader, eventProcessingEnd)
	return msg, nil
}

// eventFromMessage falls back to the message id header when the payload is empty.
func eventFromMessage(msg *nats.Msg) (domain.ProcessingCompletedEvent, error) {
	if kind := msg.Header.Get(eventHeader); kind != "" && kind != eventProcessingEnd {
		return domain.ProcessingCompletedEvent{}, fmt.Errorf("unexpected event type %q", kind)
	}
	if len(strings.TrimSpace(string(msg.Data))) == 0 {
		if id := strings.TrimSpace(msg.Header.Get(nats.MsgIdHdr)); id != "" {
			return domain.ProcessingCompletedEvent{ProcessingID: id}, nil
		}
	}
	return decodeEvent(msg.Data)
}

func encodeEvent(event domain.ProcessingCompletedEvent) ([]byte, error) {
	if strings.TrimSpace(event.ProcessingID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode processing event", errors.New("empty processing id"))
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal processing event: %w", err)
	}
	return payload, nil
}

// decodeEvent also accepts a bare processing id as the payload.
func decodeEvent(data []byte) (domain.ProcessingCompletedEvent, error) {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "":
		return domain.ProcessingCompletedEvent{}, errors.New("empty payload")
	case !strings.HasPrefix(trimmed, "{"):
		return domain.ProcessingCompletedEvent{ProcessingID: trimmed}, nil
	}
	var event domain.ProcessingCompletedEvent
	if err := json.Unmarshal([]byte(trimmed), &event); err != nil {
		return domain.ProcessingCompletedEvent{}, fmt.Errorf("unmarshal processing event: %w", err)
	}
	if event.ProcessingID == "" {
		return domain.ProcessingCompletedEvent{}, errors.New("event has no processing_id")
	}
	return event, nil
}
