package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/resilience"
)

const (
	DefaultIngestSubject  = "documents.ingest"
	DefaultIndexedSubject = "documents.indexed"

	workerQueueGroup = "workers"
)

// Queue carries document ids between the api and the worker. Ingest events
// are load-balanced across workers; indexed events fan out to every api
// instance so each one reloads its lexical index.
type Queue struct {
	conn           *nats.Conn
	ingestSubject  string
	indexedSubject string
	executor       *resilience.Executor
	logger         *slog.Logger
}

type Options struct {
	IndexedSubject       string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if subject == "" {
		subject = DefaultIngestSubject
	}
	indexedSubject := options.IndexedSubject
	if indexedSubject == "" {
		indexedSubject = DefaultIndexedSubject
	}

	conn, err := nats.Connect(
		url,
		nats.Name("campus-rag-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		ingestSubject:  subject,
		indexedSubject: indexedSubject,
		executor:       options.ResilienceExecutor,
		logger:         logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	return q.publish(ctx, q.ingestSubject, documentID)
}

func (q *Queue) PublishDocumentIndexed(ctx context.Context, documentID string) error {
	return q.publish(ctx, q.indexedSubject, documentID)
}

// SubscribeDocumentIngested blocks until ctx is done, delivering each ingest
// event to exactly one worker of the queue group.
func (q *Queue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error {
	return q.subscribe(ctx, q.ingestSubject, workerQueueGroup, handler)
}

// SubscribeDocumentIndexed blocks until ctx is done, delivering every indexed
// event to this subscriber.
func (q *Queue) SubscribeDocumentIndexed(ctx context.Context, handler func(context.Context, string) error) error {
	return q.subscribe(ctx, q.indexedSubject, "", handler)
}

func (q *Queue) publish(ctx context.Context, subject, documentID string) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, []byte(documentID)); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	return wrapPublishError(subject, err)
}

func (q *Queue) subscribe(ctx context.Context, subject, group string, handler func(context.Context, string) error) error {
	onMessage := func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		documentID := string(msg.Data)
		if err := handler(handlerCtx, documentID); err != nil {
			q.logger.Error("queue_handler_failed", "subject", subject, "document_id", documentID, "error", err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if group != "" {
		sub, err = q.conn.QueueSubscribe(subject, group, onMessage)
	} else {
		sub, err = q.conn.Subscribe(subject, onMessage)
	}
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
