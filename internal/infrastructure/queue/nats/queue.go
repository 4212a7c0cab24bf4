package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/ports"
	"github.com/rodaquino-OMNI/onboarding-ocr/internal/infrastructure/resilience"
)

// Queue carries document-scanned events to the OCR workers and budget alerts
// to the alerting subject. Alert delivery is fire-and-forget by contract.
type Queue struct {
	conn         *nats.Conn
	scanSubject  string
	alertSubject string
	executor     *resilience.Executor
}

func New(url, scanSubject, alertSubject string) (*Queue, error) {
	return NewWithOptions(url, scanSubject, alertSubject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func NewWithOptions(url, scanSubject, alertSubject string, options Options) (*Queue, error) {
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

	conn, err := nats.Connect(
		url,
		nats.Name("onboarding-ocr"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:         conn,
		scanSubject:  scanSubject,
		alertSubject: alertSubject,
		executor:     options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDocumentScanned(ctx context.Context, event ports.ScanEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal scan event: %w", err)
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.scanSubject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish_scan", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded("publish scan event", err)
	}
	return nil
}

func (q *Queue) SubscribeDocumentScanned(ctx context.Context, handler func(context.Context, ports.ScanEvent) error) error {
	sub, err := q.conn.QueueSubscribe(q.scanSubject, "ocr-workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		var event ports.ScanEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("drop malformed scan event: %v", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event); err != nil {
			log.Printf("worker handler error for doc=%s: %v", event.DocumentID, err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
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

// Emit publishes a budget alert. Implements ports.AlertSink; callers log
// failures and move on.
func (q *Queue) Emit(_ context.Context, alert domain.BudgetAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := q.conn.Publish(q.alertSubject, payload); err != nil {
		return fmt.Errorf("nats publish alert: %w", err)
	}
	return nil
}
