// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/MailWarden/internal/logger"
	"github.com/Strob0t/MailWarden/internal/port/messagequeue"
)

const (
	streamName = "MAILWARDEN"

	headerRetryCount = "Retry-Count"
	headerDLQReason  = "DLQ-Reason"

	maxRetries = 3
	retryDelay = 2 * time.Second
)

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string) (*Queue, error) {
	nc, err := nats.Connect(url,
		nats.Name("mailwarden"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"coordination.>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js}, nil
}

// JetStream exposes the JetStream context for KV buckets.
func (q *Queue) JetStream() jetstream.JetStream {
	return q.js
}

// KeyValue creates or opens a KV bucket whose entries expire after ttl.
func (q *Queue) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := q.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("nats kv %s: %w", bucket, err)
	}
	return kv, nil
}

// Publish sends a message to the given subject. The request ID stored in
// ctx travels in a header.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	if id := logger.RequestID(ctx); id != "" {
		msg.Header.Set(messagequeue.HeaderRequestID, id)
	}
	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject. Every
// payload is validated first; invalid payloads go straight to the
// subject's dead-letter subject. Failed messages are redelivered until
// maxRetries deliveries, then dead-lettered.
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       consumerName(subject),
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    maxRetries + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		q.handle(msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

func (q *Queue) handle(msg jetstream.Msg, handler messagequeue.Handler) {
	msgCtx := context.Background()
	hdrs := msg.Headers()
	if id := hdrs.Get(messagequeue.HeaderRequestID); id != "" {
		msgCtx = logger.WithRequestID(msgCtx, id)
	}

	if err := messagequeue.Validate(msg.Subject(), msg.Data()); err != nil {
		slog.Warn("invalid message, moving to DLQ", "subject", msg.Subject(), "error", err)
		q.moveToDLQ(msgCtx, msg, err.Error())
		return
	}

	if err := handler(msgCtx, msg.Subject(), msg.Data()); err != nil {
		attempts := retryCount(hdrs)
		if md, mdErr := msg.Metadata(); mdErr == nil && int(md.NumDelivered) > attempts {
			attempts = int(md.NumDelivered)
		}
		if attempts >= maxRetries {
			slog.Error("message handler failed, retries exhausted", "subject", msg.Subject(), "attempts", attempts, "error", err)
			q.moveToDLQ(msgCtx, msg, err.Error())
			return
		}
		slog.Error("message handler failed", "subject", msg.Subject(), "attempt", attempts, "error", err)
		if nakErr := msg.NakWithDelay(retryDelay); nakErr != nil {
			slog.Error("nats nak failed", "error", nakErr)
		}
		return
	}
	if ackErr := msg.Ack(); ackErr != nil {
		slog.Error("nats ack failed", "error", ackErr)
	}
}

// moveToDLQ republishes msg on "<subject>.dlq" and acknowledges the original.
func (q *Queue) moveToDLQ(ctx context.Context, msg jetstream.Msg, reason string) {
	dlq := &nats.Msg{Subject: msg.Subject() + ".dlq", Data: msg.Data(), Header: nats.Header{}}
	for k, v := range msg.Headers() {
		dlq.Header[k] = v
	}
	dlq.Header.Set(headerDLQReason, reason)
	if _, err := q.js.PublishMsg(ctx, dlq); err != nil {
		slog.Error("nats dlq publish failed", "subject", dlq.Subject, "error", err)
		if nakErr := msg.Nak(); nakErr != nil {
			slog.Error("nats nak failed", "error", nakErr)
		}
		return
	}
	if err := msg.Ack(); err != nil {
		slog.Error("nats ack failed", "error", err)
	}
}

// IsConnected reports whether the NATS connection is up.
func (q *Queue) IsConnected() bool {
	return q.nc != nil && q.nc.IsConnected()
}

// Drain lets in-flight messages finish, then closes the connection.
func (q *Queue) Drain() error {
	return q.nc.Drain()
}

// Close shuts down the NATS connection.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

func retryCount(h nats.Header) int {
	n, err := strconv.Atoi(h.Get(headerRetryCount))
	if err != nil {
		return 0
	}
	return n
}

// consumerName derives a durable consumer name; NATS forbids dots and
// wildcards in names.
func consumerName(subject string) string {
	r := strings.NewReplacer(".", "_", "*", "any", ">", "all")
	return "mailwarden_" + r.Replace(subject)
}
