package kafkarelay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	domoutbox "github.com/Zhima-Mochi/pizzashop/internal/domain/outbox"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/observability/logctx"
)

const (
	peerKafka      = "kafka"
	headerEvent    = "event"
	writeTimeout   = 5 * time.Second
	defaultBatchMs = 10
)

// MessageWriter is the subset of *kafka.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Keyed events choose their partition key; others are sent unkeyed.
type Keyed interface {
	MessageKey() string
}

// Relay forwards bus events to a Kafka topic as JSON, carrying the W3C trace context
// in message headers.
type Relay struct {
	writer     MessageWriter
	subscriber domoutbox.Subscriber
	events     []string
	log        observability.Logger
	extCounter observability.Counter
	extHist    observability.Histogram
	prop       propagation.TextMapPropagator
}

// NewWriter builds the production writer for broker/topic.
func NewWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           defaultBatchMs * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

func New(writer MessageWriter, subscriber domoutbox.Subscriber, tel observability.Observability, events ...string) *Relay {
	logger, _, metrics := observability.Resolve(tel)
	return &Relay{
		writer:     writer,
		subscriber: subscriber,
		events:     events,
		log:        logger.With(observability.F("component", "kafka_relay")),
		extCounter: metrics.Counter(observability.MExternalRequests),
		extHist:    metrics.Histogram(observability.MExternalRequestDuration),
		prop:       otel.GetTextMapPropagator(),
	}
}

// Start subscribes the relay to every configured event name.
func (r *Relay) Start() {
	if r.writer == nil || r.subscriber == nil {
		return
	}
	for _, name := range r.events {
		r.subscriber.Subscribe(name, r.forward)
	}
}

func (r *Relay) Close() error {
	if r.writer == nil {
		return nil
	}
	return r.writer.Close()
}

func (r *Relay) forward(ctx context.Context, e domoutbox.Event) error {
	name := e.EventName()
	logger := logctx.FromOr(ctx, r.log)

	payload, err := json.Marshal(e)
	if err != nil {
		logger.Error("relay_encode_failed", observability.F("error", err))
		return fmt.Errorf("kafkarelay: encode %s: %w", name, err)
	}

	msg := kafka.Message{
		Value:   payload,
		Headers: []kafka.Header{{Key: headerEvent, Value: []byte(name)}},
	}
	if k, ok := e.(Keyed); ok {
		msg.Key = []byte(k.MessageKey())
	}
	r.prop.Inject(ctx, headerCarrier{msg: &msg})

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	start := time.Now()
	err = r.writer.WriteMessages(wctx, msg)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.extCounter.Add(1,
		observability.L("peer", peerKafka),
		observability.L("endpoint", name),
		observability.L("outcome", outcome),
	)
	r.extHist.Observe(time.Since(start).Seconds(),
		observability.L("peer", peerKafka),
		observability.L("endpoint", name),
	)

	if err != nil {
		logger.Warn("relay_write_failed", observability.F("error", err))
		return fmt.Errorf("kafkarelay: write %s: %w", name, err)
	}
	logger.Debug("relay_forwarded", observability.F("bytes", len(payload)))
	return nil
}

// headerCarrier adapts kafka message headers to propagation.TextMapCarrier.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
