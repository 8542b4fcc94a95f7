package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var producerTracer = otel.Tracer("messaging/producer")

// Message is a record ready to be written. Headers may carry a trace context
// captured when the record was produced, e.g. from an outbox row.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           50 * time.Millisecond,
		},
	}
}

// Publish encodes event as JSON and sends it keyed by key.
func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Send(ctx, Message{Key: key, Value: data})
}

// Send writes msg. Records with the same key land on the same partition, so
// per-order events keep their order.
func (p *Producer) Send(ctx context.Context, msg Message) error {
	if len(msg.Headers) > 0 {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(msg.Headers))
	}

	record := kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Value,
	}

	ctx, span := producerTracer.Start(ctx, "send "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingKafkaMessageKey(msg.Key),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, NewHeaderCarrier(&record))

	if err := p.writer.WriteMessages(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
