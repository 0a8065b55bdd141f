package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

var _ inventory.EventPublisher = (*Publisher)(nil)

// Publisher envuelve un SyncProducer de Kafka.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	log      zerolog.Logger
	now      func() time.Time
}

// NewPublisher crea el producer contra los brokers dados.
func NewPublisher(brokers []string, topic string, log zerolog.Logger) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.MaxMessageBytes = 1000000
	// misma key (product_id) = misma partición = orden por producto
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("crear producer kafka: %w", err)
	}

	log.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Msg("publisher kafka inicializado")

	return NewPublisherWithProducer(producer, topic, log), nil
}

// NewPublisherWithProducer usa un producer ya construido (tests con sarama/mocks).
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, log zerolog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopicMovements
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PublishMovements publica un evento por movimiento en un solo lote. Key = product_id.
func (p *Publisher) PublishMovements(ctx context.Context, movements ...*entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	tracer := otel.Tracer("kafka-publisher")
	ctx, span := tracer.Start(ctx, "kafka.publish.movement_recorded",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", p.topic),
			attribute.String("messaging.destination_kind", "topic"),
			attribute.String("event.type", EventTypeMovementRecorded),
			attribute.Int("messaging.batch.message_count", len(movements)),
		),
	)
	defer span.End()

	// Contexto de traza en los headers para que el consumidor continúe la traza
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	msgs := make([]*sarama.ProducerMessage, 0, len(movements))
	for _, m := range movements {
		event := NewMovementRecordedEvent(m, p.now())
		body, err := json.Marshal(event)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "serializar evento")
			return fmt.Errorf("serializar evento %s: %w", m.ID, err)
		}
		headers := []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(EventTypeMovementRecorded)},
			{Key: []byte("event_id"), Value: []byte(event.EventID)},
			{Key: []byte("movement_type"), Value: []byte(event.MovementType)},
		}
		for key, value := range carrier {
			headers = append(headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic:   p.topic,
			Key:     sarama.StringEncoder(m.ProductID),
			Value:   sarama.ByteEncoder(body),
			Headers: headers,
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enviar mensajes")
		p.log.Error().
			Err(err).
			Str("topic", p.topic).
			Int("messages", len(msgs)).
			Str("trace_id", span.SpanContext().TraceID().String()).
			Msg("fallo publicando movimientos")
		return fmt.Errorf("enviar mensajes a kafka: %w", err)
	}

	span.SetStatus(codes.Ok, "publicado")
	for _, msg := range msgs {
		p.log.Debug().
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("movimiento publicado")
	}
	return nil
}

// Close cierra el producer.
func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
