package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/asset-management/internal/core/events"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the stream needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Stream forwards recorded audit entries to a Kafka topic.
type Stream struct {
	writer MessageWriter
	logger *slog.Logger
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
}

func NewStream(writer MessageWriter, logger *slog.Logger) *Stream {
	return &Stream{writer: writer, logger: logger}
}

// Handle is an events.Handler for audit.recorded.
func (s *Stream) Handle(ctx context.Context, event events.Event) error {
	recorded, ok := event.(*events.AuditRecordedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	value, err := json.Marshal(recorded)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(recorded.Entity),
		Value: value,
		Time:  recorded.OccurredAt(),
	})
	if err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	s.logger.DebugContext(ctx, "Handle: audit event streamed", "entry_id", recorded.EntryID)
	return nil
}

func (s *Stream) Close() error {
	return s.writer.Close()
}

// MessageReader is the part of *kafka.Reader Tail needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

func NewKafkaReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
}

// Tail hands every streamed entry to fn until ctx is done or fn fails.
// Messages that do not decode are skipped.
func Tail(ctx context.Context, reader MessageReader, logger *slog.Logger, fn func(*events.AuditRecordedEvent) error) error {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read audit event: %w", err)
		}
		var recorded events.AuditRecordedEvent
		if err := json.Unmarshal(msg.Value, &recorded); err != nil {
			logger.WarnContext(ctx, "Tail: skipping undecodable message", "offset", msg.Offset, "error", err)
			continue
		}
		if err := fn(&recorded); err != nil {
			return err
		}
	}
}
