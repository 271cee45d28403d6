package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/segmentio/kafka-go"
)

// Sink publishes one encoded event to the messaging collaborator.
type Sink interface {
	Send(ctx context.Context, key, value []byte) error
	Close() error
}

type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (s *KafkaSink) Send(ctx context.Context, key, value []byte) error {
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

type SaramaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSaramaSink(brokers []string, topic string) (*SaramaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create sarama producer: %w", err)
	}
	return &SaramaSink{producer: producer, topic: topic}, nil
}

func (s *SaramaSink) Send(_ context.Context, key, value []byte) error {
	_, _, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (s *SaramaSink) Close() error {
	return s.producer.Close()
}

// LogSink writes events to the structured log; used when no broker is configured.
type LogSink struct{}

func (LogSink) Send(_ context.Context, key, value []byte) error {
	slog.Info("event published", "key", string(key), "event", string(value))
	return nil
}

func (LogSink) Close() error { return nil }

// NewSink builds the sink for driver: "kafka-go", "sarama" or "log".
func NewSink(driver string, brokers []string, topic string) (Sink, error) {
	switch driver {
	case "kafka-go", "kafka":
		return NewKafkaSink(brokers, topic), nil
	case "sarama":
		return NewSaramaSink(brokers, topic)
	case "log", "":
		return LogSink{}, nil
	default:
		return nil, fmt.Errorf("unknown notify driver %q", driver)
	}
}
