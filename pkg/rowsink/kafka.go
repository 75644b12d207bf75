package rowsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const SignupEventType = "waitlist.signup"

// SignupEvent is the JSON value published for every captured row.
type SignupEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Email         string    `json:"email"`
	Source        string    `json:"source"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaSink struct {
	writer  messageWriter
	brokers []string
	topic   string
	dial    func(ctx context.Context, network, address string) (*kafka.Conn, error)
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("rowsink.NewKafkaSink: no brokers configured")
	}
	if topic == "" {
		return nil, errors.New("rowsink.NewKafkaSink: topic is required")
	}

	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireOne,
		},
		brokers: brokers,
		topic:   topic,
		dial:    kafka.DialContext,
	}, nil
}

func (s *KafkaSink) Name() string {
	return "kafka"
}

func (s *KafkaSink) Append(ctx context.Context, row Row) error {
	const op = "rowsink.KafkaSink.Append"

	event := SignupEvent{
		ID:            uuid.NewString(),
		Type:          SignupEventType,
		Email:         row.Email,
		Source:        row.Source,
		Status:        row.Status,
		Timestamp:     row.Timestamp.UTC(),
		CorrelationID: row.CorrelationID,
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(SignupEventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Check succeeds when any broker accepts a connection.
func (s *KafkaSink) Check(ctx context.Context) error {
	const op = "rowsink.KafkaSink.Check"

	var lastErr error
	for _, broker := range s.brokers {
		conn, err := s.dial(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}

	return fmt.Errorf("%s: %w", op, lastErr)
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
