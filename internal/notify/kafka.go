package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/menuboard/api/internal/ws"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// changeEvent is the record written to the change stream.
type changeEvent struct {
	ws.Signal
	EmittedAt time.Time `json:"emitted_at"`
}

// KafkaStream exports every order change to a topic keyed by order id, so
// one order's changes stay ordered within a partition.
type KafkaStream struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaStream(brokers []string, topic string, log logrus.FieldLogger) *KafkaStream {
	log = log.WithField("component", "kafka_stream")
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		// Async keeps the command path off the broker round trip; failures
		// surface in Completion after the writer's own retries.
		Async: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.WithError(err).WithField("messages", len(messages)).Error("change stream write failed")
			}
		},
	}
	return &KafkaStream{writer: writer, now: time.Now}
}

// Publish implements Publisher.
func (k *KafkaStream) Publish(ctx context.Context, sig ws.Signal) error {
	value, err := json.Marshal(changeEvent{Signal: sig, EmittedAt: k.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sig.OrderID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "tenant_id", Value: []byte(sig.TenantID.String())},
			{Key: "kind", Value: []byte(sig.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaStream) Close() error {
	return k.writer.Close()
}
