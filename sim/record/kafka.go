package record

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/coastal-risk/stormgen/sim"
)

// KafkaConfig addresses the topic that receives generated events.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	// AllowAutoTopicCreation lets the first write create the topic.
	AllowAutoTopicCreation bool
}

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaSink publishes each event as a JSON message keyed by lifecycle, so all
// events of one lifecycle land on one partition in order.
type KafkaSink struct {
	writer messageWriter
	runID  string
}

// NewKafkaSink creates a producer for cfg.Topic.
func NewKafkaSink(cfg KafkaConfig, runID string) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("%w: kafka sink needs brokers and a topic", sim.ErrInvalidConfig)
	}
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: cfg.AllowAutoTopicCreation,
	}
	return &KafkaSink{writer: w, runID: runID}, nil
}

// Write publishes one lifecycle's events in a single WriteMessages call.
func (k *KafkaSink) Write(ctx context.Context, events []sim.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i], k.runID)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publishing lifecycle %d: %w", events[0].LifecycleID, err)
	}
	return nil
}

// Close flushes pending messages and closes the producer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

// LifecycleKey is the message key for events of lifecycle id.
func LifecycleKey(id int) []byte {
	return []byte("lc-" + strconv.Itoa(id))
}

func serializeToMessage(e sim.Event, runID string) (kafkago.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize storm event: %w", err)
	}
	return kafkago.Message{
		Key:   LifecycleKey(e.LifecycleID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "lifecycle", Value: []byte(strconv.Itoa(e.LifecycleID))},
		},
	}, nil
}
