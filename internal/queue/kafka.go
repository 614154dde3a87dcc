package queue

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

var _ Queue = (*KafkaQueue)(nil)

// KafkaQueue publishes lifecycle events to a kafka topic.
type KafkaQueue struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaQueue(brokers, topic string) (*KafkaQueue, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return nil, err
	}

	q := &KafkaQueue{producer: producer, topic: topic}

	// drain delivery reports so the producer queue does not fill up
	go func() {
		for e := range producer.Events() {
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				logrus.Errorf("event delivery failed: %v", m.TopicPartition.Error)
			}
		}
	}()

	return q, nil
}

func (k *KafkaQueue) Publish(ctx context.Context, event *Event) error {
	payload, err := event.MarshalBinary()
	if err != nil {
		return err
	}

	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.Scope.ContentID),
		Value:          payload,
	}, nil)
	if err != nil {
		// fire and forget, the caller never fails on event delivery
		logrus.Errorf("failed to enqueue event %s: %v", event.Name, err)
	}

	return nil
}

func (k *KafkaQueue) Close() {
	k.producer.Flush(5000)
	k.producer.Close()
}
