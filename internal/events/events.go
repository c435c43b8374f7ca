package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// VoteChanged is emitted after a vote mutation commits.
type VoteChanged struct {
	EntityType     string    `json:"entityType"`
	EntityID       int       `json:"entityId"`
	UserID         int       `json:"userId"`
	Previous       string    `json:"previous,omitempty"`
	Current        string    `json:"current,omitempty"`
	UpvotesCount   int       `json:"upvotesCount"`
	DownvotesCount int       `json:"downvotesCount"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Key routes every event for one target to the same partition.
func (e VoteChanged) Key() string {
	return fmt.Sprintf("%s:%d", e.EntityType, e.EntityID)
}

type Publisher interface {
	PublishVoteChanged(ctx context.Context, event VoteChanged) error
	Close() error
}

// KafkaPublisher writes events asynchronously; delivery failures are logged
// from the writer's completion callback.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Printf("failed to deliver %d vote events: %v", len(messages), err)
			}
		},
	}
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) PublishVoteChanged(ctx context.Context, event VoteChanged) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish vote event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(event VoteChanged) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode vote event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.Key()),
		Value: data,
		Time:  event.OccurredAt,
	}, nil
}

// NopPublisher drops events; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishVoteChanged(context.Context, VoteChanged) error { return nil }
func (NopPublisher) Close() error                                          { return nil }
