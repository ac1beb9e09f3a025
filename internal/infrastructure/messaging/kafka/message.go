// Package kafka carries fragmentation requests and results over Kafka.
package kafka

import (
	"context"
	"time"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is a record to publish.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one consumed message. A returned error sends the
// message to the dead letter topic.
type MessageHandler func(ctx context.Context, msg *Message) error

// Publisher is the write side used by the consumer's dead letter path and by
// the fragment worker.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// Dead letter headers.
const (
	HeaderOriginalTopic = "original_topic"
	HeaderErrorCode     = "error_code"
	HeaderErrorMessage  = "error_message"
)
