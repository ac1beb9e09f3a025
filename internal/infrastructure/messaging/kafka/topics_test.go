package kafka

import (
	"context"
	"fmt"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molfrag/internal/config"
	"github.com/turtacn/molfrag/pkg/errors"
)

type fakeConn struct {
	existing map[string]bool
	created  []kafka.TopicConfig
	err      error
	closed   bool
}

func (c *fakeConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if c.err != nil {
		return c.err
	}
	c.created = append(c.created, topics...)
	return nil
}

func (c *fakeConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	var out []kafka.Partition
	for _, name := range topics {
		if c.existing[name] {
			out = append(out, kafka.Partition{Topic: name})
		}
	}
	return out, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestWorkerTopics(t *testing.T) {
	topics := WorkerTopics(config.KafkaConfig{RequestTopic: "req", ResultTopic: "res", DeadLetterTopic: "dlq"})
	require.Len(t, topics, 3)
	assert.Equal(t, "req", topics[0].Name)
	assert.Equal(t, "dlq", topics[2].Name)
	assert.Equal(t, 1, topics[2].NumPartitions)

	assert.Len(t, WorkerTopics(config.KafkaConfig{RequestTopic: "req"}), 1)
}

func TestTopicManager_EnsureTopicsSkipsExisting(t *testing.T) {
	conn := &fakeConn{existing: map[string]bool{"req": true}}
	m := newTopicManagerWith(conn, nil)

	err := m.EnsureTopics(context.Background(), WorkerTopics(config.KafkaConfig{RequestTopic: "req", ResultTopic: "res"}))
	require.NoError(t, err)
	require.Len(t, conn.created, 1)
	assert.Equal(t, "res", conn.created[0].Topic)
	require.Len(t, conn.created[0].ConfigEntries, 1)
	assert.Equal(t, "retention.ms", conn.created[0].ConfigEntries[0].ConfigName)

	require.NoError(t, m.Close())
	assert.True(t, conn.closed)
}

func TestTopicManager_CreateTopicErrors(t *testing.T) {
	m := newTopicManagerWith(&fakeConn{err: fmt.Errorf("not controller")}, nil)
	ctx := context.Background()

	assert.True(t, errors.IsCode(m.CreateTopic(ctx, TopicConfig{}), errors.ErrCodeValidation))
	assert.True(t, errors.IsCode(m.CreateTopic(ctx, TopicConfig{Name: "x"}), errors.ErrCodeValidation))
	assert.True(t, errors.IsCode(m.CreateTopic(ctx, TopicConfig{Name: "x", NumPartitions: 1}), errors.ErrCodeValidation))
	assert.True(t, errors.IsCode(m.CreateTopic(ctx, TopicConfig{Name: "x", NumPartitions: 1, ReplicationFactor: 1}), errors.ErrCodeExternalService))
}

func TestNewTopicManager_NoBrokers(t *testing.T) {
	_, err := NewTopicManager(nil, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}
