package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/molfrag/internal/config"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molfrag/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeInternal, "consumer already running")
)

// Worker message outcomes.
const (
	StatusProcessed    = "processed"
	StatusFailed       = "failed"
	StatusDeadLettered = "dead_lettered"
)

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topic           string
	DeadLetterTopic string
	MinBytes        int
	MaxBytes        int
	MaxWait         time.Duration
	// FetchBackoff is the pause after a failed fetch.
	FetchBackoff time.Duration
}

// ConsumerConfigFrom derives consumer settings from the worker's Kafka config.
func ConsumerConfigFrom(cfg config.KafkaConfig) ConsumerConfig {
	return ConsumerConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topic:           cfg.RequestTopic,
		DeadLetterTopic: cfg.DeadLetterTopic,
		MinBytes:        cfg.MinBytes,
		MaxBytes:        cfg.MaxBytes,
		MaxWait:         cfg.MaxWait,
	}
}

// ConsumerStats is a snapshot of consumer counters.
type ConsumerStats struct {
	MessagesConsumed     int64
	MessagesProcessed    int64
	MessagesFailed       int64
	MessagesDeadLettered int64
	Lag                  int64
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithConsumerMetrics records one worker message outcome per consumed record.
func WithConsumerMetrics(m *prometheus.FragmentationMetrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

// Consumer reads one topic and hands every record to a single handler.
// Handler failures are not retried: the record goes to the dead letter
// topic once and its offset is committed.
type Consumer struct {
	reader     ReaderInterface
	deadLetter Publisher
	config     ConsumerConfig
	logger     logging.Logger
	handler    MessageHandler
	metrics    *prometheus.FragmentationMetrics

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	consumed     atomic.Int64
	processed    atomic.Int64
	failed       atomic.Int64
	deadLettered atomic.Int64
	lag          atomic.Int64
}

// NewConsumer creates a kafka.Reader for cfg.Topic and, when a dead letter
// topic is configured, a producer for it.
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger logging.Logger, opts ...ConsumerOption) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10 * 1024 * 1024
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 500 * time.Millisecond
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: kafka.FirstOffset,
	})

	var dlq Publisher
	if cfg.DeadLetterTopic != "" {
		p, err := NewProducer(ProducerConfig{Brokers: cfg.Brokers, Acks: "all"}, logger)
		if err != nil {
			_ = reader.Close()
			return nil, err
		}
		dlq = p
	}
	return newConsumerWith(reader, dlq, cfg, handler, logger, opts...), nil
}

func newConsumerWith(reader ReaderInterface, dlq Publisher, cfg ConsumerConfig, handler MessageHandler, logger logging.Logger, opts ...ConsumerOption) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.FetchBackoff == 0 {
		cfg.FetchBackoff = time.Second
	}
	c := &Consumer{
		reader:     reader,
		deadLetter: dlq,
		config:     cfg,
		logger:     logger,
		handler:    handler,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start runs the consume loop in the background until ctx is cancelled or
// Close is called.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("Kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.String("topic", c.config.Topic))
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("FetchMessage error", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.config.FetchBackoff):
			}
			continue
		}

		c.consumed.Add(1)
		c.lag.Store(m.HighWaterMark - m.Offset)

		status := c.processMessage(ctx, fromKafkaMessage(m))
		c.metrics.RecordWorkerMessage(status)

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("CommitMessages failed", logging.Err(err), logging.Int64("offset", m.Offset))
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg *Message) string {
	err := c.handle(ctx, msg)
	if err == nil {
		c.processed.Add(1)
		return StatusProcessed
	}
	c.failed.Add(1)
	c.logger.Warn("Message processing failed",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(err))

	if c.deadLetter == nil || c.config.DeadLetterTopic == "" {
		return StatusFailed
	}

	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderErrorCode] = errors.GetCode(err).String()
	headers[HeaderErrorMessage] = err.Error()

	dl := &ProducerMessage{
		Topic:   c.config.DeadLetterTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
	if dlErr := c.deadLetter.Publish(ctx, dl); dlErr != nil {
		c.logger.Error("Failed to send to dead letter queue", logging.Err(dlErr))
		return StatusFailed
	}
	c.deadLettered.Add(1)
	return StatusDeadLettered
}

// handle runs the handler, turning a panic into an internal error so the
// message still goes through the failure path and gets committed.
func (c *Consumer) handle(ctx context.Context, msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrCodeInternal, "handler panic: %v", r)
		}
	}()
	return c.handler(ctx, msg)
}

func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		MessagesConsumed:     c.consumed.Load(),
		MessagesProcessed:    c.processed.Load(),
		MessagesFailed:       c.failed.Load(),
		MessagesDeadLettered: c.deadLettered.Load(),
		Lag:                  c.lag.Load(),
	}
}

// Close stops the loop and releases the reader and dead letter producer.
func (c *Consumer) Close() error {
	if c.running.CompareAndSwap(true, false) {
		c.cancel()
		c.wg.Wait()
	}

	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	if closer, ok := c.deadLetter.(interface{ Close() error }); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	c.logger.Info("Kafka consumer closed", logging.Int64("consumed", c.consumed.Load()))
	return err
}

func fromKafkaMessage(m kafka.Message) *Message {
	msg := &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "group id required")
	}
	if cfg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "topic required")
	}
	return nil
}
