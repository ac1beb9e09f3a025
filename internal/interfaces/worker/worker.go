// Package worker turns Kafka request records into fragmentation results.
package worker

import (
	"context"
	"encoding/json"

	appFrag "github.com/turtacn/molfrag/internal/application/fragmentation"
	"github.com/turtacn/molfrag/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfrag/pkg/errors"
)

const (
	sourceName = "worker"
	// MetadataRequestKey carries the consumed record's key into the result
	// envelope so producers can correlate replies.
	MetadataRequestKey = "request_key"
)

// FragmentWorker decodes a JSON FragmentRequest per record, runs it through
// the fragmentation service and publishes the response to the result topic.
type FragmentWorker struct {
	service     appFrag.Service
	results     kafka.Publisher
	resultTopic string
	logger      logging.Logger
}

func NewFragmentWorker(service appFrag.Service, results kafka.Publisher, resultTopic string, logger logging.Logger) *FragmentWorker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FragmentWorker{
		service:     service,
		results:     results,
		resultTopic: resultTopic,
		logger:      logger.Named("worker"),
	}
}

// Handle satisfies kafka.MessageHandler. Any returned error dead-letters the
// record.
func (w *FragmentWorker) Handle(ctx context.Context, msg *kafka.Message) error {
	var req appFrag.FragmentRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "invalid fragment request payload")
	}
	req.Source = sourceName

	resp, err := w.service.Fragment(ctx, &req)
	if err != nil {
		return err
	}

	env, err := kafka.NewEventEnvelope(kafka.EventFragmentResult, "molfrag-worker", resp)
	if err != nil {
		return err
	}
	if len(msg.Key) > 0 {
		env.Metadata = map[string]string{MetadataRequestKey: string(msg.Key)}
	}
	out, err := env.ToMessage(w.resultTopic, resp.RequestID)
	if err != nil {
		return err
	}
	if err := w.results.Publish(ctx, out); err != nil {
		return err
	}

	w.logger.Debug("fragment result published",
		logging.String("request_id", resp.RequestID),
		logging.Int64("offset", msg.Offset),
		logging.Int("sets", len(resp.Sets)))
	return nil
}
