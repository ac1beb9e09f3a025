package worker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appFrag "github.com/turtacn/molfrag/internal/application/fragmentation"
	"github.com/turtacn/molfrag/internal/config"
	domainFrag "github.com/turtacn/molfrag/internal/domain/fragmentation"
	"github.com/turtacn/molfrag/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molfrag/pkg/errors"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg *kafka.ProducerMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockService struct {
	mock.Mock
}

func (m *MockService) Fragment(ctx context.Context, req *appFrag.FragmentRequest) (*appFrag.FragmentResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*appFrag.FragmentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Rules() []appFrag.RuleInfo {
	return nil
}

func newService() appFrag.Service {
	return appFrag.NewService(domainFrag.NewFragmenter(nil), config.NewDefaultConfig().Fragmentation, nil)
}

func TestHandle_PublishesResult(t *testing.T) {
	pub := new(MockPublisher)
	var published *kafka.ProducerMessage
	pub.On("Publish", mock.Anything, mock.AnythingOfType("*kafka.ProducerMessage")).
		Run(func(args mock.Arguments) { published = args.Get(1).(*kafka.ProducerMessage) }).
		Return(nil).Once()

	w := NewFragmentWorker(newService(), pub, "fragment.results", nil)
	err := w.Handle(context.Background(), &kafka.Message{
		Topic: "fragment.requests",
		Key:   []byte("batch-7"),
		Value: []byte(`{"smiles":"NCC(O)CC","rules":["cod"]}`),
	})
	require.NoError(t, err)
	pub.AssertExpectations(t)

	require.NotNil(t, published)
	assert.Equal(t, "fragment.results", published.Topic)
	assert.Equal(t, kafka.EventFragmentResult, published.Headers["event_type"])

	env, err := kafka.MessageToEventEnvelope(&kafka.Message{Value: published.Value})
	require.NoError(t, err)
	assert.Equal(t, "batch-7", env.Metadata[MetadataRequestKey])

	var resp appFrag.FragmentResponse
	require.NoError(t, env.DecodePayload(&resp))
	assert.Equal(t, string(published.Key), resp.RequestID)
	assert.Equal(t, "CCC(CN)O", resp.Input.SMILES)
	require.Len(t, resp.Sets, 2)
	assert.Equal(t, "cod", resp.Sets[0].Rule)
}

func TestHandle_SetsWorkerSource(t *testing.T) {
	svc := new(MockService)
	svc.On("Fragment", mock.Anything, mock.MatchedBy(func(req *appFrag.FragmentRequest) bool {
		return req.Source == "worker" && req.SMILES == "CCO"
	})).Return(&appFrag.FragmentResponse{RequestID: "r1"}, nil).Once()
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	w := NewFragmentWorker(svc, pub, "out", nil)
	require.NoError(t, w.Handle(context.Background(), &kafka.Message{Value: []byte(`{"smiles":"CCO"}`)}))
	svc.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestHandle_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value string
		code  errors.ErrorCode
	}{
		{"malformed json", `{"smiles":`, errors.ErrCodeSerialization},
		{"invalid smiles", `{"smiles":"C(C"}`, errors.ErrCodeMoleculeInvalidSMILES},
		{"unknown rule", `{"smiles":"CCO","rules":["zzz"]}`, errors.ErrCodeInvalidRule},
		{"fix policy", `{"smiles":"CCO","error_policy":"fix"}`, errors.ErrCodeUnsupportedPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := new(MockPublisher)
			w := NewFragmentWorker(newService(), pub, "out", nil)

			err := w.Handle(context.Background(), &kafka.Message{Value: []byte(tt.value)})
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
			pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestHandle_PublishFailure(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(fmt.Errorf("broker down"))

	w := NewFragmentWorker(newService(), pub, "out", nil)
	err := w.Handle(context.Background(), &kafka.Message{Value: []byte(`{"smiles":"CCO","rules":["oxe"]}`)})
	assert.EqualError(t, err, "broker down")
}
