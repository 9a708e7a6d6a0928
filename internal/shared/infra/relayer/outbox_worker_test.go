package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	postDomain "github.com/davicafu/postlab/internal/post/domain"
	sharedDomain "github.com/davicafu/postlab/internal/shared/domain"
	sharedEvents "github.com/davicafu/postlab/internal/shared/events"
	sharedBus "github.com/davicafu/postlab/internal/shared/platform/bus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/postlab/tests/mocks"
)

func TestOutboxWorker_ProcessBatch_Success(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	eventID := uuid.New()
	authorID := uuid.New()
	createdAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	testEvent := sharedDomain.OutboxEvent{
		ID:          eventID,
		AggregateID: "42",
		EventType:   postDomain.PostCreated,
		Payload:     map[string]interface{}{"id": 42, "authorId": authorID.String(), "title": "hola"},
		CreatedAt:   createdAt,
	}

	var published sharedEvents.IntegrationEvent
	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.AnythingOfType("events.IntegrationEvent")).
		Run(func(args mock.Arguments) { published = args.Get(1).(sharedEvents.IntegrationEvent) }).
		Return(nil).Once()
	repo.On("MarkOutboxProcessed", mock.Anything, eventID).Return(nil).Once()

	worker := NewOutboxWorker(repo, publisher, postDomain.NewEventRegistry(), time.Second, 10, zap.NewNop())

	// ACT
	n := worker.ProcessBatch(context.Background())

	// ASSERT
	assert.Equal(t, 1, n)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)

	assert.Equal(t, eventID.String(), published.ID)
	assert.Equal(t, postDomain.PostCreated, published.Type)
	assert.Equal(t, "42", published.PartitionKey())
	assert.Equal(t, createdAt, published.Timestamp)

	var data sharedEvents.PostCreated
	require.NoError(t, json.Unmarshal(published.Data, &data))
	assert.Equal(t, int64(42), data.ID)
	assert.Equal(t, authorID, data.AuthorID)
	assert.Equal(t, "hola", data.Title)
}

func TestOutboxWorker_ProcessBatch_PublisherFails(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	testEvent := sharedDomain.OutboxEvent{ID: uuid.New(), EventType: postDomain.PostDeleted, Payload: map[string]interface{}{}}

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("kafka is down")).Once()

	worker := NewOutboxWorker(repo, publisher, postDomain.NewEventRegistry(), time.Second, 10, zap.NewNop())

	// ACT
	n := worker.ProcessBatch(context.Background())

	// ASSERT
	assert.Zero(t, n)
	repo.AssertCalled(t, "FetchPendingOutbox", mock.Anything, 10)
	publisher.AssertCalled(t, "Publish", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
}

func TestOutboxWorker_ProcessBatch_UnknownEventType(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	testEvent := sharedDomain.OutboxEvent{ID: uuid.New(), EventType: "unregistered.event", Payload: map[string]interface{}{}}

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()

	worker := NewOutboxWorker(repo, publisher, sharedEvents.Registry{}, time.Second, 10, zap.NewNop())

	// ACT
	worker.ProcessBatch(context.Background())

	// ASSERT
	repo.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
}

func TestOutboxWorker_ProcessBatch_FetchFails(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	repo.On("FetchPendingOutbox", mock.Anything, 5).Return([]sharedDomain.OutboxEvent(nil), errors.New("db down")).Once()

	worker := NewOutboxWorker(repo, publisher, postDomain.NewEventRegistry(), time.Second, 5, zap.NewNop())

	assert.Zero(t, worker.ProcessBatch(context.Background()))
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

// Verificación estática de que los mocks cumplen las interfaces.
var _ sharedDomain.OutboxRepository = (*mocks.MockOutboxRepository)(nil)
var _ sharedBus.EventPublisher = (*mocks.MockPublisher)(nil)

func TestOutboxWorker_ProcessBatch_KeepsAggregateOrder(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	payload := map[string]interface{}{"id": 1}
	first := sharedDomain.OutboxEvent{ID: uuid.New(), AggregateType: "post", AggregateID: "1", EventType: postDomain.PostCreated, Payload: payload}
	second := sharedDomain.OutboxEvent{ID: uuid.New(), AggregateType: "post", AggregateID: "1", EventType: postDomain.PostUpdated, Payload: payload}
	other := sharedDomain.OutboxEvent{ID: uuid.New(), AggregateType: "post", AggregateID: "2", EventType: postDomain.PostCreated, Payload: map[string]interface{}{"id": 2}}

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{first, second, other}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e sharedEvents.IntegrationEvent) bool { return e.Key == "1" })).
		Return(errors.New("broker down")).Once()
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e sharedEvents.IntegrationEvent) bool { return e.Key == "2" })).
		Return(nil).Once()
	repo.On("MarkOutboxProcessed", mock.Anything, other.ID).Return(nil).Once()

	worker := NewOutboxWorker(repo, publisher, postDomain.NewEventRegistry(), time.Second, 10, zap.NewNop())

	assert.Equal(t, 1, worker.ProcessBatch(context.Background()))
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
	publisher.AssertNumberOfCalls(t, "Publish", 2)
}

func TestOutboxWorker_StartDrainsFullBatches(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	batch := func(id string) sharedDomain.OutboxEvent {
		return sharedDomain.OutboxEvent{ID: uuid.New(), AggregateType: "post", AggregateID: id, EventType: postDomain.PostCreated, Payload: map[string]interface{}{"id": 1}}
	}
	repo.On("FetchPendingOutbox", mock.Anything, 2).Return([]sharedDomain.OutboxEvent{batch("1"), batch("2")}, nil).Once()
	repo.On("FetchPendingOutbox", mock.Anything, 2).Return([]sharedDomain.OutboxEvent{batch("3")}, nil).Once()
	repo.On("FetchPendingOutbox", mock.Anything, 2).Return([]sharedDomain.OutboxEvent(nil), nil).Maybe()
	repo.On("MarkOutboxProcessed", mock.Anything, mock.Anything).Return(nil)
	var sent atomic.Int32
	publisher.On("Publish", mock.Anything, mock.Anything).Run(func(mock.Arguments) { sent.Add(1) }).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	worker := NewOutboxWorker(repo, publisher, postDomain.NewEventRegistry(), time.Hour, 2, zap.NewNop())
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sent.Load() == 3 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	publisher.AssertNumberOfCalls(t, "Publish", 3)
	repo.AssertNumberOfCalls(t, "FetchPendingOutbox", 2)
}
