package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/domain/shared"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/nutriplan/test/testutils"
)

func samplePlan() mealplan.PlanGeneratedEvent {
	chicken := testutils.NewProfile("Grilled Chicken Breast", 35, 5, 2, 200)
	event := mealplan.NewPlanGeneratedEvent(&mealplan.Result{
		Entries:      []mealplan.Entry{mealplan.NewEntry(chicken, 0.92, "")},
		Achievement:  map[nutrition.Nutrient]float64{nutrition.Protein: 100},
		Message:      mealplan.BandMessage(100),
		SolverStatus: "optimal",
	})
	event.GeneratedAt = time.Date(2024, 3, 9, 8, 30, 0, 0, time.UTC)
	return event
}

func TestPublisherRecordsPlans(t *testing.T) {
	ctx := context.Background()
	plans := memory.NewPlanRepository(10)
	publisher := NewPublisher(shared.NewEventDispatcher(), time.Second, zap.NewNop())
	publisher.Subscribe("mealplan.generated", NewPlanRecorder(plans, zap.NewNop()).Handle)

	event := samplePlan()
	require.NoError(t, publisher.Publish(ctx, event))

	stored, err := plans.FindByID(ctx, event.PlanID)
	require.NoError(t, err)
	assert.Equal(t, event.Message, stored.Message)
	assert.Equal(t, 1, stored.RecipeCount())
}

func TestPublisherRunsAllHandlersAndReportsFirstError(t *testing.T) {
	publisher := NewPublisher(shared.NewEventDispatcher(), time.Second, zap.NewNop())
	boom := errors.New("boom")

	var mu sync.Mutex
	var calls []string
	record := func(name string, err error) shared.EventHandler {
		return func(ctx context.Context, event shared.DomainEvent) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline, "handlers run under a timeout")
			mu.Lock()
			calls = append(calls, name)
			mu.Unlock()
			return err
		}
	}
	publisher.Subscribe("mealplan.generated", record("first", boom))
	publisher.Subscribe("mealplan.generated", record("second", nil))
	publisher.Subscribe("other.event", record("other", nil))

	err := publisher.Publish(context.Background(), samplePlan())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestPlanRecorderRejectsForeignEvents(t *testing.T) {
	recorder := NewPlanRecorder(memory.NewPlanRepository(1), zap.NewNop())
	err := recorder.Handle(context.Background(), foreignEvent{})
	assert.Error(t, err)
}

type foreignEvent struct{}

func (foreignEvent) EventName() string     { return "recipe.changed" }
func (foreignEvent) OccurredAt() time.Time { return time.Time{} }

func TestEncodeEnvelope(t *testing.T) {
	event := samplePlan()
	data, err := Encode(event)
	require.NoError(t, err)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, "mealplan.generated", envelope.Event)
	assert.True(t, envelope.OccurredAt.Equal(event.GeneratedAt))

	var payload mealplan.PlanGeneratedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, event.PlanID, payload.PlanID)
}

func TestSaramaConfig(t *testing.T) {
	cfg := &config.KafkaConfig{ClientID: "nutriplan", RetryMax: 5, RequiredAcks: -1}
	sc := NewSaramaConfig(cfg)
	assert.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
	assert.Equal(t, 5, sc.Producer.Retry.Max)
	assert.True(t, sc.Producer.Return.Successes)
	assert.NoError(t, sc.Validate())
}

func TestKafkaPublisherSendsEnvelope(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	event := samplePlan()

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var envelope Envelope
		if err := json.Unmarshal(val, &envelope); err != nil {
			return err
		}
		if envelope.Event != "mealplan.generated" {
			return errors.New("unexpected event " + envelope.Event)
		}
		return nil
	})

	publisher := NewKafkaPublisherWithProducer(producer, "nutriplan.mealplan.generated", zap.NewNop())
	require.NoError(t, publisher.Handle(context.Background(), event))
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisherReportsFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	publisher := NewKafkaPublisherWithProducer(producer, "plans", zap.NewNop())
	err := publisher.Handle(context.Background(), samplePlan())
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisherHonorsCancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	publisher := NewKafkaPublisherWithProducer(producer, "plans", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, publisher.Handle(ctx, samplePlan()), context.Canceled)
	require.NoError(t, publisher.Close())
}

// fakeS3 records uploads
type fakeS3 struct {
	s3iface.S3API
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3ArchiverUploadsPlan(t *testing.T) {
	client := &fakeS3{}
	archiver := NewS3ArchiverWithClient(client, "plans-bucket", "meal-plans/", zap.NewNop())
	event := samplePlan()

	key := archiver.ObjectKey(event)
	assert.Equal(t, "meal-plans/2024/03/09/"+event.PlanID.String()+".json", key)

	require.NoError(t, archiver.Handle(context.Background(), event))
	body, ok := client.objects["plans-bucket/"+key]
	require.True(t, ok)
	assert.True(t, strings.Contains(string(body), event.PlanID.String()))
}

func TestS3ArchiverWrapsErrors(t *testing.T) {
	uploadErr := errors.New("access denied")
	archiver := NewS3ArchiverWithClient(&fakeS3{err: uploadErr}, "b", "", zap.NewNop())

	err := archiver.Handle(context.Background(), samplePlan())
	assert.ErrorIs(t, err, uploadErr)
}

func TestMessageKeyUsesPlanID(t *testing.T) {
	event := samplePlan()
	assert.Equal(t, event.PlanID.String(), messageKey(event))
	assert.Equal(t, "recipe.changed", messageKey(foreignEvent{}))
	assert.NotEqual(t, uuid.Nil, event.PlanID)
}
