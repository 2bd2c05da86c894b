package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/phonemap/internal/adapters/memory"
	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/usecases"
)

func newRecords(t *testing.T) *usecases.RecordService {
	t.Helper()
	records := usecases.NewRecordService(memory.New(), nil)
	require.NoError(t, records.Init(context.Background()))
	return records
}

func TestSubmitRecordWorkflow_Commits(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	records := newRecords(t)
	env.RegisterWorkflow(SubmitRecordWorkflow)
	env.RegisterActivity(&Activities{Records: records})

	var timers int
	env.SetOnTimerScheduledListener(func(timerID string, duration time.Duration) {
		timers++
		require.Equal(t, time.Second, duration)
	})

	env.ExecuteWorkflow(SubmitRecordWorkflow, SubmitInput{
		PhoneNumber: "0812345678",
		Location:    "Surabaya",
		Delay:       time.Second,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	require.Equal(t, 1, timers)

	var rec domain.PhoneRecord
	require.NoError(t, env.GetWorkflowResult(&rec))
	require.Equal(t, "Surabaya", rec.Location)
	require.Equal(t, 1, records.Count())
}

func TestSubmitRecordWorkflow_NoDelaySkipsTimer(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(&Activities{Records: newRecords(t)})

	env.SetOnTimerScheduledListener(func(timerID string, duration time.Duration) {
		t.Errorf("unexpected timer of %s", duration)
	})

	env.ExecuteWorkflow(SubmitRecordWorkflow, SubmitInput{PhoneNumber: "0812345678", Location: "Depok"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}

func TestSubmitRecordWorkflow_ValidationIsNotRetried(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	records := newRecords(t)
	env.RegisterActivity(&Activities{Records: records})

	var attempts int
	env.SetOnActivityStartedListener(func(info *activity.Info, ctx context.Context, args converter.EncodedValues) {
		attempts++
	})

	env.ExecuteWorkflow(SubmitRecordWorkflow, SubmitInput{PhoneNumber: "12345", Location: "Jakarta"})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	require.Equal(t, 1, attempts)
	require.Equal(t, 0, records.Count())

	var ve *domain.ValidationError
	require.True(t, errors.As(fromWorkflowError(err), &ve))
	require.Equal(t, "phoneNumber", ve.Field)
}

func TestSubmitRecordWorkflow_StorageFailureRetries(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	acts := &Activities{}
	env.RegisterActivity(acts)
	env.OnActivity(acts.AddRecord, mock.Anything, mock.Anything, "0812345678", "Bogor").
		Return(nil, errors.New("disk full")).Times(3)

	env.ExecuteWorkflow(SubmitRecordWorkflow, SubmitInput{PhoneNumber: "0812345678", Location: "Bogor"})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	require.False(t, domain.IsValidation(fromWorkflowError(err)))

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	env.AssertExpectations(t)
}

func TestSubmitRecordWorkflow_RetryAfterLostResultDoesNotDuplicate(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	records := newRecords(t)
	acts := &Activities{Records: records}
	env.RegisterActivity(acts)

	var ids []string
	env.OnActivity(acts.AddRecord, mock.Anything, mock.Anything, "0812345678", "Medan").Return(
		func(ctx context.Context, id, phoneNumber, location string) (*domain.PhoneRecord, error) {
			ids = append(ids, id)
			rec, err := records.AddWithID(ctx, id, phoneNumber, location)
			if len(ids) == 1 {
				// committed, but the worker never reports back
				return nil, errors.New("activity timed out")
			}
			return rec, err
		})

	env.ExecuteWorkflow(SubmitRecordWorkflow, SubmitInput{PhoneNumber: "0812345678", Location: "Medan"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	require.Len(t, ids, 2)
	require.Equal(t, ids[0], ids[1])
	require.Equal(t, 1, records.Count())

	var rec domain.PhoneRecord
	require.NoError(t, env.GetWorkflowResult(&rec))
	require.Equal(t, ids[0], rec.ID)
}
