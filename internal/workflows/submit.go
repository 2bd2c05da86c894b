package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/usecases"
)

// SubmitInput is the input for the submit workflow.
type SubmitInput struct {
	PhoneNumber string
	Location    string
	Delay       time.Duration
}

// SubmitRecordWorkflow waits out the submit delay on a durable timer, then
// commits the record. The record id is fixed before the first attempt, so a
// retried AddRecord whose earlier attempt already committed returns that
// record instead of appending a second one.
func SubmitRecordWorkflow(ctx workflow.Context, input SubmitInput) (*domain.PhoneRecord, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting submit workflow", "location", input.Location, "delay", input.Delay)

	if input.Delay > 0 {
		if err := workflow.Sleep(ctx, input.Delay); err != nil {
			return nil, err
		}
	}

	var id string
	if err := workflow.SideEffect(ctx, func(workflow.Context) interface{} {
		return usecases.NewRecordID()
	}).Get(&id); err != nil {
		return nil, err
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var rec domain.PhoneRecord
	if err := workflow.ExecuteActivity(ctx, "AddRecord", id, input.PhoneNumber, input.Location).Get(ctx, &rec); err != nil {
		return nil, err
	}

	logger.Info("Record submitted", "id", rec.ID)
	return &rec, nil
}
