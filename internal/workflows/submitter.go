package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/usecases"
)

// TemporalSubmitter runs each submission as a SubmitRecordWorkflow and waits
// for its result.
type TemporalSubmitter struct {
	client    client.Client
	taskQueue string
	delay     time.Duration
}

// NewTemporalSubmitter creates a submitter starting workflows on taskQueue.
func NewTemporalSubmitter(c client.Client, taskQueue string, delay time.Duration) *TemporalSubmitter {
	return &TemporalSubmitter{client: c, taskQueue: taskQueue, delay: delay}
}

// Submit implements ports.Submitter.
func (s *TemporalSubmitter) Submit(ctx context.Context, phoneNumber, location string) (*domain.PhoneRecord, error) {
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "phonemap-submit-" + uuid.NewString(),
		TaskQueue: s.taskQueue,
	}, SubmitRecordWorkflow, SubmitInput{
		PhoneNumber: phoneNumber,
		Location:    location,
		Delay:       s.delay,
	})
	if err != nil {
		return nil, fmt.Errorf("start submit workflow: %w", err)
	}

	var rec domain.PhoneRecord
	if err := run.Get(ctx, &rec); err != nil {
		return nil, fromWorkflowError(err)
	}
	return &rec, nil
}

// fromWorkflowError restores a domain.ValidationError raised by AddRecord.
func fromWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() == ValidationErrorType {
		var field, reason string
		if appErr.Details(&field, &reason) == nil {
			return &domain.ValidationError{Field: field, Reason: reason}
		}
	}
	return fmt.Errorf("submit workflow: %w", err)
}

// NewWorker registers the submit workflow and its activities on taskQueue.
func NewWorker(c client.Client, taskQueue string, records *usecases.RecordService) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(SubmitRecordWorkflow)
	w.RegisterActivity(&Activities{Records: records})
	return w
}
