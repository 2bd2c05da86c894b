package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/usecases"
	"github.com/samirrijal/phonemap/internal/pkg/telemetry"
)

// ValidationErrorType tags application errors carrying a rejected field.
// Their details are the field name and the reason, in that order.
const ValidationErrorType = "ValidationError"

// IDConflictType tags application errors for an id already naming another record.
const IDConflictType = "IDConflict"

// Activities holds the activity implementations for the submit workflow.
type Activities struct {
	Records *usecases.RecordService
}

// AddRecord commits the record under id. Repeating it after a committed
// attempt returns the stored record. Rejected input and id conflicts fail
// without retry.
func (a *Activities) AddRecord(ctx context.Context, id, phoneNumber, location string) (*domain.PhoneRecord, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRecordAdd)
	defer span.End()

	rec, err := a.Records.AddWithID(ctx, id, phoneNumber, location)
	if err != nil {
		span.RecordError(err)
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return nil, temporal.NewNonRetryableApplicationError(ve.Error(), ValidationErrorType, nil, ve.Field, ve.Reason)
	}
	if errors.Is(err, domain.ErrIDConflict) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), IDConflictType, err)
	}
	if err != nil {
		return nil, fmt.Errorf("add record: %w", err)
	}
	activity.GetLogger(ctx).Info("record added", "id", rec.ID, "location", rec.Location)
	return rec, nil
}
