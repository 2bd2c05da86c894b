package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/ports"
	"github.com/samirrijal/phonemap/internal/pkg/telemetry"
)

// ShellService backs the form and list views: it submits, deletes and
// locates records and reports each outcome on the notice board.
type ShellService struct {
	records   *RecordService
	submitter ports.Submitter
	notices   *NoticeBoard

	mu       sync.Mutex
	selected *domain.PhoneRecord
}

// NewShellService creates a new ShellService.
func NewShellService(records *RecordService, submitter ports.Submitter, notices *NoticeBoard) *ShellService {
	s := &ShellService{records: records, submitter: submitter, notices: notices}
	records.Subscribe(s.onChange)
	return s
}

// Submit validates the form input and commits it through the submitter.
func (s *ShellService) Submit(ctx context.Context, phoneNumber, location string) (*domain.PhoneRecord, error) {
	if err := s.records.Validate(phoneNumber, location); err != nil {
		s.notices.Push(domain.NoticeError, err.Error())
		return nil, err
	}

	rec, err := s.submitter.Submit(ctx, phoneNumber, location)
	if err != nil {
		s.notices.Push(domain.NoticeError, "Gagal menyimpan nomor")
		return nil, err
	}

	s.notices.Push(domain.NoticeSuccess, fmt.Sprintf("Nomor %s berhasil disimpan!", rec.PhoneNumber))
	return rec, nil
}

// Delete removes a record and reports whether it existed. Deleting an
// unknown id succeeds silently.
func (s *ShellService) Delete(ctx context.Context, id string) (bool, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return false, nil
	}
	removed, err := s.records.Remove(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		s.notices.Push(domain.NoticeError, fmt.Sprintf("Nomor %s telah dihapus!", rec.PhoneNumber))
	}
	return removed, nil
}

// Locate focuses a record from the list view.
func (s *ShellService) Locate(ctx context.Context, id string) (*domain.PhoneRecord, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setSelected(rec)
	s.notices.Push(domain.NoticeInfo, fmt.Sprintf("Menampilkan lokasi %s", rec.PhoneNumber))
	return rec, nil
}

// MarkerClicked focuses the record behind a clicked map marker.
func (s *ShellService) MarkerClicked(recordID string) {
	rec, err := s.records.Get(context.Background(), recordID)
	if err != nil {
		return
	}
	s.setSelected(rec)
}

// Selected returns the focused record, if any.
func (s *ShellService) Selected() *domain.PhoneRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	rec := *s.selected
	return &rec
}

func (s *ShellService) setSelected(rec *domain.PhoneRecord) {
	s.mu.Lock()
	s.selected = rec
	s.mu.Unlock()
}

func (s *ShellService) onChange(ctx context.Context, change Change) {
	if change.Event.Type != domain.EventRecordRemoved {
		return
	}
	s.mu.Lock()
	if s.selected != nil && s.selected.ID == change.Event.Record.ID {
		s.selected = nil
	}
	s.mu.Unlock()
}

// DelayedSubmitter commits records after a fixed, uninterruptible delay that
// stands in for network latency.
type DelayedSubmitter struct {
	records *RecordService
	delay   time.Duration
	sleep   func(time.Duration)
}

// NewDelayedSubmitter creates a new DelayedSubmitter.
func NewDelayedSubmitter(records *RecordService, delay time.Duration) *DelayedSubmitter {
	return &DelayedSubmitter{records: records, delay: delay, sleep: time.Sleep}
}

// Submit waits for the configured delay, then adds the record.
func (d *DelayedSubmitter) Submit(ctx context.Context, phoneNumber, location string) (*domain.PhoneRecord, error) {
	if err := d.records.Validate(phoneNumber, location); err != nil {
		return nil, err
	}
	if d.delay > 0 {
		d.sleep(d.delay)
	}

	ctx, span := telemetry.Tracer().Start(context.WithoutCancel(ctx), telemetry.SpanRecordAdd)
	defer span.End()
	rec, err := d.records.Add(ctx, phoneNumber, location)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("record.id", rec.ID), attribute.String("record.location", rec.Location))
	return rec, nil
}
