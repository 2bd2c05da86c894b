package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/usecases"
)

type mockSubmitter struct {
	submitFn func(ctx context.Context, phoneNumber, location string) (*domain.PhoneRecord, error)
}

func (m *mockSubmitter) Submit(ctx context.Context, phoneNumber, location string) (*domain.PhoneRecord, error) {
	return m.submitFn(ctx, phoneNumber, location)
}

func newShell(t *testing.T) (*usecases.ShellService, *usecases.RecordService, *usecases.NoticeBoard) {
	t.Helper()
	records := newService(t, newMockBlobStore())
	notices := usecases.NewNoticeBoard(time.Minute)
	t.Cleanup(notices.Close)
	shell := usecases.NewShellService(records, usecases.NewDelayedSubmitter(records, 0), notices)
	return shell, records, notices
}

func lastNotice(t *testing.T, b *usecases.NoticeBoard) domain.Notice {
	t.Helper()
	active := b.Active()
	if len(active) == 0 {
		t.Fatal("expected a notice")
	}
	return active[len(active)-1]
}

func TestShell_SubmitSuccess(t *testing.T) {
	shell, records, notices := newShell(t)

	rec, err := shell.Submit(context.Background(), "0812345678", "Jakarta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records.Count() != 1 {
		t.Errorf("expected 1 record, got %d", records.Count())
	}
	n := lastNotice(t, notices)
	if n.Kind != domain.NoticeSuccess || n.Message != "Nomor "+rec.PhoneNumber+" berhasil disimpan!" {
		t.Errorf("unexpected notice %+v", n)
	}
}

func TestShell_SubmitInvalid(t *testing.T) {
	shell, records, notices := newShell(t)

	_, err := shell.Submit(context.Background(), "abc", "Jakarta")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if records.Count() != 0 {
		t.Error("invalid submission must not be committed")
	}
	if n := lastNotice(t, notices); n.Kind != domain.NoticeError {
		t.Errorf("expected error notice, got %+v", n)
	}
}

func TestShell_SubmitterFailure(t *testing.T) {
	records := newService(t, newMockBlobStore())
	notices := usecases.NewNoticeBoard(time.Minute)
	defer notices.Close()
	shell := usecases.NewShellService(records, &mockSubmitter{
		submitFn: func(ctx context.Context, phoneNumber, location string) (*domain.PhoneRecord, error) {
			return nil, errors.New("workflow unavailable")
		},
	}, notices)

	if _, err := shell.Submit(context.Background(), "0812345678", "Jakarta"); err == nil {
		t.Fatal("expected error")
	}
	if n := lastNotice(t, notices); n.Kind != domain.NoticeError {
		t.Errorf("expected error notice, got %+v", n)
	}
}

func TestShell_LocateAndDeleteClearsSelection(t *testing.T) {
	shell, records, notices := newShell(t)
	rec, _ := shell.Submit(context.Background(), "0812345678", "Medan")

	if _, err := shell.Locate(context.Background(), rec.ID); err != nil {
		t.Fatalf("locate: %v", err)
	}
	if sel := shell.Selected(); sel == nil || sel.ID != rec.ID {
		t.Fatalf("expected %s selected, got %+v", rec.ID, sel)
	}
	if n := lastNotice(t, notices); n.Kind != domain.NoticeInfo || !strings.Contains(n.Message, "Menampilkan lokasi") {
		t.Errorf("unexpected notice %+v", n)
	}

	removed, err := shell.Delete(context.Background(), rec.ID)
	if err != nil || !removed {
		t.Fatalf("delete: %v %v", removed, err)
	}
	if shell.Selected() != nil {
		t.Error("selection should clear when its record is removed")
	}
	if records.Count() != 0 {
		t.Error("record not removed")
	}
	if n := lastNotice(t, notices); n.Message != "Nomor 0812345678 telah dihapus!" {
		t.Errorf("unexpected notice %+v", n)
	}
}

func TestShell_DeleteUnknownIsSilent(t *testing.T) {
	shell, _, notices := newShell(t)
	removed, err := shell.Delete(context.Background(), "missing")
	if err != nil || removed {
		t.Fatalf("unexpected result %v %v", removed, err)
	}
	if len(notices.Active()) != 0 {
		t.Error("unknown delete must not notify")
	}
}

func TestShell_LocateUnknown(t *testing.T) {
	shell, _, _ := newShell(t)
	if _, err := shell.Locate(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestShell_MarkerClicked(t *testing.T) {
	shell, records, notices := newShell(t)
	rec, _ := records.Add(context.Background(), "0812345678", "Depok")

	shell.MarkerClicked(rec.ID)
	if sel := shell.Selected(); sel == nil || sel.ID != rec.ID {
		t.Errorf("expected selection, got %+v", sel)
	}
	if len(notices.Active()) != 0 {
		t.Error("marker click must not notify")
	}
}

func TestDelayedSubmitter_WaitsBeforeCommit(t *testing.T) {
	records := newService(t, newMockBlobStore())
	sub := usecases.NewDelayedSubmitter(records, 30*time.Millisecond)

	start := time.Now()
	rec, err := sub.Submit(context.Background(), "0812345678", "Bekasi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("returned after %v, before the delay", elapsed)
	}
	if _, err := records.Get(context.Background(), rec.ID); err != nil {
		t.Errorf("record not committed: %v", err)
	}
}

func TestDelayedSubmitter_IgnoresCancellation(t *testing.T) {
	records := newService(t, newMockBlobStore())
	sub := usecases.NewDelayedSubmitter(records, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sub.Submit(ctx, "0812345678", "Bekasi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records.Count() != 1 {
		t.Error("cancelled caller should still commit")
	}
}
