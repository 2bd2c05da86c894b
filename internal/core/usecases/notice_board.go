package usecases

import (
	"fmt"
	"sync"
	"time"

	"github.com/samirrijal/phonemap/internal/core/domain"
)

// DefaultNoticeTTL is how long a notice stays visible.
const DefaultNoticeTTL = 3 * time.Second

// NoticeBoard holds transient notices that dismiss themselves after a TTL.
type NoticeBoard struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	seq      int
	notices  []domain.Notice
	timers   map[string]*time.Timer
	onChange func([]domain.Notice)
	closed   bool
}

// NewNoticeBoard creates a NoticeBoard. A non-positive ttl uses DefaultNoticeTTL.
func NewNoticeBoard(ttl time.Duration) *NoticeBoard {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return &NoticeBoard{
		ttl:    ttl,
		now:    time.Now,
		timers: make(map[string]*time.Timer),
	}
}

// OnChange registers fn to receive the active notices after every change.
func (b *NoticeBoard) OnChange(fn func([]domain.Notice)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Push shows a notice and schedules its dismissal.
func (b *NoticeBoard) Push(kind, message string) domain.Notice {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return domain.Notice{}
	}
	b.seq++
	now := b.now()
	n := domain.Notice{
		ID:        fmt.Sprintf("n-%d", b.seq),
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(b.ttl),
	}
	b.notices = append(b.notices, n)
	id := n.ID
	b.timers[id] = time.AfterFunc(b.ttl, func() { b.Dismiss(id) })
	b.mu.Unlock()

	b.changed()
	return n
}

// Dismiss removes a notice early. It reports whether the notice was active.
func (b *NoticeBoard) Dismiss(id string) bool {
	b.mu.Lock()
	found := false
	for i, n := range b.notices {
		if n.ID == id {
			b.notices = append(b.notices[:i], b.notices[i+1:]...)
			found = true
			break
		}
	}
	if t, ok := b.timers[id]; ok {
		t.Stop()
		delete(b.timers, id)
	}
	b.mu.Unlock()

	if found {
		b.changed()
	}
	return found
}

// Active returns the visible notices, oldest first.
func (b *NoticeBoard) Active() []domain.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Notice, len(b.notices))
	copy(out, b.notices)
	return out
}

// Close cancels pending dismissals and clears the board.
func (b *NoticeBoard) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, t := range b.timers {
		t.Stop()
		delete(b.timers, id)
	}
	b.notices = nil
	b.closed = true
}

func (b *NoticeBoard) changed() {
	b.mu.Lock()
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn(b.Active())
	}
}
