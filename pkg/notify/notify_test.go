package notify_test

import (
	"sync"
	"testing"

	"github.com/kiai-dev/kiai/pkg/notify"
)

// recorder captures delivered notices for verification.
type recorder struct {
	notices []notify.Notice
}

func (r *recorder) Notify(n notify.Notice) {
	r.notices = append(r.notices, n)
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name     string
		show     func(notify.Notifier, string)
		severity notify.Severity
		duration int64
	}{
		{"success", notify.Success, notify.SeveritySuccess, int64(notify.DefaultDuration)},
		{"error", notify.Error, notify.SeverityError, int64(notify.ErrorDuration)},
		{"warning", notify.Warning, notify.SeverityWarning, int64(notify.DefaultDuration)},
		{"info", notify.Info, notify.SeverityInfo, int64(notify.DefaultDuration)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &recorder{}
			tc.show(r, "hello")

			if len(r.notices) != 1 {
				t.Fatalf("expected 1 notice, got %d", len(r.notices))
			}
			n := r.notices[0]
			if n.Text != "hello" {
				t.Errorf("expected text 'hello', got %q", n.Text)
			}
			if n.Severity != tc.severity {
				t.Errorf("expected severity %q, got %q", tc.severity, n.Severity)
			}
			if int64(n.Duration) != tc.duration {
				t.Errorf("expected duration %v, got %v", tc.duration, n.Duration)
			}
		})
	}
}

func TestQueueDeliversInOrder(t *testing.T) {
	q := &notify.Queue{}
	notify.Info(q, "first")
	notify.Warning(q, "second")

	if q.Len() != 2 {
		t.Fatalf("expected 2 queued, got %d", q.Len())
	}

	r := &recorder{}
	if n := q.DeliverTo(r); n != 2 {
		t.Errorf("expected 2 delivered, got %d", n)
	}
	if r.notices[0].Text != "first" || r.notices[1].Text != "second" {
		t.Errorf("unexpected order: %+v", r.notices)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue after delivery, got %d", q.Len())
	}
}

func TestQueueConcurrentPush(t *testing.T) {
	q := &notify.Queue{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			notify.Info(q, "x")
		}()
	}
	wg.Wait()

	if got := len(q.Drain()); got != 50 {
		t.Errorf("expected 50 notices, got %d", got)
	}
}

func TestDiscard(t *testing.T) {
	notify.Error(notify.Discard, "ignored")
}
