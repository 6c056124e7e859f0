package workers

import (
	"context"
	"testing"
	"time"

	"github.com/yoockh/lingualink/internal/models"
)

func collect(t *testing.T, ch <-chan models.CallSession, d time.Duration) []models.CallSession {
	t.Helper()
	var out []models.CallSession
	timeout := time.After(d)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, s)
		case <-timeout:
			t.Fatalf("watch channel did not close; got %d updates", len(out))
		}
	}
}

func TestCallWatcher_SurfacesRingingThenConnected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.calls.Start(ctx, "caller-1", "marathi", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	w := &CallWatcher{Calls: env.calls, Interval: 5 * time.Millisecond, Deadline: time.Minute}
	watchCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	ch := w.Watch(watchCtx, sess.ID)

	// drive the call while the watcher polls
	go func() {
		time.Sleep(20 * time.Millisecond)
		if _, err := env.calls.Claim(ctx, sess.ID, "agent-1", "english"); err != nil {
			t.Errorf("claim: %v", err)
			return
		}
		time.Sleep(20 * time.Millisecond)
		if _, err := env.calls.Answer(ctx, sess.ID); err != nil {
			t.Errorf("answer: %v", err)
		}
	}()

	updates := collect(t, ch, 2*time.Second)
	if len(updates) == 0 {
		t.Fatal("no updates")
	}
	last := updates[len(updates)-1]
	if last.Status != models.StatusConnected {
		t.Errorf("final status = %s, want connected", last.Status)
	}
	for i := 1; i < len(updates); i++ {
		if updates[i].Status == updates[i-1].Status {
			t.Errorf("duplicate status %s at %d", updates[i].Status, i)
		}
	}
}

func TestCallWatcher_SurfacesCancellation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.calls.Start(ctx, "caller-1", "spanish", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	w := &CallWatcher{Calls: env.calls, Interval: 5 * time.Millisecond, Deadline: time.Minute}
	watchCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	ch := w.Watch(watchCtx, sess.ID)

	go func() {
		time.Sleep(20 * time.Millisecond)
		if _, err := env.calls.End(ctx, sess.ID, models.OutcomeCancelled); err != nil {
			t.Errorf("end: %v", err)
		}
	}()

	updates := collect(t, ch, 2*time.Second)
	last := updates[len(updates)-1]
	if last.Status != models.StatusEnded {
		t.Errorf("final status = %s, want ended", last.Status)
	}
	if last.Outcome != models.OutcomeCancelled {
		t.Errorf("outcome = %s, want cancelled", last.Outcome)
	}
}

func TestCallWatcher_DeadlineEndsUnansweredCall(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.calls.Start(ctx, "caller-1", "hindi", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	w := &CallWatcher{Calls: env.calls, Interval: 5 * time.Millisecond, Deadline: 20 * time.Millisecond}
	watchCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	updates := collect(t, w.Watch(watchCtx, sess.ID), 2*time.Second)
	last := updates[len(updates)-1]
	if last.Status != models.StatusEnded {
		t.Errorf("final status = %s, want ended", last.Status)
	}
	if last.Outcome != models.OutcomeNoAgent {
		t.Errorf("outcome = %s, want no_agent", last.Outcome)
	}
	if last.DurationSeconds == nil || *last.DurationSeconds != 0 {
		t.Errorf("duration = %v, want 0 for a never-connected call", last.DurationSeconds)
	}
}

func TestCallWatcher_SurfacesServerSideExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.calls.Start(ctx, "caller-1", "german", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// a server-side expiry lands before the watcher's own deadline write
	if _, err := env.repo.ExpireWaiting(ctx, time.Now().UTC().Add(time.Second)); err != nil {
		t.Fatalf("expire: %v", err)
	}

	w := &CallWatcher{Calls: env.calls, Interval: 5 * time.Millisecond, Deadline: time.Minute}
	watchCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	updates := collect(t, w.Watch(watchCtx, sess.ID), 2*time.Second)
	last := updates[len(updates)-1]
	if last.Status != models.StatusEnded {
		t.Errorf("final status = %s, want ended", last.Status)
	}
	if last.Outcome != models.OutcomeNoAgent {
		t.Errorf("outcome = %s, want no_agent", last.Outcome)
	}
}
