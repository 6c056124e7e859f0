package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/lingualink/internal/models"
	"github.com/yoockh/lingualink/internal/services"
	"github.com/yoockh/lingualink/internal/utils"
)

// CallWatcher is the caller-side discovery loop: after creating a session the
// caller polls it by id until it reaches connected or ended, surfacing each
// status change. It also enforces the caller's own waiting deadline as a
// fallback to the server-side sweeper; both use conditional writes, so only
// one of them ever wins.
type CallWatcher struct {
	Calls  services.CallService
	Logger *logrus.Logger

	Interval time.Duration // default 1s
	Deadline time.Duration // default 60s in waiting before giving up
}

// Watch polls the session and emits a snapshot on every status change. The
// channel closes once the session reaches connected or ended, or the context
// is cancelled.
func (w *CallWatcher) Watch(ctx context.Context, callID string) <-chan models.CallSession {
	if w.Interval <= 0 {
		w.Interval = time.Second
	}
	if w.Deadline <= 0 {
		w.Deadline = 60 * time.Second
	}
	log := w.Logger
	if log == nil {
		log = logrus.New()
	}

	out := make(chan models.CallSession, 8)

	go func() {
		defer close(out)

		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()

		var last models.CallStatus

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			sess, err := w.Calls.Get(ctx, callID)
			if err != nil {
				log.WithError(err).WithField("call_id", callID).Warn("call poll failed")
				continue
			}

			if sess.Status == models.StatusWaiting && time.Since(sess.StartedAt) > w.Deadline {
				ended, err := w.Calls.End(ctx, callID, models.OutcomeNoAgent)
				switch {
				case err == nil:
					sess = ended
				case utils.IsCode(err, utils.CodeStaleState):
					// the sweeper or an agent beat us to it; resync
					if cur, gerr := w.Calls.Get(ctx, callID); gerr == nil {
						sess = cur
					}
				default:
					log.WithError(err).WithField("call_id", callID).Warn("deadline end failed")
				}
			}

			if sess.Status != last {
				last = sess.Status
				select {
				case out <- *sess:
				case <-ctx.Done():
					return
				}
			}

			if sess.Status == models.StatusConnected || sess.Status == models.StatusEnded {
				return
			}
		}
	}()

	return out
}
