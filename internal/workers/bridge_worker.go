package workers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/lingualink/internal/bridge"
	"github.com/yoockh/lingualink/internal/models"
	mongorepo "github.com/yoockh/lingualink/internal/repositories/mongo"
	"github.com/yoockh/lingualink/internal/services"
)

// BridgeWorker owns the translation bridge of a connected call: it opens the
// bridge when the call connects, fans the bridge's events out on the call's
// Redis channel, archives transcripts, and tears the bridge down when the
// call ends. Teardown is idempotent and independent of the other endCall
// cancellations.
type BridgeWorker struct {
	Transcripts mongorepo.TranscriptRepository // optional archive
	Redis       *redis.Client                  // optional live fan-out
	Registry    *bridge.Registry
	Deps        bridge.Deps
	Logger      *logrus.Logger
}

// Attach opens the bridge for a connected call and starts pumping its events.
// The caller decides what to do with establishment errors; nothing is left
// half-open on failure.
func (w *BridgeWorker) Attach(ctx context.Context, call *models.CallSession) (*bridge.Session, error) {
	log := w.logger().WithField("call_id", call.ID)

	if existing, ok := w.Registry.Get(call.ID); ok {
		return existing, nil
	}

	target := call.CallerLanguage
	if call.AgentLanguage != nil {
		target = *call.AgentLanguage
	}

	sess, err := bridge.Open(ctx, bridge.Config{
		SourceLanguage: call.CallerLanguage,
		TargetLanguage: target,
	}, w.Deps)
	if err != nil {
		return nil, err
	}

	w.Registry.Put(call.ID, sess)
	go w.pump(call.ID, sess, log)

	log.Info("bridge attached")
	return sess, nil
}

// Detach hangs up and forgets the call's bridge. Safe to call when no bridge
// exists or when it already failed.
func (w *BridgeWorker) Detach(callID string) {
	if sess, ok := w.Registry.Remove(callID); ok {
		sess.Hangup()
		w.logger().WithField("call_id", callID).Info("bridge detached")
	}
}

func (w *BridgeWorker) pump(callID string, sess *bridge.Session, log *logrus.Entry) {
	var seq int64

	for ev := range sess.Events() {
		w.publish(callID, ev)

		switch e := ev.(type) {
		case *bridge.SourceTranscriptEvent:
			seq++
			w.archive(callID, seq, models.TranscriptSource, sess.Snapshot().SourceLanguage, e.Text, log)
		case *bridge.TranslationDoneEvent:
			seq++
			w.archive(callID, seq, models.TranscriptTranslation, sess.Snapshot().TargetLanguage, e.Text, log)
		case *bridge.ErrorEvent:
			log.WithFields(logrus.Fields{
				"stage": e.Stage,
				"code":  e.Code,
			}).Warn("bridge error event")
		}
	}

	// stream over: either hangup or transport failure; both end the same way
	w.Detach(callID)
}

func (w *BridgeWorker) archive(callID string, seq int64, kind models.TranscriptKind, language, text string, log *logrus.Entry) {
	if w.Transcripts == nil || text == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := w.Transcripts.Append(ctx, &models.CallTranscript{
		CallID:   callID,
		Seq:      seq,
		Kind:     kind,
		Language: language,
		Text:     text,
	})
	if err != nil {
		log.WithError(err).Warn("transcript archive failed")
	}
}

func (w *BridgeWorker) publish(callID string, ev bridge.Event) {
	if w.Redis == nil {
		return
	}
	body := map[string]any{"type": ev.EventType(), "call_id": callID, "event": ev}
	payload, err := json.Marshal(body)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = w.Redis.Publish(ctx, services.CallEventsChannel(callID), string(payload)).Err()
}

func (w *BridgeWorker) logger() *logrus.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return logrus.New()
}
