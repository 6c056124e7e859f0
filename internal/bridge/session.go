package bridge

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/lingualink/internal/utils"
)

// Deps are the collaborators a bridge session is established against.
type Deps struct {
	Tokens    TokenSource
	Transport Transport
	Capture   AudioCapture // optional, defaults to NopCapture
	Logger    *logrus.Logger
}

// Session is the live bridge to the translation capability for one connected
// call. It delivers typed events on Events() and accepts live reconfiguration
// over the already-open control channel.
type Session struct {
	mu   sync.Mutex
	cfg  Config
	conn Conn
	open bool

	capture AudioCapture
	log     *logrus.Logger

	events chan Event
	cancel context.CancelFunc
	once   sync.Once
}

// Open establishes the bridge with a two-phase handshake: mint a short-lived
// credential, acquire local audio, then open the control channel and push the
// initial session configuration. Any failure releases everything acquired so
// far and returns an ESTABLISHMENT error; no partially-open session escapes.
func Open(ctx context.Context, cfg Config, deps Deps) (*Session, error) {
	const op = "bridge.Open"

	if deps.Tokens == nil || deps.Transport == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "token source and transport are required", nil)
	}
	capture := deps.Capture
	if capture == nil {
		capture = NopCapture{}
	}
	log := deps.Logger
	if log == nil {
		log = logrus.New()
	}
	cfg.normalize()

	cred, err := deps.Tokens.FetchCredential(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeEstablishment, op, "credential fetch failed", err)
	}

	if err := capture.Start(ctx); err != nil {
		return nil, utils.E(utils.CodeEstablishment, op, "audio capture failed", err)
	}

	conn, err := deps.Transport.Connect(ctx, cred, &cfg)
	if err != nil {
		_ = capture.Stop()
		return nil, utils.E(utils.CodeEstablishment, op, "control channel connect failed", err)
	}

	if err := conn.Send(ctx, initialUpdate(&cfg)); err != nil {
		_ = capture.Stop()
		_ = conn.Close()
		return nil, utils.E(utils.CodeEstablishment, op, "initial session.update failed", err)
	}

	// The session outlives the establishing request.
	loopCtx, cancel := context.WithCancel(context.Background())

	s := &Session{
		cfg:     cfg,
		conn:    conn,
		open:    true,
		capture: capture,
		log:     log,
		events:  make(chan Event, 64),
		cancel:  cancel,
	}
	go s.readLoop(loopCtx)
	return s, nil
}

// Events delivers the bridge's typed event stream. The channel closes when
// the session ends, whether by Hangup or by a transport failure.
func (s *Session) Events() <-chan Event { return s.events }

// Snapshot returns the session's current configuration.
func (s *Session) Snapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetTargetLanguage re-targets the translation mid-call. This is a live
// control-channel message, not a reconnect: no new credential is fetched.
// Calling it on a closed session is rejected explicitly.
func (s *Session) SetTargetLanguage(lang string) error {
	const op = "bridge.SetTargetLanguage"

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return utils.E(utils.CodeUnavailable, op, "control channel is not open", nil)
	}
	s.cfg.TargetLanguage = lang

	return s.sendUpdateLocked(op, sessionPayload{
		Instructions: s.cfg.instructions(),
	})
}

// SetVoice switches the speaking voice mid-call.
func (s *Session) SetVoice(voice string) error {
	const op = "bridge.SetVoice"

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return utils.E(utils.CodeUnavailable, op, "control channel is not open", nil)
	}
	s.cfg.Voice = voice

	return s.sendUpdateLocked(op, sessionPayload{Voice: voice})
}

// SetTurnDetection adjusts VAD sensitivity mid-call.
func (s *Session) SetTurnDetection(td TurnDetection) error {
	const op = "bridge.SetTurnDetection"

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return utils.E(utils.CodeUnavailable, op, "control channel is not open", nil)
	}
	s.cfg.TurnDetection = td

	return s.sendUpdateLocked(op, sessionPayload{
		TurnDetection: &turnDetectionConfig{
			Type:              "server_vad",
			Threshold:         td.Threshold,
			PrefixPaddingMS:   td.PrefixPaddingMS,
			SilenceDurationMS: td.SilenceDurationMS,
		},
	})
}

func (s *Session) sendUpdateLocked(op string, payload sessionPayload) error {
	msg := sessionUpdate{Type: msgSessionUpdate, Session: payload}
	if err := s.conn.Send(context.Background(), msg); err != nil {
		return utils.E(utils.CodeTransport, op, "session.update send failed", err)
	}
	return nil
}

// Hangup tears the bridge down: local audio capture, control channel, media
// session. Idempotent; additional calls are no-ops.
func (s *Session) Hangup() {
	s.once.Do(func() {
		s.mu.Lock()
		s.open = false
		s.mu.Unlock()

		s.cancel()
		if err := s.capture.Stop(); err != nil {
			s.log.WithError(err).Warn("audio capture stop failed")
		}
		if err := s.conn.Close(); err != nil {
			s.log.WithError(err).Debug("control channel close")
		}
	})
}

func (s *Session) readLoop(ctx context.Context) {
	defer close(s.events)

	for {
		data, err := s.conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return // hangup in progress
			}
			s.emit(&ErrorEvent{Stage: StageTransport, Message: err.Error()})
			return
		}

		ev, err := parseServerEvent(data)
		if err != nil {
			s.log.WithError(err).Warn("unparseable control message")
			continue
		}
		s.dispatch(ev)
	}
}

func (s *Session) dispatch(ev *serverEvent) {
	switch ev.Type {
	case msgSpeechStarted:
		s.emit(&SpeechStartedEvent{})
	case msgSpeechStopped:
		s.emit(&SpeechStoppedEvent{})
	case msgSourceTranscript:
		s.emit(&SourceTranscriptEvent{Text: ev.Transcript})
	case msgTranslationDelta:
		s.emit(&TranslationDeltaEvent{Delta: ev.Delta})
	case msgTranslationDone:
		s.emit(&TranslationDoneEvent{Text: ev.Transcript})
	case msgError:
		e := &ErrorEvent{Stage: StageTransport}
		if ev.Error != nil {
			e.Code = ev.Error.Code
			e.Message = ev.Error.Message
		}
		s.emit(e)
	default:
		// other capability events are not interesting to the call flow
	}
}

func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	default:
		s.log.WithField("event", e.EventType()).Warn("event buffer full, dropping")
	}
}
