package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yoockh/lingualink/internal/bridge"
	"github.com/yoockh/lingualink/internal/models"
)

type stubTokens struct{}

func (stubTokens) FetchCredential(ctx context.Context) (bridge.Credential, error) {
	return bridge.Credential{Token: "ephemeral"}, nil
}

type stubConn struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newStubConn() *stubConn {
	return &stubConn{inbound: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *stubConn) Send(ctx context.Context, v any) error { return nil }

func (c *stubConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, context.Canceled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *stubConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type stubTransport struct {
	conn *stubConn
}

func (t *stubTransport) Connect(ctx context.Context, cred bridge.Credential, cfg *bridge.Config) (bridge.Conn, error) {
	return t.conn, nil
}

type memTranscripts struct {
	mu      sync.Mutex
	entries []models.CallTranscript
}

func (m *memTranscripts) Append(ctx context.Context, t *models.CallTranscript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *t)
	return nil
}

func (m *memTranscripts) ListByCall(ctx context.Context, callID string, limit int64) ([]models.CallTranscript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CallTranscript
	for _, e := range m.entries {
		if e.CallID == callID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memTranscripts) snapshot() []models.CallTranscript {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CallTranscript(nil), m.entries...)
}

func connectedCall() *models.CallSession {
	agent := "agent-1"
	lang := "english"
	return &models.CallSession{
		ID:             "call-1",
		CallerID:       "caller-1",
		AgentID:        &agent,
		Status:         models.StatusConnected,
		CallerLanguage: "spanish",
		AgentLanguage:  &lang,
		StartedAt:      time.Now().UTC(),
	}
}

func newBridgeWorker(conn *stubConn, archive *memTranscripts) *BridgeWorker {
	return &BridgeWorker{
		Transcripts: archive,
		Registry:    bridge.NewRegistry(),
		Deps: bridge.Deps{
			Tokens:    stubTokens{},
			Transport: &stubTransport{conn: conn},
		},
	}
}

func TestBridgeWorker_ArchivesTranscriptsInOrder(t *testing.T) {
	conn := newStubConn()
	archive := &memTranscripts{}
	w := newBridgeWorker(conn, archive)

	if _, err := w.Attach(context.Background(), connectedCall()); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, ok := w.Registry.Get("call-1"); !ok {
		t.Fatal("session not registered")
	}

	conn.inbound <- []byte(`{"type":"conversation.item.input_audio_transcription.completed","transcript":"hola"}`)
	conn.inbound <- []byte(`{"type":"response.audio_transcript.done","transcript":"hello"}`)

	eventually(t, 2*time.Second, func() bool {
		return len(archive.snapshot()) == 2
	})

	entries := archive.snapshot()
	if entries[0].Kind != models.TranscriptSource || entries[0].Text != "hola" || entries[0].Seq != 1 {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[0].Language != "spanish" {
		t.Errorf("source language = %q, want spanish", entries[0].Language)
	}
	if entries[1].Kind != models.TranscriptTranslation || entries[1].Text != "hello" || entries[1].Seq != 2 {
		t.Errorf("second entry = %+v", entries[1])
	}
	if entries[1].Language != "english" {
		t.Errorf("translation language = %q, want english", entries[1].Language)
	}

	w.Detach("call-1")
}

func TestBridgeWorker_DetachTearsDownAndForgets(t *testing.T) {
	conn := newStubConn()
	w := newBridgeWorker(conn, &memTranscripts{})

	if _, err := w.Attach(context.Background(), connectedCall()); err != nil {
		t.Fatalf("attach: %v", err)
	}

	w.Detach("call-1")
	if _, ok := w.Registry.Get("call-1"); ok {
		t.Error("session still registered after detach")
	}

	// idempotent
	w.Detach("call-1")
	w.Detach("never-attached")
}

func TestBridgeWorker_TransportFailureUnregisters(t *testing.T) {
	conn := newStubConn()
	w := newBridgeWorker(conn, &memTranscripts{})

	if _, err := w.Attach(context.Background(), connectedCall()); err != nil {
		t.Fatalf("attach: %v", err)
	}

	// a failing control channel ends the pump, which detaches on its own
	conn.Close()

	eventually(t, 2*time.Second, func() bool {
		_, ok := w.Registry.Get("call-1")
		return !ok
	})
}

func TestBridgeWorker_TargetsTheAgentLanguage(t *testing.T) {
	conn := newStubConn()
	w := newBridgeWorker(conn, &memTranscripts{})

	sess, err := w.Attach(context.Background(), connectedCall())
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer w.Detach("call-1")

	cfg := sess.Snapshot()
	if cfg.SourceLanguage != "spanish" || cfg.TargetLanguage != "english" {
		t.Errorf("config = %s -> %s, want spanish -> english", cfg.SourceLanguage, cfg.TargetLanguage)
	}
}
