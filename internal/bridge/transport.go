package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Credential is the short-lived token minted by the translation capability
// for one bridge session.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// TokenSource acquires the establishment credential. Phase one of the
// two-phase handshake.
type TokenSource interface {
	FetchCredential(ctx context.Context) (Credential, error)
}

// AudioCapture owns the local audio input for the bridge's lifetime.
// Device handling itself lives outside this core; implementations adapt
// whatever audio pipeline the host embeds.
type AudioCapture interface {
	Start(ctx context.Context) error
	Stop() error
}

// NopCapture is the default capture when the host wires audio elsewhere.
type NopCapture struct{}

func (NopCapture) Start(ctx context.Context) error { return nil }
func (NopCapture) Stop() error                     { return nil }

// Conn is the full-duplex control channel to the translation capability.
type Conn interface {
	// Send writes one control message (JSON-encoded).
	Send(ctx context.Context, v any) error
	// Receive blocks for the next inbound control message.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Transport performs phase two of the handshake: it exchanges the session
// offer/answer and opens the control channel using the credential.
type Transport interface {
	Connect(ctx context.Context, cred Credential, cfg *Config) (Conn, error)
}

// --- default HTTP token source ---

// HTTPTokenSource mints ephemeral credentials from the capability's session
// endpoint.
type HTTPTokenSource struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

type credentialResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
	Token string `json:"token"`
}

func (s *HTTPTokenSource) FetchCredential(ctx context.Context) (Credential, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, strings.NewReader("{}"))
	if err != nil {
		return Credential{}, err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Credential{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Credential{}, fmt.Errorf("credential fetch: %d: %s", resp.StatusCode, string(body))
	}

	var out credentialResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Credential{}, err
	}

	cred := Credential{Token: out.ClientSecret.Value}
	if cred.Token == "" {
		cred.Token = out.Token
	}
	if cred.Token == "" {
		return Credential{}, fmt.Errorf("credential fetch: empty token")
	}
	if out.ClientSecret.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(out.ClientSecret.ExpiresAt, 0).UTC()
	}
	return cred, nil
}

// --- default WebSocket transport ---

// WSTransport opens the control channel over a WebSocket dial authorized
// with the ephemeral credential.
type WSTransport struct {
	URL    string
	Dialer *websocket.Dialer
}

func (t *WSTransport) Connect(ctx context.Context, cred Credential, cfg *Config) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cred.Token)

	c, resp, err := dialer.DialContext(ctx, t.URL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("control channel dial: %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("control channel dial: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	return &wsConn{c: c}, nil
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex // serializes writers
}

func (w *wsConn) Send(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = w.c.SetWriteDeadline(deadline)
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) Receive(ctx context.Context) ([]byte, error) {
	if d, ok := ctx.Deadline(); ok {
		_ = w.c.SetReadDeadline(d)
	}
	_, data, err := w.c.ReadMessage()
	return data, err
}

func (w *wsConn) Close() error {
	return w.c.Close()
}
