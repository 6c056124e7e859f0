package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/yoockh/lingualink/internal/bridge"
	"github.com/yoockh/lingualink/internal/models"
	"github.com/yoockh/lingualink/internal/services"
	"github.com/yoockh/lingualink/internal/utils"
)

// WSHandler streams a call's live events (status changes, transcripts,
// translations) to its participants and accepts mid-call commands. Bridge
// reconfiguration goes through the in-process registry; status reads and
// writes go through the call service like every other surface.
type WSHandler struct {
	calls    services.CallService
	bridges  *bridge.Registry
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewWSHandler(calls services.CallService, bridges *bridge.Registry, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		calls:   calls,
		bridges: bridges,
		redis:   rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"` // set_language
	Voice    string `json:"voice,omitempty"`    // set_voice

	// end_call -> no fields
}

type wsSock struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsSock) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsSock) writeErr(code utils.Code, msg string) {
	b, _ := json.Marshal(map[string]string{"type": "error", "code": string(code), "message": msg})
	_ = w.writeText(b)
}

func (h *WSHandler) CallWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	callID := c.Param("call_id")
	if callID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.CallWS", "missing call_id", nil))
		return
	}

	sess, err := h.calls.Get(c.Request.Context(), callID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !participant(c, sess, userID) {
		writeError(c, utils.E(utils.CodeForbidden, "WSHandler.CallWS", "forbidden", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	ws := &wsSock{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, services.CallEventsChannel(callID))
	defer pubsub.Close()

	// reader: WS -> commands
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				ws.writeErr(utils.CodeInvalidArgument, "invalid json")
				continue
			}

			switch msg.Type {
			case "set_language":
				if msg.Language == "" {
					ws.writeErr(utils.CodeInvalidArgument, "language is required")
					continue
				}
				h.reconfigure(ws, callID, func(b *bridge.Session) error {
					return b.SetTargetLanguage(msg.Language)
				})

			case "set_voice":
				if msg.Voice == "" {
					ws.writeErr(utils.CodeInvalidArgument, "voice is required")
					continue
				}
				h.reconfigure(ws, callID, func(b *bridge.Session) error {
					return b.SetVoice(msg.Voice)
				})

			case "end_call":
				if _, err := h.calls.End(ctx, callID, models.CallOutcome("")); err != nil && !utils.IsCode(err, utils.CodeStaleState) {
					ws.writeErr(utils.CodeInternal, "failed to end call")
				}
				return

			default:
				ws.writeErr(utils.CodeInvalidArgument, "unknown message type")
			}
		}
	}()

	// writer: Redis Pub/Sub -> WS
	forward(ctx, readDone, pubsub.Channel(), ws.writeText)
}

// forward pumps pub/sub payloads to the socket until the reader exits, the
// request ends, or the subscription closes. Selecting over the subscription
// channel keeps the handler from blocking on a receive after the client has
// disconnected.
func forward(ctx context.Context, readDone <-chan struct{}, events <-chan *redis.Message, write func([]byte) error) {
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case m, ok := <-events:
			if !ok {
				return
			}
			// forward as-is (workers publish JSON)
			if err := write([]byte(m.Payload)); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) reconfigure(ws *wsSock, callID string, fn func(*bridge.Session) error) {
	b, ok := h.bridges.Get(callID)
	if !ok {
		ws.writeErr(utils.CodeUnavailable, "no live bridge for this call")
		return
	}
	if err := fn(b); err != nil {
		code := utils.CodeInternal
		var ae *utils.AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
		ws.writeErr(code, "reconfiguration failed")
		return
	}
	b2, _ := json.Marshal(map[string]any{"type": "reconfigured", "call_id": callID})
	_ = ws.writeText(b2)
}
