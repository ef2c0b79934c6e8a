package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/fund-faq/widget/internal/handler/stream"
	"github.com/zhouzirui/fund-faq/widget/internal/model/example"
	chatservice "github.com/zhouzirui/fund-faq/widget/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
	outboxSize   = 16
)

// Handler WebSocket会话处理器
type Handler struct {
	chatSvc  *chatservice.Service
	examples example.Store
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatservice.Service, examples example.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc:  chatSvc,
		examples: examples,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// TextMessage 文本提问
type TextMessage struct {
	Text string `json:"text"`
}

// ExampleMessage 激活预置问题
type ExampleMessage struct {
	ID string `json:"id"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	events, unsubscribe, err := h.chatSvc.Subscribe(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.logger.With(zap.String("session", sessionID))
	log.Debug("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// gorilla 的连接只允许一个写者，所有出站消息都经由 writeLoop。
	outbox := make(chan outgoingMessage, outboxSize)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// 关闭连接以唤醒阻塞在 ReadJSON 上的 readLoop。
		defer conn.Close()
		defer cancel()
		h.writeLoop(ctx, conn, events, outbox, log)
	}()

	messages, err := h.chatSvc.LoadTranscript(ctx, sessionID)
	if err == nil {
		h.enqueue(ctx, outbox, outgoingMessage{
			Type:      "connected",
			SessionID: sessionID,
			Data:      stream.ReadyFrame(sessionID, messages),
		})
	}

	h.readLoop(ctx, conn, sessionID, outbox, log)
	cancel()
	<-writerDone
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, sessionID string, outbox chan<- outgoingMessage, log *zap.Logger) {
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(ctx, outbox, "session mismatch")
			continue
		}
		if err := h.handleMessage(ctx, sessionID, &msg); err != nil {
			h.sendError(ctx, outbox, err.Error())
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, sessionID string, msg *inboundMessage) error {
	var query string
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			return errors.New("invalid text payload")
		}
		query = text.Text
	case "example":
		var ex ExampleMessage
		if err := json.Unmarshal(msg.Data, &ex); err != nil {
			return errors.New("invalid example payload")
		}
		item, ok := h.examples.FindByID(ex.ID)
		if !ok {
			return errors.New("example not found")
		}
		query = item.Query
	default:
		return errors.New("unsupported message type: " + msg.Type)
	}

	// 回复通过订阅的事件流推送，这里只负责提交。
	_, err := h.chatSvc.Submit(ctx, sessionID, query)
	if errors.Is(err, chatservice.ErrEmptyQuery) {
		return nil
	}
	return err
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan chatservice.Event, outbox <-chan outgoingMessage, log *zap.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	write := func(msg outgoingMessage) bool {
		msg.Timestamp = time.Now().Unix()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug("websocket write failed", zap.Error(err))
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-outbox:
			if !write(msg) {
				return
			}
		case evt, ok := <-events:
			if !ok {
				write(outgoingMessage{Type: stream.EventEnd})
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(writeTimeout))
				return
			}
			if !write(outgoingMessage{Type: "event", SessionID: evt.SessionID, Data: stream.NewFrame(evt)}) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) enqueue(ctx context.Context, outbox chan<- outgoingMessage, msg outgoingMessage) {
	select {
	case outbox <- msg:
	case <-ctx.Done():
	}
}

func (h *Handler) sendError(ctx context.Context, outbox chan<- outgoingMessage, message string) {
	h.enqueue(ctx, outbox, outgoingMessage{
		Type: "error",
		Data: map[string]string{"message": message},
	})
}
