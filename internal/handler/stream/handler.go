package stream

import (
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/fund-faq/widget/internal/model/chat"
	"github.com/zhouzirui/fund-faq/widget/internal/render"
	chatService "github.com/zhouzirui/fund-faq/widget/internal/service/chat"
	"github.com/zhouzirui/fund-faq/widget/pkg/utils"
)

const (
	// EventReady 在连接建立后发送一次，携带当前会话的完整渲染结果。
	EventReady = "ready"
	// EventEnd 在会话被回收或服务关闭时发送。
	EventEnd = "end"

	defaultHeartbeat = 15 * time.Second
)

// Frame 是推送给页面的一次视图变化，HTML 已在服务端渲染完成。
type Frame struct {
	Type      string        `json:"type"`
	SessionID string        `json:"sessionId,omitempty"`
	Message   *chat.Message `json:"message,omitempty"`
	HTML      template.HTML `json:"html,omitempty"`
}

// NewFrame converts a conversation event into a frame for the browser.
func NewFrame(evt chatService.Event) Frame {
	msg := evt.Message
	frame := Frame{
		Type:      string(evt.Type),
		SessionID: evt.SessionID,
		Message:   &msg,
	}
	if evt.Type == chatService.EventAppended {
		frame.HTML = render.HTML(msg)
	}
	return frame
}

// ReadyFrame carries the full transcript of a session.
func ReadyFrame(sessionID string, messages []chat.Message) Frame {
	return Frame{
		Type:      EventReady,
		SessionID: sessionID,
		HTML:      render.Transcript(messages),
	}
}

// Handler manages conversation updates via Server-Sent Events
type Handler struct {
	chatSvc   *chatService.Service
	logger    *zap.Logger
	heartbeat time.Duration
}

// Option customises a Handler.
type Option func(*Handler)

// WithHeartbeat sets the keep-alive interval.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, logger *zap.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		chatSvc:   chatSvc,
		logger:    logger,
		heartbeat: defaultHeartbeat,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes 注册事件流路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/{sessionID}/events", h.handleEvents)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	events, cancel, err := h.chatSvc.Subscribe(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	defer cancel()

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	h.logger.Debug("opening event stream", zap.String("session", sessionID))

	if err := utils.SendSSEEvent(w, flusher, EventReady, ReadyFrame(sessionID, messages)); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("closing event stream", zap.String("session", sessionID))
			return
		case evt, ok := <-events:
			if !ok {
				utils.SendSSEEvent(w, flusher, EventEnd, Frame{Type: EventEnd, SessionID: sessionID})
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(evt.Type), NewFrame(evt)); err != nil {
				h.logger.Debug("event stream write failed", zap.String("session", sessionID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
