package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/fund-faq/widget/internal/model/chat"
	chatService "github.com/zhouzirui/fund-faq/widget/internal/service/chat"
	"github.com/zhouzirui/fund-faq/widget/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}", h.handleGetSession)
	r.Get("/session/{sessionID}/messages", h.handleListMessages)
	r.Post("/session/{sessionID}/messages", h.handleSubmit)
	r.Post("/ask", h.handleAsk)
}

type submitPayload struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

type transcriptResponse struct {
	SessionID string         `json:"sessionId"`
	Messages  []chat.Message `json:"messages"`
}

type askResponse struct {
	SessionID string       `json:"sessionId,omitempty"`
	Message   chat.Message `json:"message"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleListMessages 返回会话当前渲染的全部消息
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	utils.RespondJSON(w, http.StatusOK, transcriptResponse{SessionID: sessionID, Messages: messages})
}

// handleSubmit 提交问题，立即返回用户消息与加载占位，回复通过事件流送达
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.chatSvc.Submit(r.Context(), chi.URLParam(r, "sessionID"), payload.Message)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, sub)
}

// handleAsk 同步问答。未携带 sessionId 时使用一次性会话，返回后即删除，响应中也不带 sessionId。
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := payload.SessionID
	if sessionID == "" {
		session, err := h.chatSvc.CreateSession(r.Context())
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		defer h.chatSvc.DeleteSession(r.Context(), session.ID)
		sessionID = session.ID
	}

	reply, err := h.chatSvc.Ask(r.Context(), sessionID, payload.Message)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	resp := askResponse{Message: reply}
	if payload.SessionID != "" {
		resp.SessionID = sessionID
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrEmptyQuery):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrClosed):
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("chat request failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
