package example

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/fund-faq/widget/internal/model/example"
	chatService "github.com/zhouzirui/fund-faq/widget/internal/service/chat"
	"github.com/zhouzirui/fund-faq/widget/pkg/utils"
)

// Handler 预置问题的HTTP处理器
type Handler struct {
	examples example.Store
	chatSvc  *chatService.Service
}

// New 创建预置问题处理器
func New(examples example.Store, chatSvc *chatService.Service) *Handler {
	return &Handler{
		examples: examples,
		chatSvc:  chatSvc,
	}
}

// RegisterRoutes 注册预置问题相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/examples", h.handleListExamples)
	r.Post("/session/{sessionID}/examples/{exampleID}", h.handleActivate)
}

// handleListExamples 列出所有预置问题
func (h *Handler) handleListExamples(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.examples.List())
}

// handleActivate 以预置问题的文本提交，与用户手动输入完全一致
func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	item, ok := h.examples.FindByID(chi.URLParam(r, "exampleID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "example not found")
		return
	}

	sub, err := h.chatSvc.Submit(r.Context(), chi.URLParam(r, "sessionID"), item.Query)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusAccepted, sub)
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	default:
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
	}
}
