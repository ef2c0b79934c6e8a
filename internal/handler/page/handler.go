// Package page serves the embedded chat widget.
package page

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/fund-faq/widget/internal/model/example"
	"github.com/zhouzirui/fund-faq/widget/internal/render"
	chatService "github.com/zhouzirui/fund-faq/widget/internal/service/chat"
)

//go:embed assets
var assets embed.FS

var pageTmpl = template.Must(template.ParseFS(assets, "assets/index.html"))

type pageData struct {
	Title      string
	SessionID  string
	Examples   []example.Example
	Transcript template.HTML
}

// Handler 渲染聊天页面并提供静态资源
type Handler struct {
	chatSvc  *chatService.Service
	examples example.Store
	title    string
	logger   *zap.Logger
}

// New 创建页面处理器
func New(chatSvc *chatService.Service, examples example.Store, title string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc:  chatSvc,
		examples: examples,
		title:    title,
		logger:   logger,
	}
}

// RegisterRoutes 注册页面与静态资源路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	static, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(err)
	}
	r.Get("/", h.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
}

// handleIndex 每次加载页面都开启新会话，刷新即清空对话
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		h.logger.Error("create session for page", zap.Error(err))
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	messages, _ := h.chatSvc.LoadTranscript(r.Context(), session.ID)
	data := pageData{
		Title:      h.title,
		SessionID:  session.ID,
		Examples:   h.examples.List(),
		Transcript: render.Transcript(messages),
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		h.logger.Error("render page", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}
