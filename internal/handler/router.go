package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/fund-faq/widget/internal/handler/chat"
	"github.com/zhouzirui/fund-faq/widget/internal/handler/example"
	"github.com/zhouzirui/fund-faq/widget/internal/handler/page"
	"github.com/zhouzirui/fund-faq/widget/internal/handler/stream"
	"github.com/zhouzirui/fund-faq/widget/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/fund-faq/widget/internal/middleware"
	exampleModel "github.com/zhouzirui/fund-faq/widget/internal/model/example"
	chatService "github.com/zhouzirui/fund-faq/widget/internal/service/chat"
	"github.com/zhouzirui/fund-faq/widget/pkg/utils"
)

// Options 是路由的可选参数。
type Options struct {
	Title  string
	Logger *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(examples exampleModel.Store, chatSvc *chatService.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	// Create handlers
	pageHandler := page.New(chatSvc, examples, opts.Title, logger)
	exampleHandler := example.New(examples, chatSvc)
	chatHandler := chat.New(chatSvc, logger)
	streamHandler := stream.New(chatSvc, logger)
	wsHandler := ws.New(chatSvc, examples, logger.Named("websocket"))

	pageHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.SessionCount(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		exampleHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
	})

	return r
}
