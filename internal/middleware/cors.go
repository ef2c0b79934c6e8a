package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS 允许嵌入页面以外的来源调用 API，预检请求直接返回 204。
func CORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "X-Request-Id"},
		MaxAge:         86400,
	})(next)
}
