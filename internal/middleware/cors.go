package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS 根据允许的来源列表构建跨域中间件。
// 使用通配符来源时浏览器不允许携带凭证，因此仅在显式来源下开启 AllowCredentials。
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			wildcard = true
			break
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}
