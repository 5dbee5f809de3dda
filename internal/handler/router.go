package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/ai-experts-chat/backend/internal/handler/chat"
	middlewarePkg "github.com/zhouzirui/ai-experts-chat/backend/internal/middleware"
	chatService "github.com/zhouzirui/ai-experts-chat/backend/internal/service/chat"
	"github.com/zhouzirui/ai-experts-chat/backend/pkg/utils"
)

// Options tunes the cross-cutting middleware.
type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	r.Use(middlewarePkg.CORS(opts.AllowedOrigins))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "Server is up and running"})
	})

	chat.New(chatSvc).RegisterRoutes(r)

	return r
}
