package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/ai-experts-chat/backend/internal/config"
	"github.com/zhouzirui/ai-experts-chat/backend/internal/handler"
	"github.com/zhouzirui/ai-experts-chat/backend/internal/service/ai"
	"github.com/zhouzirui/ai-experts-chat/backend/internal/service/chat"
	"github.com/zhouzirui/ai-experts-chat/backend/internal/service/prompt"
	"github.com/zhouzirui/ai-experts-chat/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Fatalf("failed to initialize chat model: %v", err)
	}
	aiService, err := ai.NewService(chatModel, cfg.AI.Timeout)
	if err != nil {
		log.Fatalf("failed to initialize AI service: %v", err)
	}
	log.Printf("AI service initialized (provider=%s model=%s)", cfg.AI.Provider, cfg.AI.Model)

	// 持久化存储不可达时直接退出，不回退到内存存储
	conversations, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("failed to open conversation store: %v", err)
	}
	defer func() {
		if err := conversations.Close(); err != nil {
			log.Printf("warning: failed to close conversation store: %v", err)
		}
	}()

	chatService := chat.NewService(conversations, aiService, prompt.NewResolver(cfg.AI.SystemPrompt))

	router := handler.NewRouter(chatService, handler.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	if err := startServer(ctx, cfg.Server, router); err != nil {
		log.Printf("server error: %v", err)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("chat backend listening on %s", addr)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
