package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ai-experts-chat/backend/internal/service/ai"
	chatService "github.com/zhouzirui/ai-experts-chat/backend/internal/service/chat"
	"github.com/zhouzirui/ai-experts-chat/backend/internal/store"
	"github.com/zhouzirui/ai-experts-chat/backend/pkg/utils"
)

const maxRequestBytes = 1 << 20

// Request 聊天请求体
type Request struct {
	Query        string `json:"query"`
	SessionID    string `json:"sessionID"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// Response 聊天响应体
type Response struct {
	Response string `json:"response"`
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/{sessionID}/history", h.handleHistory)
	r.Post("/session", h.handleCreateSession)
}

// handleChat 执行一次对话轮次
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}

	reply, err := h.chatSvc.RunTurn(r.Context(), payload.SessionID, payload.Query, payload.SystemPrompt)
	if err != nil {
		h.respondFailure(w, payload.SessionID, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, Response{Response: reply})
}

// handleHistory 返回会话历史
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	transcript, err := h.chatSvc.History(r.Context(), sessionID)
	if err != nil {
		h.respondFailure(w, sessionID, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, transcript)
}

// handleCreateSession 为未自行生成 ID 的客户端分配会话 ID
func (h *Handler) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"sessionID": h.chatSvc.NewSessionID()})
}

// respondFailure 将服务层错误映射为 HTTP 状态码；具体原因只写日志，不返回给客户端
func (h *Handler) respondFailure(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, chatService.ErrBadRequest), errors.Is(err, store.ErrSessionRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ai.ErrModelUnavailable):
		utils.RespondError(w, http.StatusInternalServerError, "model provider unavailable, please try again later")
	case errors.Is(err, store.ErrUnavailable):
		utils.RespondError(w, http.StatusInternalServerError, "conversation store unavailable, please try again later")
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error while processing chat request")
	}
	log.Printf("[chat] request failed for session=%s: %v", sessionID, err)
}
