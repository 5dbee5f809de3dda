package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse 错误响应体，与前端约定使用 detail 字段
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Detail: message})
}
