package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"learnloop.dev/chat-service/internal/llm"
)

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type ChatErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ChatProxyHandler is the stateless completion proxy: it forwards a single
// message to the completion API under the server-held credential and relays
// the generated text. It persists nothing and carries no conversation
// context beyond the one message.
func (h *APIHandler) ChatProxyHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeChatError(w, http.StatusBadRequest, ChatErrorResponse{Error: "Message is required"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeChatError(w, http.StatusBadRequest, ChatErrorResponse{Error: "Message is required"})
		return
	}

	response, err := h.completer.Complete(r.Context(), req.Message)
	if err != nil {
		var statusErr *llm.HTTPStatusError
		switch {
		case errors.Is(err, llm.ErrNotConfigured):
			log.Printf("Chat proxy rejected request: completion API key not configured")
			writeChatError(w, http.StatusInternalServerError, ChatErrorResponse{Error: "Completion API key is not configured"})
		case errors.As(err, &statusErr):
			log.Printf("Completion API returned status %d: %s", statusErr.StatusCode, statusErr.Body)
			writeChatError(w, http.StatusInternalServerError, ChatErrorResponse{
				Error:   "Completion request failed",
				Details: fmt.Sprintf("status %d: %s", statusErr.StatusCode, statusErr.Body),
			})
		default:
			log.Printf("Unexpected error in chat proxy: %v", err)
			writeChatError(w, http.StatusInternalServerError, ChatErrorResponse{Error: "Internal server error"})
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ChatResponse{Response: response})
}

func writeChatError(w http.ResponseWriter, status int, body ChatErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
