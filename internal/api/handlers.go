package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"learnloop.dev/chat-service/internal/auth"
	"learnloop.dev/chat-service/internal/core"
	"learnloop.dev/chat-service/internal/store"
)

// ChatService is the conversation surface the handlers depend on.
// *core.ChatService satisfies it.
type ChatService interface {
	CreateUser(email, passwordHash string) (*store.User, error)
	GetUserByEmail(email string) (*store.User, error)
	SendMessage(ctx context.Context, userID int64, content string) (*store.Message, *store.Message, error)
	History(userID int64) []store.Message
	SignOut(userID int64)
}

// ProfileService is the profile surface the handlers depend on.
// *core.ProfileService satisfies it.
type ProfileService interface {
	Load(userID int64) (*store.Profile, error)
	UpdateDisplayName(userID int64, name string) error
}

type APIHandler struct {
	chatService    ChatService
	profileService ProfileService
	completer      core.Completer
}

func NewAPIHandler(cs ChatService, ps ProfileService, completer core.Completer) *APIHandler {
	return &APIHandler{
		chatService:    cs,
		profileService: ps,
		completer:      completer,
	}
}

type contextKey string

const userIDKey contextKey = "userID"

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		email, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.chatService.GetUserByEmail(email)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %s: %v", email, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}

		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for user %s: %v", req.Email, err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.chatService.CreateUser(req.Email, hashedPassword)
	if err != nil {
		log.Printf("Error creating user %s: %v", req.Email, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.chatService.GetUserByEmail(req.Email)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.Email, err)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(req.Email)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", req.Email, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)

	messages := h.chatService.History(userID)
	if messages == nil {
		messages = []store.Message{}
	}
	json.NewEncoder(w).Encode(messages)
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

type PostMessageResponse struct {
	UserMessage      *store.Message `json:"user_message"`
	AssistantMessage *store.Message `json:"assistant_message"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	userMsg, assistantMsg, err := h.chatService.SendMessage(r.Context(), userID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyMessage):
			http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		case errors.Is(err, core.ErrSendPending):
			http.Error(w, "A message is already being processed", http.StatusConflict)
		default:
			log.Printf("Error sending message for user %d: %v", userID, err)
			http.Error(w, "Failed to send message", http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(PostMessageResponse{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	})
}

func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)

	profile, err := h.profileService.Load(userID)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			http.Error(w, "Profile not found", http.StatusNotFound)
			return
		}
		log.Printf("Error loading profile for user %d: %v", userID, err)
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(profile)
}

type UpdateDisplayNameRequest struct {
	DisplayName string `json:"display_name"`
}

func (h *APIHandler) UpdateDisplayNameHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)

	var req UpdateDisplayNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.profileService.UpdateDisplayName(userID, req.DisplayName); err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyDisplayName):
			http.Error(w, "Display name cannot be empty", http.StatusBadRequest)
		case errors.Is(err, store.ErrProfileNotFound):
			http.Error(w, "Profile not found", http.StatusNotFound)
		default:
			log.Printf("Error updating display name for user %d: %v", userID, err)
			http.Error(w, "Failed to update display name", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)
	h.chatService.SignOut(userID)
	w.WriteHeader(http.StatusNoContent)
}
