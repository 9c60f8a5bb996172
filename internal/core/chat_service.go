package core

import (
	"context"
	"log"
	"sync"

	"learnloop.dev/chat-service/internal/store"
)

// UserStore provides the account operations needed by signup and login.
type UserStore interface {
	CreateUser(email, passwordHash string) (*store.User, error)
	GetUserByEmail(email string) (*store.User, error)
}

// Store is the full persistence surface consumed by the chat service.
// *store.SQLiteStore satisfies it.
type Store interface {
	UserStore
	MessageStore
	ProfileStore
}

// ChatService manages user accounts and one Conversation per signed-in user.
// Sessions are created lazily on first use and replaced after sign-out.
type ChatService struct {
	store     Store
	completer Completer

	mu       sync.Mutex
	sessions map[int64]*Conversation
}

func NewChatService(st Store, completer Completer) *ChatService {
	return &ChatService{
		store:     st,
		completer: completer,
		sessions:  make(map[int64]*Conversation),
	}
}

func (s *ChatService) CreateUser(email, passwordHash string) (*store.User, error) {
	return s.store.CreateUser(email, passwordHash)
}

func (s *ChatService) GetUserByEmail(email string) (*store.User, error) {
	return s.store.GetUserByEmail(email)
}

// session returns the live conversation for a user, creating and
// initializing one if none exists or the previous one was closed. A history
// load failure is logged but does not block the session.
func (s *ChatService) session(userID int64) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.sessions[userID]
	if ok && conv.State() != StateClosed {
		return conv
	}

	conv = NewConversation(userID, s.store, s.store, s.completer)
	if err := conv.Initialize(); err != nil {
		log.Printf("Session init for user %d continued with empty view: %v", userID, err)
	}
	s.sessions[userID] = conv
	return conv
}

// SendMessage runs one round trip through the user's conversation and
// returns the persisted user and assistant turns.
func (s *ChatService) SendMessage(ctx context.Context, userID int64, content string) (*store.Message, *store.Message, error) {
	return s.session(userID).Submit(ctx, content)
}

// History returns the user's current conversation view.
func (s *ChatService) History(userID int64) []store.Message {
	return s.session(userID).View()
}

// SignOut closes and removes the user's conversation, if any.
func (s *ChatService) SignOut(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.sessions[userID]; ok {
		conv.Close()
		delete(s.sessions, userID)
	}
}
