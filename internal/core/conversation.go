package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"learnloop.dev/chat-service/internal/store"
)

// MessageStore is the append-only message log consumed by the conversation
// flow. *store.SQLiteStore satisfies it.
type MessageStore interface {
	AppendMessage(userID int64, role, content string) (*store.Message, error)
	ListMessages(userID int64) ([]store.Message, error)
}

// ProfileStore provides per-user profile access.
type ProfileStore interface {
	GetProfile(userID int64) (*store.Profile, error)
	UpdateDisplayName(userID int64, name string) error
}

// Completer produces an assistant reply for a single user message.
// *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, userMessage string) (string, error)
}

type State string

const (
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateSending      State = "sending"
	StateClosed       State = "closed"
)

var (
	ErrNotReady     = errors.New("conversation is not ready")
	ErrSendPending  = errors.New("a submission is already in progress")
	ErrClosed       = errors.New("conversation is closed")
	ErrEmptyMessage = errors.New("message content cannot be empty")

	// ErrSendFailed is the uniform error surfaced for any failed submission.
	// Storage, network and upstream failures are logged with detail
	// server-side but are indistinguishable to the caller.
	ErrSendFailed = errors.New("failed to send message")
)

// Conversation orchestrates one user's chat session: it owns the in-memory
// view of the message history and runs each submission as a strict sequence
// of store and completion calls. One Conversation exists per signed-in
// session; submissions within a session never run concurrently.
type Conversation struct {
	userID    int64
	messages  MessageStore
	profiles  ProfileStore
	completer Completer

	mu      sync.Mutex
	state   State
	profile *store.Profile
	view    []store.Message
}

func NewConversation(userID int64, messages MessageStore, profiles ProfileStore, completer Completer) *Conversation {
	return &Conversation{
		userID:    userID,
		messages:  messages,
		profiles:  profiles,
		completer: completer,
		state:     StateInitializing,
	}
}

// Initialize loads the profile and full message history. A load failure is
// recoverable: the conversation still becomes Ready with an empty view and
// the error is returned so the caller can surface it.
func (c *Conversation) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInitializing {
		return fmt.Errorf("cannot initialize conversation in state %q", c.state)
	}
	c.state = StateReady

	profile, err := c.profiles.GetProfile(c.userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	history, err := c.messages.ListMessages(c.userID)
	if err != nil {
		return fmt.Errorf("failed to load message history: %w", err)
	}

	c.profile = profile
	c.view = history
	return nil
}

// Submit runs one round trip: persist the user turn, request a completion,
// persist the assistant turn. The view is updated in two phases around the
// user turn (tentative append, confirmed once the store write succeeds,
// discarded if it fails); the assistant turn is only shown after it has been
// persisted. Any failure is terminal for this submission and is reported as
// ErrSendFailed; an already-persisted user turn is never rolled back.
func (c *Conversation) Submit(ctx context.Context, content string) (*store.Message, *store.Message, error) {
	c.mu.Lock()
	switch c.state {
	case StateSending:
		c.mu.Unlock()
		return nil, nil, ErrSendPending
	case StateClosed:
		c.mu.Unlock()
		return nil, nil, ErrClosed
	case StateInitializing:
		c.mu.Unlock()
		return nil, nil, ErrNotReady
	}
	if strings.TrimSpace(content) == "" {
		c.mu.Unlock()
		return nil, nil, ErrEmptyMessage
	}
	c.state = StateSending
	tentative := len(c.view)
	c.view = append(c.view, store.Message{UserID: c.userID, Role: store.RoleUser, Content: content})
	c.mu.Unlock()

	userMsg, err := c.messages.AppendMessage(c.userID, store.RoleUser, content)
	if err != nil {
		log.Printf("Failed to store user message for user %d: %v", c.userID, err)
		c.discardTentative(tentative)
		return nil, nil, ErrSendFailed
	}
	c.confirmTentative(tentative, *userMsg)

	reply, err := c.completer.Complete(ctx, content)
	if err != nil {
		// The user turn stays persisted without an assistant pair.
		log.Printf("Completion failed for user %d: %v", c.userID, err)
		c.backToReady()
		return nil, nil, ErrSendFailed
	}

	assistantMsg, err := c.messages.AppendMessage(c.userID, store.RoleAssistant, reply)
	if err != nil {
		log.Printf("Failed to store assistant message for user %d: %v", c.userID, err)
		c.backToReady()
		return nil, nil, ErrSendFailed
	}

	c.mu.Lock()
	if c.state == StateSending {
		c.view = append(c.view, *assistantMsg)
		c.state = StateReady
	}
	c.mu.Unlock()
	return userMsg, assistantMsg, nil
}

// Close ends the session on sign-out. The view is discarded and no further
// operations are accepted.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
	c.profile = nil
	c.view = nil
}

func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conversation) Profile() *store.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// View returns a copy of the current in-memory message sequence, including
// any optimistic entry for a submission still in flight.
func (c *Conversation) View() []store.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]store.Message, len(c.view))
	copy(out, c.view)
	return out
}

func (c *Conversation) discardTentative(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx < len(c.view) {
		c.view = append(c.view[:idx], c.view[idx+1:]...)
	}
	if c.state == StateSending {
		c.state = StateReady
	}
}

func (c *Conversation) confirmTentative(idx int, msg store.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx < len(c.view) {
		c.view[idx] = msg
	}
}

func (c *Conversation) backToReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSending {
		c.state = StateReady
	}
}
