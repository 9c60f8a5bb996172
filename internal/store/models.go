package store

import "time"

// Roles a chat message can carry. The messages table enforces the same
// two-value constraint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

type Profile struct {
	ID          int64   `json:"id"` // Equals the owning user's ID
	DisplayName *string `json:"display_name"` // Nullable
	Email       string  `json:"email"`
}

type Message struct {
	ID        string    `json:"id"` // Using UUID for external ID
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
