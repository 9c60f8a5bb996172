package core

import (
	"errors"
	"strings"

	"learnloop.dev/chat-service/internal/store"
)

// ErrEmptyDisplayName is returned when an update would set a display name
// that is empty after trimming. The store is never touched in that case.
var ErrEmptyDisplayName = errors.New("display name cannot be empty")

type ProfileService struct {
	profiles ProfileStore
}

func NewProfileService(profiles ProfileStore) *ProfileService {
	return &ProfileService{profiles: profiles}
}

func (s *ProfileService) Load(userID int64) (*store.Profile, error) {
	return s.profiles.GetProfile(userID)
}

// UpdateDisplayName overwrites the stored display name. The update is
// idempotent; repeated calls with the same name are harmless.
func (s *ProfileService) UpdateDisplayName(userID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyDisplayName
	}
	return s.profiles.UpdateDisplayName(userID, name)
}
