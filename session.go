package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sevdo/user-api-go-client/kvstore"
)

const (
	sessionTokenKey = "auth_token"
	sessionUserKey  = "auth_user"
)

// Session persists the bearer token and the cached user record in a
// key-value store, surviving process restarts when backed by [kvstore.FS].
// The client reads the token fresh before each attempt and clears the
// whole session on unauthorized responses.
type Session struct {
	kv kvstore.KeyValueStore
}

// NewSession wraps a key-value store. A nil store falls back to an
// in-memory one, useful in tests.
func NewSession(kv kvstore.KeyValueStore) *Session {
	if kv == nil {
		kv = &kvstore.Memory{}
	}
	return &Session{kv: kv}
}

// Token returns the stored bearer token, or the empty string when no
// session is active.
func (s *Session) Token() string {
	value, err := s.kv.Get(sessionTokenKey)
	if err != nil {
		return ""
	}
	return string(value)
}

// SetToken stores the bearer token.
func (s *Session) SetToken(token string) error {
	return s.kv.Set(sessionTokenKey, []byte(token))
}

// User returns the cached user record, if one is stored.
func (s *Session) User() (*User, bool) {
	value, err := s.kv.Get(sessionUserKey)
	if err != nil {
		return nil, false
	}

	var user User
	if err := json.Unmarshal(value, &user); err != nil {
		return nil, false
	}
	return &user, true
}

// SetUser caches the user record.
func (s *Session) SetUser(user *User) error {
	if user == nil {
		return errors.New("user must not be nil")
	}

	value, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	return s.kv.Set(sessionUserKey, value)
}

// Clear removes the token and the cached user record.
func (s *Session) Clear() error {
	tokenErr := s.kv.Delete(sessionTokenKey)
	userErr := s.kv.Delete(sessionUserKey)
	if tokenErr != nil {
		return tokenErr
	}
	return userErr
}
