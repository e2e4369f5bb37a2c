// Package flash carries a one-shot message across a redirect in a cookie.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
)

const CookieName = "flash"

type Kind string

const (
	KindInfo  Kind = "info"
	KindError Kind = "error"
)

type Message struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

type Store struct {
	secure bool
}

func New(secure bool) *Store {
	return &Store{secure: secure}
}

func (s *Store) Info(w http.ResponseWriter, msg string) {
	s.set(w, Message{Kind: KindInfo, Message: msg})
}

func (s *Store) Error(w http.ResponseWriter, msg string) {
	s.set(w, Message{Kind: KindError, Message: msg})
}

func (s *Store) set(w http.ResponseWriter, m Message) {
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	security.SetCookie(w, CookieName, base64.RawURLEncoding.EncodeToString(b), time.Minute, s.secure)
}

// Pop returns the pending message, if any, and clears it.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) *Message {
	raw, err := security.ReadCookie(r, CookieName)
	if err != nil {
		return nil
	}
	security.ClearCookie(w, CookieName, s.secure)

	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var m Message
	if err := json.Unmarshal(b, &m); err != nil || m.Message == "" {
		return nil
	}
	if m.Kind != KindError {
		m.Kind = KindInfo
	}
	return &m
}
