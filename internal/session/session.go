package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Data is the JSON document stored with each session row.
type Data struct {
	Flashes []Flash           `json:"flashes,omitempty"`
	Values  map[string]string `json:"values,omitempty"`
}

// Session is the per-request view of a stored session. Changes are persisted
// by the middleware just before the response headers are written.
type Session struct {
	Token   string
	UserID  *uuid.UUID
	Data    Data
	Expires time.Time

	isNew     bool
	modified  bool
	destroyed bool
	oldToken  string
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != nil
}

func (s *Session) AddFlash(level, message string) {
	s.Data.Flashes = append(s.Data.Flashes, Flash{Level: level, Message: message})
	s.modified = true
}

// PopFlashes returns pending flashes and clears them.
func (s *Session) PopFlashes() []Flash {
	if len(s.Data.Flashes) == 0 {
		return nil
	}
	flashes := s.Data.Flashes
	s.Data.Flashes = nil
	s.modified = true
	return flashes
}

func (s *Session) Set(key, value string) {
	if s.Data.Values == nil {
		s.Data.Values = map[string]string{}
	}
	s.Data.Values[key] = value
	s.modified = true
}

func (s *Session) Get(key string) string {
	return s.Data.Values[key]
}

type ctxKey string

const sessionKey ctxKey = "session"

func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok {
		return s
	}
	return nil
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// AddFlash queues a message on the request session, if there is one.
func AddFlash(ctx context.Context, level, message string) {
	if s := FromContext(ctx); s != nil {
		s.AddFlash(level, message)
	}
}

func PopFlashes(ctx context.Context) []Flash {
	if s := FromContext(ctx); s != nil {
		return s.PopFlashes()
	}
	return nil
}
