package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	sessionDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/session"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RepositoryAPI interface {
	Get(ctx context.Context, token string) (*sessionDatamodel.Session, error)
	Save(ctx context.Context, s *sessionDatamodel.Session) error
	Delete(ctx context.Context, token string) error
	DeleteForUser(ctx context.Context, userID uuid.UUID, exceptToken string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

type Manager struct {
	repo   RepositoryAPI
	opts   Options
	clock  clock.Clock
	logger *slog.Logger
}

func NewManager(repo RepositoryAPI, opts Options, clk clock.Clock, logger *slog.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "sessionid"
	}
	if opts.TTL <= 0 {
		opts.TTL = 14 * 24 * time.Hour
	}
	return &Manager{repo: repo, opts: opts, clock: clk, logger: logger}
}

func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.load(r)
		ctx := WithSession(r.Context(), s)
		sw := &writer{ResponseWriter: w}
		sw.commit = func() { m.commit(ctx, w, s) }
		next.ServeHTTP(sw, r.WithContext(ctx))
		sw.flush()
	})
}

func (m *Manager) load(r *http.Request) *Session {
	fresh := &Session{Token: newToken(), Expires: m.clock.Now().Add(m.opts.TTL), isNew: true}

	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return fresh
	}
	row, err := m.repo.Get(r.Context(), cookie.Value)
	if err != nil {
		m.logger.ErrorContext(r.Context(), "session: failed to load session", "error", err)
		return fresh
	}
	if row == nil {
		return fresh
	}
	if row.Expires.Before(m.clock.Now()) {
		fresh.oldToken = row.Token
		fresh.destroyed = true
		return fresh
	}

	s := &Session{Token: row.Token, UserID: row.UserID, Expires: row.Expires}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &s.Data); err != nil {
			m.logger.WarnContext(r.Context(), "session: discarding unreadable data", "error", err)
		}
	}
	return s
}

func (m *Manager) commit(ctx context.Context, w http.ResponseWriter, s *Session) {
	if s.oldToken != "" {
		if err := m.repo.Delete(ctx, s.oldToken); err != nil {
			m.logger.ErrorContext(ctx, "session: failed to delete previous session", "error", err)
		}
	}

	if !s.modified {
		if s.destroyed {
			m.expireCookie(w)
		}
		return
	}

	data, err := json.Marshal(s.Data)
	if err != nil {
		m.logger.ErrorContext(ctx, "session: failed to encode data", "error", err)
		return
	}
	row := &sessionDatamodel.Session{
		Token:   s.Token,
		UserID:  s.UserID,
		Data:    datatypes.JSON(data),
		Expires: s.Expires,
	}
	if err := m.repo.Save(ctx, row); err != nil {
		m.logger.ErrorContext(ctx, "session: failed to save session", "error", err)
		return
	}
	if s.isNew {
		http.SetCookie(w, &http.Cookie{
			Name:     m.opts.CookieName,
			Value:    s.Token,
			Path:     "/",
			Expires:  s.Expires,
			HttpOnly: true,
			Secure:   m.opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (m *Manager) expireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login binds the session to userID under a fresh token.
func (m *Manager) Login(ctx context.Context, userID uuid.UUID) {
	s := FromContext(ctx)
	if s == nil {
		return
	}
	if !s.isNew {
		s.oldToken = s.Token
	}
	id := userID
	s.Token = newToken()
	s.UserID = &id
	s.Expires = m.clock.Now().Add(m.opts.TTL)
	s.isNew = true
	s.modified = true
}

// Flush discards the session and everything in it. Flashes added afterwards
// travel with a new anonymous session.
func (m *Manager) Flush(ctx context.Context) {
	s := FromContext(ctx)
	if s == nil {
		return
	}
	old := s.oldToken
	if !s.isNew {
		old = s.Token
	}
	*s = Session{
		Token:     newToken(),
		Expires:   m.clock.Now().Add(m.opts.TTL),
		isNew:     true,
		destroyed: true,
		oldToken:  old,
	}
}

// FlushUser ends every stored session of userID except the current one.
func (m *Manager) FlushUser(ctx context.Context, userID uuid.UUID) error {
	except := ""
	if s := FromContext(ctx); s != nil {
		except = s.Token
	}
	return m.repo.DeleteForUser(ctx, userID, except)
}

func (m *Manager) Cleanup(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.clock.Now())
}

func newToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// writer persists the session right before the first byte of the response.
type writer struct {
	http.ResponseWriter
	once   sync.Once
	commit func()
}

func (w *writer) flush() {
	w.once.Do(w.commit)
}

func (w *writer) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *writer) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *writer) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
