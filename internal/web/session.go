package web

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/linemk/surplus-market/internal/domain/models"
)

const sessionName = "surplus_session"

// NewSessionStore создает cookie-хранилище сессий, подписанное секретом.
func NewSessionStore(secret string, maxAge int) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionUser — данные пользователя, которые мы держим в сессии.
// Кладем только примитивы, чтобы не регистрировать типы в gob.
type SessionUser struct {
	UserID int64
	Name   string
	Email  string
	Role   models.Role
}

func (h *Handler) currentUser(r *http.Request) (*SessionUser, bool) {
	session, err := h.store.Get(r, sessionName)
	if err != nil {
		return nil, false
	}
	userID, ok := session.Values["userID"].(int64)
	if !ok {
		return nil, false
	}
	name, _ := session.Values["name"].(string)
	email, _ := session.Values["email"].(string)
	roleStr, _ := session.Values["role"].(string)
	role := models.Role(roleStr)
	if !role.Valid() {
		return nil, false
	}
	return &SessionUser{UserID: userID, Name: name, Email: email, Role: role}, true
}

func (h *Handler) setSessionUser(w http.ResponseWriter, r *http.Request, user *models.User) error {
	session, _ := h.store.Get(r, sessionName)
	session.Values["userID"] = user.ID
	session.Values["name"] = user.Name
	session.Values["email"] = user.Email
	session.Values["role"] = string(user.Role)
	return session.Save(r, w)
}

func (h *Handler) clearSession(w http.ResponseWriter, r *http.Request) {
	session, _ := h.store.Get(r, sessionName)
	session.Options.MaxAge = -1
	_ = session.Save(r, w)
}
