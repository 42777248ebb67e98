package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/surplus-market/internal/domain/models"
	"github.com/linemk/surplus-market/internal/service"
)

// RegisterRequest представляет структуру запроса регистрации с тегами валидации
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=student restaurant"`
}

// LoginRequest представляет структуру запроса аутентификации
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserPayload — публичная часть пользователя, без хэша пароля.
type UserPayload struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthResponse представляет структуру ответа с JWT-токеном
type AuthResponse struct {
	User  UserPayload `json:"user"`
	Token string      `json:"token"`
}

var validate = validator.New()

func authResponse(user *models.User, token string) AuthResponse {
	return AuthResponse{
		User: UserPayload{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  string(user.Role),
		},
		Token: token,
	}
}

// RegisterHandler – HTTP-обработчик для POST /api/auth/register
func RegisterHandler(log *slog.Logger, authService service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		// Валидация структуры запроса с использованием validator
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, "missing fields")
			return
		}

		user, token, err := authService.Register(r.Context(), req.Name, req.Email, req.Password, models.Role(req.Role))
		if err != nil {
			if errors.Is(err, service.ErrEmailTaken) {
				writeError(w, http.StatusBadRequest, "email already used")
				return
			}
			logger.Error("registration failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}

		writeJSON(w, http.StatusOK, authResponse(user, token))
	}
}

// LoginHandler – HTTP-обработчик для POST /api/auth/login
func LoginHandler(log *slog.Logger, authService service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, "missing fields")
			return
		}

		user, token, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				writeError(w, http.StatusBadRequest, "invalid credentials")
				return
			}
			logger.Error("login failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}

		writeJSON(w, http.StatusOK, authResponse(user, token))
	}
}
