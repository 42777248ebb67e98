package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/surplus-market/internal/domain/models"
	security "github.com/linemk/surplus-market/internal/jwt-new"
	"github.com/linemk/surplus-market/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already used")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type AuthService interface {
	// Register создает пользователя и сразу выдает токен.
	// Роль по умолчанию — студент.
	Register(ctx context.Context, name, email, password string, role models.Role) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
}

type authService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	tokenTTL time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, tokenTTL time.Duration) AuthService {
	return &authService{
		log:      log,
		userRepo: userRepo,
		tokenTTL: tokenTTL,
	}
}

func (a *authService) Register(ctx context.Context, name, email, password string, role models.Role) (*models.User, string, error) {
	const op = "service.AuthService.Register"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	if role == "" {
		role = models.RoleStudent
	}
	if !role.Valid() {
		return nil, "", fmt.Errorf("%s: unknown role %q", op, role)
	}

	// Email уникален, проверяем до вставки
	if _, err := a.userRepo.GetUserByEmail(ctx, email); err == nil {
		logger.Warn("email already used")
		return nil, "", fmt.Errorf("%s: %w", op, ErrEmailTaken)
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		logger.Error("failed to check email", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to check email: %w", op, err)
	}

	// Хеширование пароля с помощью bcrypt (автоматически добавляет соль)
	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := a.userRepo.CreateUser(ctx, &models.User{
		Name:     name,
		Email:    email,
		PassHash: passHash,
		Role:     role,
	})
	if err != nil {
		logger.Error("failed to create user", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user registered", slog.Int64("userID", user.ID), slog.String("role", string(user.Role)))
	return user, token, nil
}

// Login осуществляет аутентификацию: введённый пароль сравнивается
// с сохранённым bcrypt-хэшем, после чего выдается JWT-токен.
func (a *authService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	const op = "service.AuthService.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			// Не раскрываем, что именно не совпало
			return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return user, token, nil
}
