package logger

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/linemk/surplus-market/internal/lib/logger/handlers/slogpretty"
)

// Окружения приложения: local получает цветной вывод,
// development пишет JSON с debug-уровнем, production — JSON с info.
const (
	EnvLocal       = "local"
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// SetupLogger инициализирует логгер в зависимости от переданного окружения.
// Неизвестное окружение трактуется как production.
func SetupLogger(env string) *slog.Logger {
	switch env {
	case EnvLocal:
		return setupPrettySlog()
	case EnvDevelopment:
		return newJSONLogger(slog.LevelDebug)
	default:
		return newJSONLogger(slog.LevelInfo)
	}
}

func newJSONLogger(level slog.Level) *slog.Logger {
	return slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	)
}

func setupPrettySlog() *slog.Logger {
	color.NoColor = false

	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	return slog.New(opts.NewPrettyHandler(os.Stdout))
}
