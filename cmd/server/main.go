package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/linemk/surplus-market/internal/app"
	"github.com/linemk/surplus-market/internal/app/handlers"
	"github.com/linemk/surplus-market/internal/config"
	"github.com/linemk/surplus-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/surplus-market/internal/lib/logger"
	"github.com/linemk/surplus-market/internal/lib/logger/handlers/urllog"
	"github.com/linemk/surplus-market/internal/service"
	"github.com/linemk/surplus-market/internal/storage"
	"github.com/linemk/surplus-market/internal/web"
	"github.com/pkg/errors"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	// JSON API доступен браузерным клиентам с других origin
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	listingRepo := storage.NewListingRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)

	authService := service.NewAuthService(application.Logger, userRepo, time.Duration(application.Config.JWT.TokenTTL)*time.Minute)
	listingService := service.NewListingService(application.Logger, listingRepo)
	orderService := service.NewOrderService(application.Logger, application.DB, listingRepo, orderRepo)

	// загрузка изображений отключается, если креденшелы не заданы
	var uploadService service.UploadService
	if cfg.Cloudinary.CloudName != "" {
		uploadService, err = service.NewUploadService(
			application.Logger,
			cfg.Cloudinary.CloudName,
			cfg.Cloudinary.APIKey,
			cfg.Cloudinary.APISecret,
			cfg.Cloudinary.Folder,
		)
		if err != nil {
			log.Error("failed to initialize image storage", slog.Any("error", err))
			panic(errors.Wrap(err, "failed to initialize image storage"))
		}
	} else {
		log.Warn("image storage is not configured, uploads disabled")
	}

	// публичные эндпоинты
	router.Post("/api/auth/register", handlers.RegisterHandler(application.Logger, authService))
	router.Post("/api/auth/login", handlers.LoginHandler(application.Logger, authService))
	router.Get("/api/listings", handlers.ListListingsHandler(application.Logger, listingService))
	router.Get("/api/listings/{id}", handlers.GetListingHandler(application.Logger, listingService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)
		// эндпоинт для создания лота (только рестораны)
		r.Post("/api/listings", handlers.CreateListingHandler(application.Logger, listingService))
		// эндпоинт для своих лотов ресторана
		r.Get("/api/listings/mine", handlers.MyListingsHandler(application.Logger, listingService))
		// эндпоинт для размещения заказа со списанием количества
		r.Post("/api/orders", handlers.PlaceOrderHandler(application.Logger, orderService))
		// эндпоинт для заказов текущего пользователя
		r.Get("/api/orders/user", handlers.OrdersForUserHandler(application.Logger, orderService))
		// эндпоинт для смены статуса заказа (только ресторан-владелец)
		r.Put("/api/orders/{id}/status", handlers.UpdateOrderStatusHandler(application.Logger, orderService))
		if uploadService != nil {
			r.Post("/api/upload/image", handlers.UploadImageHandler(application.Logger, uploadService))
		}
	})

	// веб-интерфейс на cookie-сессиях поверх тех же сервисов
	sessionStore := web.NewSessionStore(cfg.Session.Secret, cfg.Session.MaxAge)
	webHandler := web.NewHandler(application.Logger, sessionStore, authService, listingService, orderService, uploadService, userRepo)
	webHandler.Routes(router)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
