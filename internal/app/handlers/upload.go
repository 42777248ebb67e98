package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/surplus-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/surplus-market/internal/service"
)

// максимальный размер multipart-формы с изображением
const maxUploadSize = 10 << 20 // 10 MiB

// UploadImageHandler обрабатывает запрос POST /api/upload/image (multipart, поле "image").
func UploadImageHandler(log *slog.Logger, uploadService service.UploadService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UploadImageHandler"
		logger := log.With(slog.String("op", op))

		if _, ok := jwtmiddleware.FromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeError(w, http.StatusBadRequest, "no file uploaded")
			return
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "no file uploaded")
			return
		}
		defer file.Close()

		uploaded, err := uploadService.UploadImage(r.Context(), file)
		if err != nil {
			logger.Error("cloud upload failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "cloud upload failed")
			return
		}

		writeJSON(w, http.StatusOK, uploaded)
	}
}
