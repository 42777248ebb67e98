package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// UploadedImage — результат загрузки в хранилище изображений.
type UploadedImage struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

type UploadService interface {
	UploadImage(ctx context.Context, file io.Reader) (*UploadedImage, error)
}

type uploadService struct {
	log    *slog.Logger
	cld    *cloudinary.Cloudinary
	folder string
}

// NewUploadService настраивает клиент Cloudinary; лоты складываются в одну папку.
func NewUploadService(log *slog.Logger, cloudName, apiKey, apiSecret, folder string) (UploadService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to init cloudinary client: %w", err)
	}
	return &uploadService{log: log, cld: cld, folder: folder}, nil
}

func (s *uploadService) UploadImage(ctx context.Context, file io.Reader) (*UploadedImage, error) {
	const op = "service.UploadService.UploadImage"
	logger := s.log.With(slog.String("op", op))

	res, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{Folder: s.folder})
	if err != nil {
		logger.Error("cloud upload failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: cloud upload failed: %w", op, err)
	}

	logger.Info("image uploaded", slog.String("publicID", res.PublicID))
	return &UploadedImage{URL: res.SecureURL, PublicID: res.PublicID}, nil
}
