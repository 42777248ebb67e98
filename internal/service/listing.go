package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/surplus-market/internal/domain/models"
	"github.com/linemk/surplus-market/internal/storage"
)

var ErrTitleRequired = errors.New("title is required")

// SearchMeta — метаданные пагинации для страницы каталога.
type SearchMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewListingInput — данные для создания лота; количество и цена
// приводятся к допустимым значениям на транспортном слое.
type NewListingInput struct {
	Title             string
	Description       string
	Price             float64
	QuantityAvailable int
	ImageURL          string
}

type ListingService interface {
	Create(ctx context.Context, restaurantID int64, input NewListingInput) (int64, error)
	// Search возвращает страницу лотов по подстроке в названии/описании,
	// свежие первыми. page < 1 приводится к 1, limit — к диапазону 1..100.
	Search(ctx context.Context, query string, page, limit int) ([]*models.Listing, *SearchMeta, error)
	GetByID(ctx context.Context, id int64) (*models.Listing, error)
	ListByRestaurant(ctx context.Context, restaurantID int64) ([]*models.Listing, error)
}

type listingService struct {
	log         *slog.Logger
	listingRepo storage.ListingStorage
}

func NewListingService(log *slog.Logger, listingRepo storage.ListingStorage) ListingService {
	return &listingService{
		log:         log,
		listingRepo: listingRepo,
	}
}

func (s *listingService) Create(ctx context.Context, restaurantID int64, input NewListingInput) (int64, error) {
	const op = "service.ListingService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("restaurantID", restaurantID))

	if input.Title == "" {
		return 0, fmt.Errorf("%s: %w", op, ErrTitleRequired)
	}
	if input.Price < 0 {
		input.Price = 0
	}
	if input.QuantityAvailable < 0 {
		input.QuantityAvailable = 0
	}

	id, err := s.listingRepo.CreateListing(ctx, &models.Listing{
		RestaurantID:      restaurantID,
		Title:             input.Title,
		Description:       input.Description,
		Price:             input.Price,
		QuantityAvailable: input.QuantityAvailable,
		ImageURL:          input.ImageURL,
	})
	if err != nil {
		logger.Error("failed to create listing", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to create listing: %w", op, err)
	}

	logger.Info("listing created", slog.Int64("listingID", id))
	return id, nil
}

func (s *listingService) Search(ctx context.Context, query string, page, limit int) ([]*models.Listing, *SearchMeta, error) {
	const op = "service.ListingService.Search"

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 12
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	listings, total, err := s.listingRepo.SearchListings(ctx, query, limit, offset)
	if err != nil {
		s.log.Error("failed to search listings", slog.String("op", op), slog.Any("error", err))
		return nil, nil, fmt.Errorf("%s: failed to search listings: %w", op, err)
	}

	meta := &SearchMeta{
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: (total + limit - 1) / limit,
	}
	return listings, meta, nil
}

func (s *listingService) GetByID(ctx context.Context, id int64) (*models.Listing, error) {
	const op = "service.ListingService.GetByID"

	listing, err := s.listingRepo.GetListingByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrListingNotFound) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrListingNotFound)
		}
		s.log.Error("failed to get listing", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get listing: %w", op, err)
	}
	return listing, nil
}

func (s *listingService) ListByRestaurant(ctx context.Context, restaurantID int64) ([]*models.Listing, error) {
	const op = "service.ListingService.ListByRestaurant"

	listings, err := s.listingRepo.GetListingsByRestaurant(ctx, restaurantID)
	if err != nil {
		s.log.Error("failed to list restaurant listings", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list restaurant listings: %w", op, err)
	}
	return listings, nil
}
