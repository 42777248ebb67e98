package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/surplus-market/internal/domain/models"
	"github.com/linemk/surplus-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/surplus-market/internal/service"
	"github.com/linemk/surplus-market/internal/storage"
)

// CreateListingRequest — входной JSON для создания лота.
type CreateListingRequest struct {
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	Price             float64 `json:"price"`
	QuantityAvailable int     `json:"quantityAvailable"`
	ImageURL          string  `json:"imageUrl"`
}

// CreateListingResponse — ответ при успешном создании.
type CreateListingResponse struct {
	Success    bool  `json:"success"`
	InsertedID int64 `json:"insertedId"`
}

// ListingsPageResponse — страница каталога с метаданными пагинации.
type ListingsPageResponse struct {
	Meta *service.SearchMeta `json:"meta"`
	Data []*models.Listing   `json:"data"`
}

// CreateListingHandler обрабатывает запрос POST /api/listings (только ресторан).
func CreateListingHandler(log *slog.Logger, listingService service.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateListingHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !identity.Role.CanCreateListings() {
			writeError(w, http.StatusForbidden, "only restaurants can create listings")
			return
		}

		var req CreateListingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		id, err := listingService.Create(r.Context(), identity.UserID, service.NewListingInput{
			Title:             req.Title,
			Description:       req.Description,
			Price:             req.Price,
			QuantityAvailable: req.QuantityAvailable,
			ImageURL:          req.ImageURL,
		})
		if err != nil {
			if errors.Is(err, service.ErrTitleRequired) {
				writeError(w, http.StatusBadRequest, "title is required")
				return
			}
			logger.Error("failed to create listing", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "failed to create listing")
			return
		}

		writeJSON(w, http.StatusCreated, CreateListingResponse{Success: true, InsertedID: id})
	}
}

// ListListingsHandler обрабатывает запрос GET /api/listings?q=&page=&limit=
func ListListingsHandler(log *slog.Logger, listingService service.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListListingsHandler"
		logger := log.With(slog.String("op", op))

		q := r.URL.Query().Get("q")
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit < 1 {
			limit = 12
		}

		listings, meta, err := listingService.Search(r.Context(), q, page, limit)
		if err != nil {
			logger.Error("failed to fetch listings", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "failed to fetch listings")
			return
		}
		if listings == nil {
			listings = []*models.Listing{}
		}

		writeJSON(w, http.StatusOK, ListingsPageResponse{Meta: meta, Data: listings})
	}
}

// GetListingHandler обрабатывает запрос GET /api/listings/{id}
func GetListingHandler(log *slog.Logger, listingService service.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetListingHandler"
		logger := log.With(slog.String("op", op))

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}

		listing, err := listingService.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrListingNotFound) {
				writeError(w, http.StatusNotFound, "not found")
				return
			}
			logger.Error("failed to fetch listing", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "failed to fetch listing")
			return
		}

		writeJSON(w, http.StatusOK, listing)
	}
}

// MyListingsHandler обрабатывает запрос GET /api/listings/mine (только ресторан).
func MyListingsHandler(log *slog.Logger, listingService service.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MyListingsHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !identity.Role.CanCreateListings() {
			writeError(w, http.StatusForbidden, "only restaurants")
			return
		}

		listings, err := listingService.ListByRestaurant(r.Context(), identity.UserID)
		if err != nil {
			logger.Error("failed to fetch own listings", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "fetch failed")
			return
		}
		if listings == nil {
			listings = []*models.Listing{}
		}

		writeJSON(w, http.StatusOK, listings)
	}
}
