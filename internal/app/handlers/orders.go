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

// PlaceOrderRequest — входной JSON для оформления заказа.
// Количество по умолчанию — 1, как и в веб-форме.
type PlaceOrderRequest struct {
	ListingID int64 `json:"listingId"`
	Quantity  int   `json:"quantity"`
}

// PlaceOrderResponse — ответ при успешном заказе: созданный заказ
// и лот уже после списания.
type PlaceOrderResponse struct {
	OrderID      int64           `json:"orderId"`
	Order        *models.Order   `json:"order"`
	ListingAfter *models.Listing `json:"listingAfter"`
}

// UpdateStatusRequest — входной JSON для смены статуса заказа.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatusResponse — ответ со счетчиком измененных строк.
type UpdateStatusResponse struct {
	ModifiedCount int64 `json:"modifiedCount"`
}

// PlaceOrderHandler обрабатывает запрос POST /api/orders.
// Вся логика списания — в OrderService, обработчик только переводит
// форму запроса в вызов и ошибку в статус-код.
func PlaceOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PlaceOrderHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req PlaceOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if req.ListingID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid listing id")
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}

		order, listingAfter, err := orderService.PlaceOrder(r.Context(), req.ListingID, identity.UserID, req.Quantity)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidQuantity):
				writeError(w, http.StatusBadRequest, "quantity must be a positive integer")
			case errors.Is(err, storage.ErrListingNotFound):
				writeError(w, http.StatusNotFound, "listing not found")
			case errors.Is(err, storage.ErrInsufficientQuantity):
				writeError(w, http.StatusBadRequest, "insufficient quantity")
			default:
				// OrderRecordingFailed и прочие отказы инфраструктуры
				logger.Error("order failed", slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "order failed")
			}
			return
		}

		// listingAfter — строка, которую вернул сам условный UPDATE;
		// повторное чтение показало бы остаток уже после чужих списаний
		writeJSON(w, http.StatusCreated, PlaceOrderResponse{
			OrderID:      order.ID,
			Order:        order,
			ListingAfter: listingAfter,
		})
	}
}

// OrdersForUserHandler обрабатывает запрос GET /api/orders/user.
// Ресторану возвращаются заказы на него, студенту — его покупки.
func OrdersForUserHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrdersForUserHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		orders, err := orderService.ListForUser(r.Context(), identity.UserID, identity.Role)
		if err != nil {
			logger.Error("failed to fetch orders", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "fetch orders failed")
			return
		}
		if orders == nil {
			orders = []*models.Order{}
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

// UpdateOrderStatusHandler обрабатывает запрос PUT /api/orders/{id}/status (только ресторан-владелец).
func UpdateOrderStatusHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !identity.Role.CanManageOrders() {
			writeError(w, http.StatusForbidden, "only restaurants can update status")
			return
		}

		orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order id")
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		modified, err := orderService.UpdateStatus(r.Context(), orderID, identity.UserID, models.OrderStatus(req.Status))
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrOrderNotFound):
				writeError(w, http.StatusNotFound, "order not found")
			case errors.Is(err, service.ErrNotOrderOwner):
				writeError(w, http.StatusForbidden, "not your order")
			case errors.Is(err, service.ErrInvalidStatus):
				writeError(w, http.StatusBadRequest, "status required")
			default:
				logger.Error("status update failed", slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "status update failed")
			}
			return
		}

		writeJSON(w, http.StatusOK, UpdateStatusResponse{ModifiedCount: modified})
	}
}
