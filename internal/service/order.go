package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/surplus-market/internal/domain/models"
	"github.com/linemk/surplus-market/internal/storage"
)

var (
	// ErrInvalidQuantity — количество в запросе не положительное.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	// ErrNotOrderOwner — статус заказа меняет не тот ресторан, которому он принадлежит.
	ErrNotOrderOwner = errors.New("order belongs to another restaurant")
	// ErrInvalidStatus — статус пустой или вне допустимого набора.
	ErrInvalidStatus = errors.New("invalid order status")
)

// OrderRecordingFailedError — списание количества прошло, а запись заказа не удалась.
// Транзакция при этом откатывается, так что количество восстанавливается,
// но случай логируется отдельно: это сигнал для сверки, а не обычный отказ.
type OrderRecordingFailedError struct {
	ListingID int64
	Quantity  int
	Err       error
}

func (e *OrderRecordingFailedError) Error() string {
	return fmt.Sprintf("order recording failed after decrement (listing %d, qty %d): %v", e.ListingID, e.Quantity, e.Err)
}

func (e *OrderRecordingFailedError) Unwrap() error { return e.Err }

// OrderService — учет склада: единственная точка, где проверка остатка,
// списание и создание заказа собраны вместе. Обе транспортные поверхности
// (JSON API и веб) вызывают его и не трогают списание сами.
type OrderService interface {
	// PlaceOrder атомарно списывает quantity у лота и создает заказ.
	// Возвращает созданный заказ и строку лота сразу после списания —
	// именно ту, что вернул условный UPDATE, без повторного чтения:
	// при конкурентных покупках повторное чтение показало бы чужие списания.
	// Операция НЕ идемпотентна: повторный вызов спишет и создаст заказ еще раз.
	PlaceOrder(ctx context.Context, listingID, studentID int64, quantity int) (*models.Order, *models.Listing, error)
	// UpdateStatus меняет статус заказа от имени ресторана-владельца,
	// возвращает число измененных строк (0 или 1).
	UpdateStatus(ctx context.Context, orderID, callerRestaurantID int64, status models.OrderStatus) (int64, error)
	// ListForUser возвращает заказы пользователя: ресторану — его продажи,
	// студенту — его покупки; свежие первыми.
	ListForUser(ctx context.Context, userID int64, role models.Role) ([]*models.Order, error)
}

type orderService struct {
	log         *slog.Logger
	db          *sql.DB
	listingRepo storage.ListingStorage
	orderRepo   storage.OrderStorage
}

func NewOrderService(log *slog.Logger, db *sql.DB, listingRepo storage.ListingStorage, orderRepo storage.OrderStorage) OrderService {
	return &orderService{
		log:         log,
		db:          db,
		listingRepo: listingRepo,
		orderRepo:   orderRepo,
	}
}

// PlaceOrder выполняет покупку: одно условное списание на стороне БД плюс
// вставка заказа в той же транзакции. Проверка остатка не выносится в код —
// она часть UPDATE, поэтому двум конкурентным покупателям не достанется
// больше, чем есть, а количество никогда не уходит в минус.
func (s *orderService) PlaceOrder(ctx context.Context, listingID, studentID int64, quantity int) (*models.Order, *models.Listing, error) {
	const op = "service.OrderService.PlaceOrder"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("listingID", listingID),
		slog.Int64("studentID", studentID),
		slog.Int("quantity", quantity),
	)

	if quantity <= 0 {
		logger.Warn("rejected non-positive quantity")
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	logger.Info("starting purchase transaction")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	listing, err := s.listingRepo.DecrementQuantityTx(ctx, tx, listingID, quantity)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrInsufficientQuantity) {
			// Ноль строк от условного UPDATE: различаем отсутствующий лот
			// и проигранную гонку за остаток.
			if _, getErr := s.listingRepo.GetListingByID(ctx, listingID); getErr != nil {
				if errors.Is(getErr, storage.ErrListingNotFound) {
					logger.Warn("listing not found")
					return nil, nil, fmt.Errorf("%s: %w", op, storage.ErrListingNotFound)
				}
				logger.Error("failed to get listing", slog.Any("error", getErr))
				return nil, nil, fmt.Errorf("%s: failed to get listing: %w", op, getErr)
			}
			logger.Info("insufficient quantity")
			return nil, nil, fmt.Errorf("%s: %w", op, storage.ErrInsufficientQuantity)
		}
		logger.Error("failed to decrement quantity", slog.Any("error", err))
		return nil, nil, fmt.Errorf("%s: failed to decrement quantity: %w", op, err)
	}

	// RestaurantID и цена фиксируются из строки лота в момент списания:
	// дальнейшие изменения лота не меняют прошлые заказы.
	order := &models.Order{
		StudentID:     studentID,
		RestaurantID:  listing.RestaurantID,
		ListingID:     listing.ID,
		Quantity:      quantity,
		TotalAmount:   listing.Price * float64(quantity),
		PaymentStatus: models.PaymentPending,
		Status:        models.StatusPlaced,
	}

	orderID, err := s.orderRepo.CreateOrderTx(ctx, tx, order)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		recErr := &OrderRecordingFailedError{ListingID: listingID, Quantity: quantity, Err: err}
		logger.Error("order recording failed after decrement", slog.Any("error", recErr))
		return nil, nil, fmt.Errorf("%s: %w", op, recErr)
	}

	if err := tx.Commit(); err != nil {
		recErr := &OrderRecordingFailedError{ListingID: listingID, Quantity: quantity, Err: err}
		logger.Error("failed to commit purchase transaction", slog.Any("error", recErr))
		return nil, nil, fmt.Errorf("%s: %w", op, recErr)
	}

	order.ID = orderID
	logger.Info("purchase completed",
		slog.Int64("orderID", orderID),
		slog.Int("remaining", listing.QuantityAvailable),
	)
	return order, listing, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID, callerRestaurantID int64, status models.OrderStatus) (int64, error) {
	const op = "service.OrderService.UpdateStatus"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("orderID", orderID),
		slog.Int64("restaurantID", callerRestaurantID),
	)

	if status == "" || !status.Valid() {
		logger.Warn("rejected invalid status", slog.String("status", string(status)))
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	if order.RestaurantID != callerRestaurantID {
		logger.Warn("status update by non-owner", slog.Int64("ownerID", order.RestaurantID))
		return 0, fmt.Errorf("%s: %w", op, ErrNotOrderOwner)
	}

	modified, err := s.orderRepo.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		logger.Error("failed to update status", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to update status: %w", op, err)
	}

	logger.Info("order status updated", slog.String("status", string(status)), slog.Int64("modified", modified))
	return modified, nil
}

func (s *orderService) ListForUser(ctx context.Context, userID int64, role models.Role) ([]*models.Order, error) {
	const op = "service.OrderService.ListForUser"

	var (
		orders []*models.Order
		err    error
	)
	if role.CanManageOrders() {
		orders, err = s.orderRepo.GetOrdersByRestaurant(ctx, userID)
	} else {
		orders, err = s.orderRepo.GetOrdersByStudent(ctx, userID)
	}
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	return orders, nil
}
