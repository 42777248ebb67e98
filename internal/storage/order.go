package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/surplus-market/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrderTx вставляет новый заказ в таблицу orders в рамках транзакции списания.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	// UpdateOrderStatus меняет статус заказа и возвращает число измененных строк (0 или 1).
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (int64, error)
	GetOrdersByStudent(ctx context.Context, studentID int64) ([]*models.Order, error)
	GetOrdersByRestaurant(ctx context.Context, restaurantID int64) ([]*models.Order, error)
}

// orderRepository — конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = "id, student_id, restaurant_id, listing_id, quantity, total_amount, payment_status, status, created_at"

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(&o.ID, &o.StudentID, &o.RestaurantID, &o.ListingID, &o.Quantity, &o.TotalAmount, &o.PaymentStatus, &o.Status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	query := `INSERT INTO orders (student_id, restaurant_id, listing_id, quantity, total_amount, payment_status, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING id`
	var id int64
	err := tx.QueryRowContext(ctx, query,
		order.StudentID, order.RestaurantID, order.ListingID, order.Quantity, order.TotalAmount, order.PaymentStatus, order.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return id, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE orders SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *orderRepository) GetOrdersByStudent(ctx context.Context, studentID int64) ([]*models.Order, error) {
	return r.listOrders(ctx, "student_id", studentID)
}

func (r *orderRepository) GetOrdersByRestaurant(ctx context.Context, restaurantID int64) ([]*models.Order, error) {
	return r.listOrders(ctx, "restaurant_id", restaurantID)
}

func (r *orderRepository) listOrders(ctx context.Context, column string, id int64) ([]*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE %s = $1 ORDER BY created_at DESC", orderColumns, column)
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
