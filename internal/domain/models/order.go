package models

import "time"

// OrderStatus — закрытый набор статусов заказа.
type OrderStatus string

const (
	StatusPlaced    OrderStatus = "placed"
	StatusConfirmed OrderStatus = "confirmed"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус входит в допустимый набор.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPlaced, StatusConfirmed, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus — статус оплаты заказа.
type PaymentStatus string

const PaymentPending PaymentStatus = "pending"

// Order представляет заказ, созданный при успешном списании количества лота.
// Запись неизменяема, кроме Status; RestaurantID и TotalAmount фиксируются
// в момент списания и не зависят от последующих изменений лота.
type Order struct {
	ID            int64         `json:"id"`
	StudentID     int64         `json:"studentId"`
	RestaurantID  int64         `json:"restaurantId"`
	ListingID     int64         `json:"listingId"`
	Quantity      int           `json:"quantity"`
	TotalAmount   float64       `json:"totalAmount"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Status        OrderStatus   `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}
