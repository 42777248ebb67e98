package models

import "time"

// Role — закрытый набор ролей пользователя.
// Проверки прав выражены предикатами, а не сравнением строк в обработчиках.
type Role string

const (
	RoleStudent    Role = "student"
	RoleRestaurant Role = "restaurant"
)

// Valid проверяет, что роль входит в допустимый набор.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleRestaurant
}

// CanCreateListings — только рестораны публикуют лоты.
func (r Role) CanCreateListings() bool {
	return r == RoleRestaurant
}

// CanPlaceOrders — только студенты оформляют заказы.
func (r Role) CanPlaceOrders() bool {
	return r == RoleStudent
}

// CanManageOrders — только ресторан меняет статус заказа.
func (r Role) CanManageOrders() bool {
	return r == RoleRestaurant
}

// User представляет пользователя (студента или ресторан)
type User struct {
	ID        int64
	Name      string
	Email     string
	PassHash  []byte
	Role      Role
	CreatedAt time.Time
}
