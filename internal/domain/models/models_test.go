package models_test

import (
	"testing"

	"github.com/linemk/surplus-market/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, models.RoleStudent.Valid())
	assert.True(t, models.RoleRestaurant.Valid())
	assert.False(t, models.Role("admin").Valid())
	assert.False(t, models.Role("").Valid())
}

func TestRole_Capabilities(t *testing.T) {
	// Ресторан публикует лоты и управляет заказами, но не покупает
	assert.True(t, models.RoleRestaurant.CanCreateListings())
	assert.True(t, models.RoleRestaurant.CanManageOrders())
	assert.False(t, models.RoleRestaurant.CanPlaceOrders())

	// Студент покупает, но не публикует и не управляет
	assert.True(t, models.RoleStudent.CanPlaceOrders())
	assert.False(t, models.RoleStudent.CanCreateListings())
	assert.False(t, models.RoleStudent.CanManageOrders())
}

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range []models.OrderStatus{
		models.StatusPlaced,
		models.StatusConfirmed,
		models.StatusReady,
		models.StatusCompleted,
		models.StatusCancelled,
	} {
		assert.True(t, s.Valid(), "status %q should be valid", s)
	}
	assert.False(t, models.OrderStatus("").Valid())
	assert.False(t, models.OrderStatus("shipped").Valid())
}
