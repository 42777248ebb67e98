package storage_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/linemk/surplus-market/internal/domain/models"
	"github.com/linemk/surplus-market/internal/storage"
	"github.com/stretchr/testify/assert"
)

func TestGetUserByEmail_Success(t *testing.T) {
	// Создаем sqlmock для эмуляции базы данных.
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "name", "email", "pass_hash", "role", "created_at"}).
		AddRow(1, "Demo Student", "student@example.com", []byte("hashed-password"), "student", now)

	mock.ExpectQuery("SELECT id, name, email, pass_hash, role, created_at FROM users WHERE email = \\$1").
		WithArgs("student@example.com").WillReturnRows(rows)

	user, err := repo.GetUserByEmail(ctx, "student@example.com")
	assert.NoError(t, err, "Expected no error when user is found")
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Equal(t, []byte("hashed-password"), user.PassHash)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()

	// Эмулируем ситуацию, когда запрос возвращает 0 строк.
	rows := sqlmock.NewRows([]string{"id", "name", "email", "pass_hash", "role", "created_at"})
	mock.ExpectQuery("SELECT id, name, email, pass_hash, role, created_at FROM users WHERE email = \\$1").
		WithArgs("ghost@example.com").WillReturnRows(rows)

	user, err := repo.GetUserByEmail(ctx, "ghost@example.com")
	assert.True(t, errors.Is(err, storage.ErrUserNotFound))
	assert.Nil(t, user)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta("INSERT INTO users (name, email, pass_hash, role, created_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING id")
	mock.ExpectQuery(query).
		WithArgs("Demo Resto", "resto@example.com", []byte("hash"), "restaurant").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	user, err := repo.CreateUser(ctx, &models.User{
		Name:     "Demo Resto",
		Email:    "resto@example.com",
		PassHash: []byte("hash"),
		Role:     models.RoleRestaurant,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateListing_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewListingRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`INSERT INTO listings (restaurant_id, title, description, price, quantity_available, image_url, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id`)
	mock.ExpectQuery(query).
		WithArgs(int64(2), "Veg Box", "Rice & veg", 30.0, 5, "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

	id, err := repo.CreateListing(ctx, &models.Listing{
		RestaurantID:      2,
		Title:             "Veg Box",
		Description:       "Rice & veg",
		Price:             30,
		QuantityAvailable: 5,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(10), id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetListingByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewListingRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "restaurant_id", "title", "description", "price", "quantity_available", "image_url", "created_at"})
	mock.ExpectQuery("SELECT id, restaurant_id, title, description, price, quantity_available, image_url, created_at FROM listings WHERE id = \\$1").
		WithArgs(int64(99)).WillReturnRows(rows)

	listing, err := repo.GetListingByID(ctx, 99)
	assert.True(t, errors.Is(err, storage.ErrListingNotFound))
	assert.Nil(t, listing)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchListings_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewListingRepository(db)
	ctx := context.Background()
	now := time.Now()

	// Сначала COUNT, затем страница результатов с тем же фильтром.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM listings WHERE title ILIKE $1 OR description ILIKE $1")).
		WithArgs("%veg%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	rows := sqlmock.NewRows([]string{"id", "restaurant_id", "title", "description", "price", "quantity_available", "image_url", "created_at"}).
		AddRow(1, 2, "Veg Box", "Rice & veg", 30.0, 5, "", now).
		AddRow(2, 2, "Veg Wrap", "Wraps", 20.0, 3, "", now)
	mock.ExpectQuery("SELECT id, restaurant_id, title, description, price, quantity_available, image_url, created_at FROM listings").
		WithArgs("%veg%", 10, 10).
		WillReturnRows(rows)

	listings, total, err := repo.SearchListings(ctx, "veg", 10, 10)
	assert.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, listings, 2)
	assert.Equal(t, "Veg Box", listings[0].Title)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementQuantityTx_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewListingRepository(db)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	tx, err := db.Begin()
	assert.NoError(t, err)

	// Условный UPDATE возвращает строку уже после списания.
	rows := sqlmock.NewRows([]string{"id", "restaurant_id", "title", "description", "price", "quantity_available", "image_url", "created_at"}).
		AddRow(1, 2, "Veg Box", "Rice & veg", 30.0, 2, "", now)
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE listings
		SET quantity_available = quantity_available - $1
		WHERE id = $2 AND quantity_available >= $1
		RETURNING id, restaurant_id, title, description, price, quantity_available, image_url, created_at`)).
		WithArgs(3, int64(1)).
		WillReturnRows(rows)

	listing, err := repo.DecrementQuantityTx(ctx, tx, 1, 3)
	assert.NoError(t, err)
	assert.Equal(t, 2, listing.QuantityAvailable, "Expected post-decrement quantity")

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementQuantityTx_Insufficient(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewListingRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	tx, err := db.Begin()
	assert.NoError(t, err)

	// Условие quantity_available >= qty не выполнилось — ноль строк.
	rows := sqlmock.NewRows([]string{"id", "restaurant_id", "title", "description", "price", "quantity_available", "image_url", "created_at"})
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE listings
		SET quantity_available = quantity_available - $1
		WHERE id = $2 AND quantity_available >= $1
		RETURNING id, restaurant_id, title, description, price, quantity_available, image_url, created_at`)).
		WithArgs(10, int64(1)).
		WillReturnRows(rows)

	listing, err := repo.DecrementQuantityTx(ctx, tx, 1, 10)
	assert.True(t, errors.Is(err, storage.ErrInsufficientQuantity))
	assert.Nil(t, listing)

	mock.ExpectRollback()
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderTx_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	tx, err := db.Begin()
	assert.NoError(t, err)

	query := regexp.QuoteMeta(`INSERT INTO orders (student_id, restaurant_id, listing_id, quantity, total_amount, payment_status, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING id`)
	mock.ExpectQuery(query).
		WithArgs(int64(3), int64(2), int64(1), 3, 90.0, "pending", "placed").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	id, err := repo.CreateOrderTx(ctx, tx, &models.Order{
		StudentID:     3,
		RestaurantID:  2,
		ListingID:     1,
		Quantity:      3,
		TotalAmount:   90,
		PaymentStatus: models.PaymentPending,
		Status:        models.StatusPlaced,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(7), id)

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatus_NoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = $1 WHERE id = $2")).
		WithArgs("confirmed", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	modified, err := repo.UpdateOrderStatus(ctx, 42, models.StatusConfirmed)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), modified)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrdersByStudent_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "student_id", "restaurant_id", "listing_id", "quantity", "total_amount", "payment_status", "status", "created_at"}).
		AddRow(7, 3, 2, 1, 3, 90.0, "pending", "placed", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, restaurant_id, listing_id, quantity, total_amount, payment_status, status, created_at FROM orders WHERE student_id = $1 ORDER BY created_at DESC")).
		WithArgs(int64(3)).WillReturnRows(rows)

	orders, err := repo.GetOrdersByStudent(ctx, 3)
	assert.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, 90.0, orders[0].TotalAmount)
	assert.Equal(t, models.StatusPlaced, orders[0].Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}
