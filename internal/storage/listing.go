package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/surplus-market/internal/domain/models"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	// ErrInsufficientQuantity — условное списание не нашло строку:
	// доступного количества меньше запрошенного. Ожидаемый исход
	// проигранной гонки, а не отказ инфраструктуры.
	ErrInsufficientQuantity = errors.New("insufficient quantity")
)

// ListingStorage описывает методы для работы с лотами.
type ListingStorage interface {
	CreateListing(ctx context.Context, listing *models.Listing) (int64, error)
	GetListingByID(ctx context.Context, id int64) (*models.Listing, error)
	// SearchListings возвращает страницу лотов по подстроке в названии/описании
	// (без учета регистра) и общее число подходящих лотов.
	SearchListings(ctx context.Context, query string, limit, offset int) ([]*models.Listing, int, error)
	GetListingsByRestaurant(ctx context.Context, restaurantID int64) ([]*models.Listing, error)
	// DecrementQuantityTx атомарно списывает qty у лота одним условным UPDATE:
	// строка обновляется, только если quantity_available >= qty. Проверка и
	// списание выполняются одной операцией на стороне БД — никакого
	// read-then-write, иначе вернется гонка, от которой мы защищаемся.
	DecrementQuantityTx(ctx context.Context, tx *sql.Tx, id int64, qty int) (*models.Listing, error)
}

type listingRepository struct {
	db *sql.DB
}

func NewListingRepository(db *sql.DB) ListingStorage {
	return &listingRepository{db: db}
}

const listingColumns = "id, restaurant_id, title, description, price, quantity_available, image_url, created_at"

func scanListing(row interface{ Scan(...interface{}) error }) (*models.Listing, error) {
	l := &models.Listing{}
	err := row.Scan(&l.ID, &l.RestaurantID, &l.Title, &l.Description, &l.Price, &l.QuantityAvailable, &l.ImageURL, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *listingRepository) CreateListing(ctx context.Context, listing *models.Listing) (int64, error) {
	var id int64
	query := `INSERT INTO listings (restaurant_id, title, description, price, quantity_available, image_url, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		listing.RestaurantID, listing.Title, listing.Description, listing.Price, listing.QuantityAvailable, listing.ImageURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create listing: %w", err)
	}
	return id, nil
}

func (r *listingRepository) GetListingByID(ctx context.Context, id int64) (*models.Listing, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+listingColumns+" FROM listings WHERE id = $1", id)
	listing, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return listing, nil
}

func (r *listingRepository) SearchListings(ctx context.Context, query string, limit, offset int) ([]*models.Listing, int, error) {
	pattern := "%" + query + "%"

	var total int
	countQuery := "SELECT COUNT(*) FROM listings WHERE title ILIKE $1 OR description ILIKE $1"
	if err := r.db.QueryRowContext(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	selectQuery := `SELECT ` + listingColumns + ` FROM listings
		WHERE title ILIKE $1 OR description ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, selectQuery, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *listingRepository) GetListingsByRestaurant(ctx context.Context, restaurantID int64) ([]*models.Listing, error) {
	query := "SELECT " + listingColumns + " FROM listings WHERE restaurant_id = $1 ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepository) DecrementQuantityTx(ctx context.Context, tx *sql.Tx, id int64, qty int) (*models.Listing, error) {
	query := `UPDATE listings
		SET quantity_available = quantity_available - $1
		WHERE id = $2 AND quantity_available >= $1
		RETURNING ` + listingColumns
	row := tx.QueryRowContext(ctx, query, qty, id)
	listing, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Ноль строк: либо лота нет, либо количества не хватило.
			// Различает вызывающая сторона, здесь это одно и то же условие WHERE.
			return nil, ErrInsufficientQuantity
		}
		return nil, err
	}
	return listing, nil
}
