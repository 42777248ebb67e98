package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/surplus-market/internal/app/handlers"
	"github.com/linemk/surplus-market/internal/domain/models"
	"github.com/linemk/surplus-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/surplus-market/internal/service"
	"github.com/linemk/surplus-market/internal/storage"
	"github.com/stretchr/testify/assert"
)

// fakeAuthService — фиктивная реализация для тестирования.
type fakeAuthService struct {
	user  *models.User
	token string
	err   error
}

func (f *fakeAuthService) Register(ctx context.Context, name, email, password string, role models.Role) (*models.User, string, error) {
	return f.user, f.token, f.err
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	return f.user, f.token, f.err
}

type fakeListingService struct {
	id       int64
	listing  *models.Listing
	listings []*models.Listing
	meta     *service.SearchMeta
	err      error

	gotQuery string
	gotPage  int
	gotLimit int
}

func (f *fakeListingService) Create(ctx context.Context, restaurantID int64, input service.NewListingInput) (int64, error) {
	return f.id, f.err
}

func (f *fakeListingService) Search(ctx context.Context, query string, page, limit int) ([]*models.Listing, *service.SearchMeta, error) {
	f.gotQuery, f.gotPage, f.gotLimit = query, page, limit
	return f.listings, f.meta, f.err
}

func (f *fakeListingService) GetByID(ctx context.Context, id int64) (*models.Listing, error) {
	if f.listing == nil {
		return nil, storage.ErrListingNotFound
	}
	return f.listing, f.err
}

func (f *fakeListingService) ListByRestaurant(ctx context.Context, restaurantID int64) ([]*models.Listing, error) {
	return f.listings, f.err
}

// fakeOrderService — фиктивная реализация OrderService
type fakeOrderService struct {
	order    *models.Order
	after    *models.Listing
	modified int64
	orders   []*models.Order
	err      error
}

func (f *fakeOrderService) PlaceOrder(ctx context.Context, listingID, studentID int64, quantity int) (*models.Order, *models.Listing, error) {
	return f.order, f.after, f.err
}

func (f *fakeOrderService) UpdateStatus(ctx context.Context, orderID, callerRestaurantID int64, status models.OrderStatus) (int64, error) {
	return f.modified, f.err
}

func (f *fakeOrderService) ListForUser(ctx context.Context, userID int64, role models.Role) ([]*models.Order, error) {
	return f.orders, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// withIdentity кладет identity в контекст запроса, как это делает JWT middleware.
func withIdentity(req *http.Request, userID int64, role models.Role) *http.Request {
	ctx := context.WithValue(req.Context(), jwtmiddleware.IdentityKey, jwtmiddleware.Identity{UserID: userID, Role: role})
	return req.WithContext(ctx)
}

func TestRegisterHandler_Success(t *testing.T) {
	fakeSvc := &fakeAuthService{
		user:  &models.User{ID: 1, Name: "Demo", Email: "demo@example.com", Role: models.RoleStudent},
		token: "test-token",
	}
	handler := handlers.RegisterHandler(testLogger(), fakeSvc)

	reqBody := `{"name": "Demo", "email": "demo@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "Expected status 200 OK")

	var resp handlers.AuthResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "test-token", resp.Token)
	assert.Equal(t, "student", resp.User.Role)
}

func TestRegisterHandler_MissingFields(t *testing.T) {
	handler := handlers.RegisterHandler(testLogger(), &fakeAuthService{})

	reqBody := `{"email": "demo@example.com"}`
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected status 400 for missing fields")
}

func TestRegisterHandler_EmailTaken(t *testing.T) {
	handler := handlers.RegisterHandler(testLogger(), &fakeAuthService{err: service.ErrEmailTaken})

	reqBody := `{"name": "Demo", "email": "demo@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "email already used")
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	handler := handlers.LoginHandler(testLogger(), &fakeAuthService{err: service.ErrInvalidCredentials})

	reqBody := `{"email": "demo@example.com", "password": "wrongpass"}`
	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid credentials")
}

func TestCreateListingHandler_Success(t *testing.T) {
	handler := handlers.CreateListingHandler(testLogger(), &fakeListingService{id: 10})

	reqBody := `{"title": "Veg Box", "price": 30, "quantityAvailable": 5}`
	req := httptest.NewRequest("POST", "/api/listings", bytes.NewBufferString(reqBody))
	req = withIdentity(req, 2, models.RoleRestaurant)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code, "Expected status 201 Created")
	var resp handlers.CreateListingResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(10), resp.InsertedID)
}

func TestCreateListingHandler_ForbiddenForStudent(t *testing.T) {
	handler := handlers.CreateListingHandler(testLogger(), &fakeListingService{})

	reqBody := `{"title": "Veg Box"}`
	req := httptest.NewRequest("POST", "/api/listings", bytes.NewBufferString(reqBody))
	req = withIdentity(req, 3, models.RoleStudent)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code, "Students must not create listings")
}

func TestCreateListingHandler_TitleRequired(t *testing.T) {
	handler := handlers.CreateListingHandler(testLogger(), &fakeListingService{err: service.ErrTitleRequired})

	reqBody := `{"title": ""}`
	req := httptest.NewRequest("POST", "/api/listings", bytes.NewBufferString(reqBody))
	req = withIdentity(req, 2, models.RoleRestaurant)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListListingsHandler_PaginationParams(t *testing.T) {
	fakeSvc := &fakeListingService{
		listings: []*models.Listing{{ID: 11, Title: "Veg Box"}},
		meta:     &service.SearchMeta{Total: 25, Page: 2, Limit: 10, Pages: 3},
	}
	handler := handlers.ListListingsHandler(testLogger(), fakeSvc)

	req := httptest.NewRequest("GET", "/api/listings?q=veg&page=2&limit=10", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "veg", fakeSvc.gotQuery)
	assert.Equal(t, 2, fakeSvc.gotPage)
	assert.Equal(t, 10, fakeSvc.gotLimit)

	var resp handlers.ListingsPageResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Meta.Pages)
	assert.Len(t, resp.Data, 1)
}

func TestListListingsHandler_DefaultLimit(t *testing.T) {
	fakeSvc := &fakeListingService{meta: &service.SearchMeta{Page: 1, Limit: 12}}
	handler := handlers.ListListingsHandler(testLogger(), fakeSvc)

	req := httptest.NewRequest("GET", "/api/listings", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 12, fakeSvc.gotLimit, "Default page size is 12")
}

func TestGetListingHandler_NotFound(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/api/listings/{id}", handlers.GetListingHandler(testLogger(), &fakeListingService{}))

	req := httptest.NewRequest("GET", "/api/listings/99", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetListingHandler_InvalidID(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/api/listings/{id}", handlers.GetListingHandler(testLogger(), &fakeListingService{}))

	req := httptest.NewRequest("GET", "/api/listings/abc", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPlaceOrderHandler_Success(t *testing.T) {
	order := &models.Order{
		ID: 7, StudentID: 3, RestaurantID: 2, ListingID: 1,
		Quantity: 3, TotalAmount: 90, PaymentStatus: models.PaymentPending, Status: models.StatusPlaced,
	}
	fakeOrders := &fakeOrderService{order: order, after: &models.Listing{ID: 1, QuantityAvailable: 2}}
	handler := handlers.PlaceOrderHandler(testLogger(), fakeOrders)

	reqBody := `{"listingId": 1, "quantity": 3}`
	req := httptest.NewRequest("POST", "/api/orders", bytes.NewBufferString(reqBody))
	req = withIdentity(req, 3, models.RoleStudent)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code, "Expected status 201 Created")
	var resp handlers.PlaceOrderResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(7), resp.OrderID)
	assert.Equal(t, 90.0, resp.Order.TotalAmount)
}

// Ответ несет ровно ту строку, что вернуло списание: при конкурентной
// покупке повторное чтение лота показало бы уже чужой, более низкий остаток.
func TestPlaceOrderHandler_ListingAfterFromDecrement(t *testing.T) {
	order := &models.Order{ID: 8, StudentID: 3, ListingID: 1, Quantity: 3}
	fakeOrders := &fakeOrderService{order: order, after: &models.Listing{ID: 1, QuantityAvailable: 2}}
	handler := handlers.PlaceOrderHandler(testLogger(), fakeOrders)

	reqBody := `{"listingId": 1, "quantity": 3}`
	req := httptest.NewRequest("POST", "/api/orders", bytes.NewBufferString(reqBody))
	req = withIdentity(req, 3, models.RoleStudent)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp handlers.PlaceOrderResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 2, resp.ListingAfter.QuantityAvailable,
		"listingAfter reflects this order's decrement, not a later re-read")
}

func TestPlaceOrderHandler_InsufficientQuantity(t *testing.T) {
	fakeOrders := &fakeOrderService{err: storage.ErrInsufficientQuantity}
	handler := handlers.PlaceOrderHandler(testLogger(), fakeOrders)

	reqBody := `{"listingId": 1, "quantity": 10}`
	req := httptest.NewRequest("POST", "/api/orders", bytes.NewBufferString(reqBody))
	req = withIdentity(req, 3, models.RoleStudent)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code, "Lost race maps to 400, not 404")
	assert.Contains(t, rr.Body.String(), "insufficient quantity")
}

func TestPlaceOrderHandler_ListingNotFound(t *testing.T) {
	fakeOrders := &fakeOrderService{err: storage.ErrListingNotFound}
	handler := handlers.PlaceOrderHandler(testLogger(), fakeOrders)

	reqBody := `{"listingId": 99, "quantity": 1}`
	req := httptest.NewRequest("POST", "/api/orders", bytes.NewBufferString(reqBody))
	req = withIdentity(req, 3, models.RoleStudent)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPlaceOrderHandler_Unauthorized(t *testing.T) {
	handler := handlers.PlaceOrderHandler(testLogger(), &fakeOrderService{})

	reqBody := `{"listingId": 1}`
	req := httptest.NewRequest("POST", "/api/orders", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpdateOrderStatusHandler_Forbidden(t *testing.T) {
	router := chi.NewRouter()
	fakeOrders := &fakeOrderService{err: service.ErrNotOrderOwner}
	router.Put("/api/orders/{id}/status", handlers.UpdateOrderStatusHandler(testLogger(), fakeOrders))

	reqBody := `{"status": "confirmed"}`
	req := httptest.NewRequest("PUT", "/api/orders/7/status", bytes.NewBufferString(reqBody))
	req = withIdentity(req, 5, models.RoleRestaurant)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "not your order")
}

func TestUpdateOrderStatusHandler_StudentForbidden(t *testing.T) {
	router := chi.NewRouter()
	router.Put("/api/orders/{id}/status", handlers.UpdateOrderStatusHandler(testLogger(), &fakeOrderService{}))

	reqBody := `{"status": "confirmed"}`
	req := httptest.NewRequest("PUT", "/api/orders/7/status", bytes.NewBufferString(reqBody))
	req = withIdentity(req, 3, models.RoleStudent)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUpdateOrderStatusHandler_Success(t *testing.T) {
	router := chi.NewRouter()
	router.Put("/api/orders/{id}/status", handlers.UpdateOrderStatusHandler(testLogger(), &fakeOrderService{modified: 1}))

	reqBody := `{"status": "confirmed"}`
	req := httptest.NewRequest("PUT", "/api/orders/7/status", bytes.NewBufferString(reqBody))
	req = withIdentity(req, 2, models.RoleRestaurant)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.UpdateStatusResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(1), resp.ModifiedCount)
}

func TestOrdersForUserHandler_EmptyList(t *testing.T) {
	handler := handlers.OrdersForUserHandler(testLogger(), &fakeOrderService{})

	req := httptest.NewRequest("GET", "/api/orders/user", nil)
	req = withIdentity(req, 3, models.RoleStudent)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	assert.JSONEq(t, "[]", string(body), "Empty history is an empty array, not null")
}
