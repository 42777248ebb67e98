package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/linemk/surplus-market/internal/domain/models"
	"github.com/linemk/surplus-market/internal/service"
	"github.com/linemk/surplus-market/internal/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Handler — веб-поверхность с cookie-сессиями. HTML-формы и редиректы
// вместо JSON, но под капотом те же сервисы, что и у API: списание
// количества здесь не повторяется.
type Handler struct {
	log      *slog.Logger
	store    *sessions.CookieStore
	auth     service.AuthService
	listings service.ListingService
	orders   service.OrderService
	uploads  service.UploadService // nil, если хранилище изображений не настроено
	users    storage.UserStorage
	tmpl     *template.Template
}

func NewHandler(
	log *slog.Logger,
	store *sessions.CookieStore,
	auth service.AuthService,
	listings service.ListingService,
	orders service.OrderService,
	uploads service.UploadService,
	users storage.UserStorage,
) *Handler {
	tmpl := template.Must(template.New("").
		Funcs(template.FuncMap{"price": listingPrice}).
		ParseFS(templatesFS, "templates/*.html"))
	return &Handler{
		log:      log,
		store:    store,
		auth:     auth,
		listings: listings,
		orders:   orders,
		uploads:  uploads,
		users:    users,
		tmpl:     tmpl,
	}
}

// Routes регистрирует маршруты веб-поверхности.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/register", h.registerForm)
	r.Post("/register", h.register)
	r.Get("/login", h.loginForm)
	r.Post("/login", h.login)
	r.Get("/logout", h.logout)
	r.Get("/create-listing", h.requireRestaurant(h.createListingForm))
	r.Post("/create-listing", h.requireRestaurant(h.createListing))
	r.Get("/listing/{id}", h.listingDetail)
	r.Post("/listing/{id}/order", h.placeOrder)
	r.Get("/orders", h.requireAuth(h.myOrders))
}

// ---------- middleware ----------

func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.currentUser(r); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (h *Handler) requireRestaurant(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := h.currentUser(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !user.Role.CanCreateListings() {
			http.Error(w, "Forbidden: restaurant only", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (h *Handler) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.log.Error("failed to render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, "Server error", http.StatusInternalServerError)
	}
}

// ---------- pages ----------

type homePage struct {
	User     *SessionUser
	Listings []*models.Listing
	Meta     *service.SearchMeta
	Query    string
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	user, _ := h.currentUser(r)

	q := r.URL.Query().Get("q")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = 12
	}
	// Веб-страница не длиннее 24 позиций
	if limit > 24 {
		limit = 24
	}

	listings, meta, err := h.listings.Search(r.Context(), q, page, limit)
	if err != nil {
		h.log.Error("failed to fetch listings", slog.Any("error", err))
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	h.render(w, "index", homePage{User: user, Listings: listings, Meta: meta, Query: q})
}

type authPage struct {
	Error string
}

func (h *Handler) registerForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "register", authPage{})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "register", authPage{Error: "Invalid form"})
		return
	}
	name := r.PostFormValue("name")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	role := models.Role(r.PostFormValue("role"))

	if name == "" || email == "" || password == "" {
		h.render(w, "register", authPage{Error: "Missing fields"})
		return
	}
	// Тот же минимум, что и у JSON API
	if len(password) < 8 {
		h.render(w, "register", authPage{Error: "Password must be at least 8 characters"})
		return
	}

	user, _, err := h.auth.Register(r.Context(), name, email, password, role)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			h.render(w, "register", authPage{Error: "Email already used"})
			return
		}
		h.log.Error("registration failed", slog.Any("error", err))
		h.render(w, "register", authPage{Error: "Server error"})
		return
	}

	if err := h.setSessionUser(w, r, user); err != nil {
		h.log.Error("failed to save session", slog.Any("error", err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login", authPage{})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "login", authPage{Error: "Invalid form"})
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	user, _, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.render(w, "login", authPage{Error: "Invalid credentials"})
			return
		}
		h.log.Error("login failed", slog.Any("error", err))
		h.render(w, "login", authPage{Error: "Server error"})
		return
	}

	if err := h.setSessionUser(w, r, user); err != nil {
		h.log.Error("failed to save session", slog.Any("error", err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type createListingPage struct {
	User  *SessionUser
	Error string
}

func (h *Handler) createListingForm(w http.ResponseWriter, r *http.Request) {
	user, _ := h.currentUser(r)
	h.render(w, "create-listing", createListingPage{User: user})
}

func (h *Handler) createListing(w http.ResponseWriter, r *http.Request) {
	user, _ := h.currentUser(r)

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.render(w, "create-listing", createListingPage{User: user, Error: "Invalid form"})
		return
	}

	var imageURL string
	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close()
		if h.uploads != nil {
			uploaded, upErr := h.uploads.UploadImage(r.Context(), file)
			if upErr != nil {
				h.log.Error("image upload failed", slog.Any("error", upErr))
				h.render(w, "create-listing", createListingPage{User: user, Error: "Failed to upload image"})
				return
			}
			imageURL = uploaded.URL
		}
	}

	price, _ := strconv.ParseFloat(r.PostFormValue("price"), 64)
	quantity, _ := strconv.Atoi(r.PostFormValue("quantityAvailable"))

	_, err := h.listings.Create(r.Context(), user.UserID, service.NewListingInput{
		Title:             r.PostFormValue("title"),
		Description:       r.PostFormValue("description"),
		Price:             price,
		QuantityAvailable: quantity,
		ImageURL:          imageURL,
	})
	if err != nil {
		if errors.Is(err, service.ErrTitleRequired) {
			h.render(w, "create-listing", createListingPage{User: user, Error: "Title required"})
			return
		}
		h.log.Error("failed to create listing", slog.Any("error", err))
		h.render(w, "create-listing", createListingPage{User: user, Error: "Failed to create listing"})
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type listingPage struct {
	User    *SessionUser
	Listing *models.Listing
	Error   string
}

func (h *Handler) listingDetail(w http.ResponseWriter, r *http.Request) {
	user, _ := h.currentUser(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}

	listing, err := h.listings.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrListingNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to fetch listing", slog.Any("error", err))
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	h.render(w, "listing", listingPage{User: user, Listing: listing})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := h.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	// Сверяем роль по базе, а не только по сессии
	user, err := h.users.GetUserByID(r.Context(), sessionUser.UserID)
	if err != nil || !user.Role.CanPlaceOrders() {
		http.Error(w, "Only students can order", http.StatusForbidden)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}

	qty, err := strconv.Atoi(r.PostFormValue("quantity"))
	if err != nil || qty < 1 {
		qty = 1
	}

	_, _, err = h.orders.PlaceOrder(r.Context(), id, sessionUser.UserID, qty)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientQuantity) {
			// Показываем страницу лота с актуальным остатком
			listing, getErr := h.listings.GetByID(r.Context(), id)
			if getErr != nil {
				http.Error(w, "Server error", http.StatusInternalServerError)
				return
			}
			h.render(w, "listing", listingPage{User: sessionUser, Listing: listing, Error: "Insufficient quantity"})
			return
		}
		if errors.Is(err, storage.ErrListingNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		h.log.Error("order failed", slog.Any("error", err))
		http.Error(w, "Order failed", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

type ordersPage struct {
	User   *SessionUser
	Orders []*models.Order
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	user, _ := h.currentUser(r)

	orders, err := h.orders.ListForUser(r.Context(), user.UserID, user.Role)
	if err != nil {
		h.log.Error("failed to fetch orders", slog.Any("error", err))
		http.Error(w, "Failed to fetch orders", http.StatusInternalServerError)
		return
	}

	h.render(w, "orders", ordersPage{User: user, Orders: orders})
}

// listingPrice форматирует цену для шаблонов.
func listingPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}
