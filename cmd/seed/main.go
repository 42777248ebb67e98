package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	"github.com/linemk/surplus-market/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// Демо-данные для локальной разработки: один ресторан и пара лотов.
// Сидер очищает таблицы, запускать только на пустой/тестовой базе.
func main() {
	cfg := config.MustLoad()

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	for _, table := range []string{"orders", "listings", "users"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			log.Fatalf("failed to clear %s: %v", table, err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var restaurantID int64
	err = db.QueryRow(
		`INSERT INTO users (name, email, pass_hash, role) VALUES ($1, $2, $3, $4) RETURNING id`,
		"Demo Restaurant", "rest@example.com", hash, "restaurant",
	).Scan(&restaurantID)
	if err != nil {
		log.Fatalf("failed to insert restaurant: %v", err)
	}

	listings := []struct {
		title       string
		description string
		price       float64
		quantity    int
	}{
		{"Veg Meal Box", "Leftover veg meals", 30, 5},
		{"Bread Pack", "Day-old bread", 20, 8},
	}

	for _, l := range listings {
		_, err := db.Exec(
			`INSERT INTO listings (restaurant_id, title, description, price, quantity_available) VALUES ($1, $2, $3, $4, $5)`,
			restaurantID, l.title, l.description, l.price, l.quantity,
		)
		if err != nil {
			log.Fatalf("failed to insert listing %q: %v", l.title, err)
		}
	}

	log.Println("Seed data created: rest@example.com / password123")
}
