package models

import "time"

// Listing представляет лот излишков еды, выставленный рестораном.
// После создания меняется только QuantityAvailable (списывается заказами),
// инвариант: QuantityAvailable >= 0 при любом числе конкурентных покупок.
type Listing struct {
	ID                int64     `json:"id"`
	RestaurantID      int64     `json:"restaurantId"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Price             float64   `json:"price"`
	QuantityAvailable int       `json:"quantityAvailable"`
	ImageURL          string    `json:"imageUrl"`
	CreatedAt         time.Time `json:"createdAt"`
}
