package store

import (
	"time"

	"github.com/uptrace/bun"
)

type Customer struct {
	bun.BaseModel `bun:"table:customer"`

	ID          int64  `bun:"customer_id,pk,autoincrement"`
	Name        string `bun:"name,notnull"`
	PhoneNumber string `bun:"phone_number"`
	Address     string `bun:"address"`
	Email       string `bun:"email"`
}

type Product struct {
	bun.BaseModel `bun:"table:product"`

	ID    int64   `bun:"product_id,pk,autoincrement"`
	Name  string  `bun:"product_name,notnull"`
	Price float64 `bun:"price"`
}

type CartItem struct {
	bun.BaseModel `bun:"table:cart"`

	ID         int64 `bun:"cart_id,pk,autoincrement"`
	CustomerID int64 `bun:"customer_id,notnull"`
	ProductID  int64 `bun:"product_id,notnull"`
	Quantity   int   `bun:"quantity,notnull"`
}

type ConfirmedOrder struct {
	bun.BaseModel `bun:"table:confirmed_orders"`

	ID          int64     `bun:"order_id,pk,autoincrement"`
	Reference   string    `bun:"reference,notnull"`
	CustomerID  int64     `bun:"customer_id,notnull"`
	ProductID   int64     `bun:"product_id,notnull"`
	ProductName string    `bun:"product_name,notnull"`
	Quantity    int       `bun:"quantity,notnull"`
	OrderDate   time.Time `bun:"order_date,notnull"`
}
