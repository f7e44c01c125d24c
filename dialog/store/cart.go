package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	contractx "github.com/ordertalk/ordertalk/dialog/contract"
)

// OrderStore implements the cart and confirmed-order operations over the
// cart, product and confirmed_orders tables. Product names arriving here are
// already normalized by the dispatcher; the store still matches
// case-insensitively so two spellings never split one line.
type OrderStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewOrderStore(db *bun.DB) *OrderStore {
	return &OrderStore{db: db, now: time.Now}
}

func (s *OrderStore) Upsert(ctx context.Context, customerID int64, productName string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", contractx.ErrValidation)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		productID, err := findOrCreateProduct(ctx, tx, productName)
		if err != nil {
			return err
		}

		res, err := tx.NewUpdate().
			Model((*CartItem)(nil)).
			Set("quantity = quantity + ?", quantity).
			Where("customer_id = ?", customerID).
			Where("product_id = ?", productID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert cart line: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			return nil
		}

		item := &CartItem{CustomerID: customerID, ProductID: productID, Quantity: quantity}
		if _, err := tx.NewInsert().Model(item).Exec(ctx); err != nil {
			return fmt.Errorf("insert cart line: %w", err)
		}
		return nil
	})
}

func (s *OrderStore) SetQuantity(ctx context.Context, customerID int64, productName string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: quantity must be non-negative", contractx.ErrValidation)
	}
	// Quantity zero means the line goes away, it is never kept at zero.
	if quantity == 0 {
		return s.Remove(ctx, customerID, productName)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		productID, err := findOrCreateProduct(ctx, tx, productName)
		if err != nil {
			return err
		}

		res, err := tx.NewUpdate().
			Model((*CartItem)(nil)).
			Set("quantity = ?", quantity).
			Where("customer_id = ?", customerID).
			Where("product_id = ?", productID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("set cart quantity: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			return nil
		}

		item := &CartItem{CustomerID: customerID, ProductID: productID, Quantity: quantity}
		if _, err := tx.NewInsert().Model(item).Exec(ctx); err != nil {
			return fmt.Errorf("insert cart line: %w", err)
		}
		return nil
	})
}

func (s *OrderStore) Remove(ctx context.Context, customerID int64, productName string) error {
	normalized := strings.ToLower(strings.TrimSpace(productName))
	_, err := s.db.NewDelete().
		Model((*CartItem)(nil)).
		Where("customer_id = ?", customerID).
		Where("product_id IN (SELECT product_id FROM product WHERE lower(product_name) = ?)", normalized).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	return nil
}

func (s *OrderStore) Summary(ctx context.Context, customerID int64) ([]contractx.CartLine, error) {
	var lines []contractx.CartLine
	err := s.db.NewSelect().
		TableExpr("cart AS c").
		ColumnExpr("p.product_name AS product_name").
		ColumnExpr("c.quantity AS quantity").
		Join("JOIN product AS p ON p.product_id = c.product_id").
		Where("c.customer_id = ?", customerID).
		OrderExpr("c.cart_id ASC").
		Scan(ctx, &lines)
	if err != nil {
		return nil, fmt.Errorf("cart summary: %w", err)
	}
	return lines, nil
}

// Confirm copies every cart line into confirmed_orders under one reference
// and clears the cart, all in a single transaction.
func (s *OrderStore) Confirm(ctx context.Context, customerID int64) (string, error) {
	reference := uuid.NewString()
	orderDate := s.now().UTC()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var items []CartItem
		if err := tx.NewSelect().
			Model(&items).
			Where("customer_id = ?", customerID).
			OrderExpr("cart_id ASC").
			Scan(ctx); err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(items) == 0 {
			return contractx.ErrEmptyCart
		}

		orders := make([]ConfirmedOrder, 0, len(items))
		for _, item := range items {
			name, err := productName(ctx, tx, item.ProductID)
			if err != nil {
				return err
			}
			orders = append(orders, ConfirmedOrder{
				Reference:   reference,
				CustomerID:  customerID,
				ProductID:   item.ProductID,
				ProductName: name,
				Quantity:    item.Quantity,
				OrderDate:   orderDate,
			})
		}

		if _, err := tx.NewInsert().Model(&orders).Exec(ctx); err != nil {
			return fmt.Errorf("insert confirmed orders: %w", err)
		}

		if _, err := tx.NewDelete().
			Model((*CartItem)(nil)).
			Where("customer_id = ?", customerID).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return reference, nil
}

func findOrCreateProduct(ctx context.Context, tx bun.Tx, name string) (int64, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return 0, fmt.Errorf("%w: product name is empty", contractx.ErrValidation)
	}

	var p Product
	err := tx.NewSelect().
		Model(&p).
		Where("lower(product_name) = ?", normalized).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return p.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find product: %w", err)
	}

	p = Product{Name: normalized}
	if _, err := tx.NewInsert().Model(&p).Returning("product_id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	return p.ID, nil
}

func productName(ctx context.Context, tx bun.Tx, productID int64) (string, error) {
	var p Product
	err := tx.NewSelect().
		Model(&p).
		Where("product_id = ?", productID).
		Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("product name: %w", err)
	}
	return p.Name, nil
}
