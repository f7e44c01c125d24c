package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/ordertalk/ordertalk/dialog/contract"
)

const pgUniqueViolation = "23505"

// Directory implements the customer directory over the customer table.
// Names are stored lowercase; lookup is case-insensitive and at most one
// record exists per normalized name (enforced by a unique index on
// lower(name), with the race surfaced as ErrConflict).
type Directory struct {
	db bun.IDB
}

func NewDirectory(db bun.IDB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) Find(ctx context.Context, name string) (*contractx.Customer, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, fmt.Errorf("%w: customer name is empty", contractx.ErrValidation)
	}

	var c Customer
	err := d.db.NewSelect().
		Model(&c).
		Where("lower(name) = ?", normalized).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contractx.ErrNotFound
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}

	return toContractCustomer(&c), nil
}

func (d *Directory) Get(ctx context.Context, id int64) (*contractx.Customer, error) {
	var c Customer
	err := d.db.NewSelect().
		Model(&c).
		Where("customer_id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contractx.ErrNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return toContractCustomer(&c), nil
}

func (d *Directory) Create(ctx context.Context, name, phone, address, email string) (int64, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return 0, fmt.Errorf("%w: customer name is empty", contractx.ErrValidation)
	}

	c := &Customer{
		Name:        normalized,
		PhoneNumber: strings.TrimSpace(phone),
		Address:     strings.TrimSpace(address),
		Email:       strings.TrimSpace(email),
	}

	_, err := d.db.NewInsert().Model(c).Returning("customer_id").Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: customer %q", contractx.ErrConflict, normalized)
		}
		return 0, fmt.Errorf("create customer: %w", err)
	}
	return c.ID, nil
}

// Complete fills in customer fields that are still empty. Populated columns
// are left untouched; the record stays immutable once whole.
func (d *Directory) Complete(ctx context.Context, id int64, fields map[string]string) error {
	for column, value := range fields {
		switch column {
		case "phone_number", "address", "email":
		default:
			return fmt.Errorf("%w: column %q is not completable", contractx.ErrValidation, column)
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		_, err := d.db.NewUpdate().
			Model((*Customer)(nil)).
			Set("? = ?", bun.Ident(column), value).
			Where("customer_id = ?", id).
			Where("coalesce(?, '') = ''", bun.Ident(column)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("complete customer field %s: %w", column, err)
		}
	}
	return nil
}

// NormalizeName lowercases and trims a customer name for directory matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func toContractCustomer(c *Customer) *contractx.Customer {
	return &contractx.Customer{
		ID:          c.ID,
		Name:        c.Name,
		PhoneNumber: c.PhoneNumber,
		Address:     c.Address,
		Email:       c.Email,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation
}
