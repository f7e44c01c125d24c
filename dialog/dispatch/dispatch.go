// Package dispatch maps a classified intent onto cart and order operations.
// The classifier's output is untrusted: product names are re-normalized here,
// absent quantities stay observable, and its SQL suggestion is discarded.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	contractx "github.com/ordertalk/ordertalk/dialog/contract"
	replyx "github.com/ordertalk/ordertalk/dialog/reply"
	statex "github.com/ordertalk/ordertalk/dialog/state"
)

// Result is the outcome of one dispatched intent.
type Result struct {
	Reply string

	// Missing lists customer fields the engine must re-collect through the
	// onboarding flow before the intent can complete.
	Missing []statex.Field

	// EndConversation marks the session for teardown.
	EndConversation bool
}

type Dispatcher struct {
	carts     contractx.CartStore
	directory contractx.Directory
}

func New(carts contractx.CartStore, directory contractx.Directory) (*Dispatcher, error) {
	if carts == nil {
		return nil, errors.New("cart store is required")
	}
	if directory == nil {
		return nil, errors.New("customer directory is required")
	}
	return &Dispatcher{carts: carts, directory: directory}, nil
}

// Dispatch executes the action for one classified intent against the store.
// ci.SQLQuery is never read: model-suggested SQL is advisory text, not an
// executable statement.
func (d *Dispatcher) Dispatch(ctx context.Context, customerID int64, ci contractx.ClassifiedIntent) (Result, error) {
	switch ci.Intent {
	case contractx.IntentNewOrder:
		return d.newOrder(ctx, customerID, ci.Products)
	case contractx.IntentModifyOrder:
		return d.modifyOrder(ctx, customerID, ci.Products)
	case contractx.IntentDeleteProduct:
		return d.deleteProducts(ctx, customerID, ci.Products)
	case contractx.IntentViewSummary:
		return d.viewSummary(ctx, customerID)
	case contractx.IntentConfirmOrder:
		return d.confirmOrder(ctx, customerID)
	case contractx.IntentCustomerDetails:
		return d.customerDetails(ctx, customerID)
	case contractx.IntentExit:
		return Result{Reply: replyx.Closing, EndConversation: true}, nil
	default:
		return Result{Reply: replyx.Unrecognized}, nil
	}
}

func (d *Dispatcher) newOrder(ctx context.Context, customerID int64, products []contractx.ProductRef) (Result, error) {
	var added []contractx.CartLine
	for _, p := range products {
		name := NormalizeProduct(p.ProductName)
		if name == "" {
			continue
		}
		quantity := 1
		if p.Quantity.Set {
			quantity = p.Quantity.Value
		}
		if quantity <= 0 {
			continue
		}
		if err := d.carts.Upsert(ctx, customerID, name, quantity); err != nil {
			return Result{}, fmt.Errorf("add %s: %w", name, err)
		}
		added = append(added, contractx.CartLine{ProductName: name, Quantity: quantity})
	}
	if len(added) == 0 {
		return Result{Reply: replyx.Unrecognized}, nil
	}
	return Result{Reply: replyx.Added(added)}, nil
}

func (d *Dispatcher) modifyOrder(ctx context.Context, customerID int64, products []contractx.ProductRef) (Result, error) {
	var (
		updated []contractx.CartLine
		skipped []string
	)
	for _, p := range products {
		name := NormalizeProduct(p.ProductName)
		if name == "" {
			continue
		}
		// A modify without a quantity is a no-op for that line, reported back.
		if !p.Quantity.Set {
			skipped = append(skipped, name)
			continue
		}
		if err := d.carts.SetQuantity(ctx, customerID, name, p.Quantity.Value); err != nil {
			return Result{}, fmt.Errorf("modify %s: %w", name, err)
		}
		updated = append(updated, contractx.CartLine{ProductName: name, Quantity: p.Quantity.Value})
	}
	if len(updated) == 0 && len(skipped) == 0 {
		return Result{Reply: replyx.Unrecognized}, nil
	}
	return Result{Reply: replyx.Modified(updated, skipped)}, nil
}

func (d *Dispatcher) deleteProducts(ctx context.Context, customerID int64, products []contractx.ProductRef) (Result, error) {
	var removed []string
	for _, p := range products {
		name := NormalizeProduct(p.ProductName)
		if name == "" {
			continue
		}
		// Quantity is ignored: deletion is full removal of the line.
		if err := d.carts.Remove(ctx, customerID, name); err != nil {
			return Result{}, fmt.Errorf("remove %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	if len(removed) == 0 {
		return Result{Reply: replyx.Unrecognized}, nil
	}
	return Result{Reply: replyx.Removed(removed)}, nil
}

func (d *Dispatcher) viewSummary(ctx context.Context, customerID int64) (Result, error) {
	lines, err := d.carts.Summary(ctx, customerID)
	if err != nil {
		return Result{}, fmt.Errorf("summary: %w", err)
	}
	return Result{Reply: replyx.Summary(lines)}, nil
}

func (d *Dispatcher) confirmOrder(ctx context.Context, customerID int64) (Result, error) {
	customer, err := d.directory.Get(ctx, customerID)
	if err != nil {
		return Result{}, fmt.Errorf("load customer: %w", err)
	}
	if missing := completableMissing(customer); len(missing) > 0 {
		return Result{
			Reply:   replyx.MissingFieldsIntro(missing),
			Missing: missing,
		}, nil
	}

	lines, err := d.carts.Summary(ctx, customerID)
	if err != nil {
		return Result{}, fmt.Errorf("summary before confirm: %w", err)
	}
	if len(lines) == 0 {
		return Result{Reply: replyx.EmptyCart}, nil
	}

	reference, err := d.carts.Confirm(ctx, customerID)
	if err != nil {
		if errors.Is(err, contractx.ErrEmptyCart) {
			return Result{Reply: replyx.EmptyCart}, nil
		}
		return Result{}, fmt.Errorf("confirm order: %w", err)
	}
	return Result{Reply: replyx.Confirmed(reference, lines)}, nil
}

func (d *Dispatcher) customerDetails(ctx context.Context, customerID int64) (Result, error) {
	customer, err := d.directory.Get(ctx, customerID)
	if err != nil {
		return Result{}, fmt.Errorf("load customer: %w", err)
	}
	if missing := completableMissing(customer); len(missing) > 0 {
		return Result{
			Reply:   replyx.MissingFieldsIntro(missing),
			Missing: missing,
		}, nil
	}
	return Result{Reply: replyx.CustomerReport(customer)}, nil
}

// completableMissing maps the customer's empty fields to collectable session
// fields. Name is the directory key and can never be empty on a stored row.
func completableMissing(c *contractx.Customer) []statex.Field {
	var fields []statex.Field
	for _, name := range c.MissingFields() {
		switch name {
		case "phone_number":
			fields = append(fields, statex.FieldPhone)
		case "address":
			fields = append(fields, statex.FieldAddress)
		case "email":
			fields = append(fields, statex.FieldEmail)
		}
	}
	return fields
}

// NormalizeProduct lowercases, trims and singularizes a product name so that
// "2 bananas" and "1 banana" land on the same cart line. This happens here,
// not in the classifier, whose output is not consistent across turns.
func NormalizeProduct(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return ""
	}
	return inflection.Singular(normalized)
}
