package contract

import "context"

// Classifier turns raw user text into a ClassifiedIntent. Implementations
// must bound the call with a timeout and return an error wrapping
// ErrClassification on transport or decode failure.
type Classifier interface {
	Classify(ctx context.Context, text string) (ClassifiedIntent, error)
}

// Directory looks up and creates customer records. Names are matched
// case-insensitively; at most one record exists per normalized name.
type Directory interface {
	Find(ctx context.Context, name string) (*Customer, error)
	Create(ctx context.Context, name, phone, address, email string) (int64, error)
	Get(ctx context.Context, id int64) (*Customer, error)
	// Complete fills in columns that are still empty on an existing record;
	// populated columns stay untouched.
	Complete(ctx context.Context, id int64, fields map[string]string) error
}

// CartStore holds the active cart lines and committed orders for customers.
type CartStore interface {
	// Upsert adds quantity to an existing line or inserts a new one.
	Upsert(ctx context.Context, customerID int64, productName string, quantity int) error
	// SetQuantity overwrites a line's quantity; setting 0 removes the line.
	SetQuantity(ctx context.Context, customerID int64, productName string, quantity int) error
	// Remove deletes the line entirely regardless of quantity.
	Remove(ctx context.Context, customerID int64, productName string) error
	Summary(ctx context.Context, customerID int64) ([]CartLine, error)
	// Confirm commits all current lines as confirmed orders and clears the
	// cart, returning an order reference.
	Confirm(ctx context.Context, customerID int64) (string, error)
}
