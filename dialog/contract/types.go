package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Intent is the classified category of a user's order request.
type Intent string

const (
	IntentNewOrder        Intent = "new_order"
	IntentModifyOrder     Intent = "modify_order"
	IntentDeleteProduct   Intent = "delete_product"
	IntentViewSummary     Intent = "view_summary"
	IntentConfirmOrder    Intent = "confirm_order"
	IntentCustomerDetails Intent = "customer_details"
	IntentExit            Intent = "exit"
	IntentUnrecognized    Intent = "unrecognized"
)

// ParseIntent maps the classifier's free-text intent label to a typed Intent.
// Anything it does not recognize collapses to IntentUnrecognized.
func ParseIntent(label string) Intent {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "new order":
		return IntentNewOrder
	case "modify order":
		return IntentModifyOrder
	case "delete product":
		return IntentDeleteProduct
	case "view summary":
		return IntentViewSummary
	case "confirm order":
		return IntentConfirmOrder
	case "customer details":
		return IntentCustomerDetails
	case "exit":
		return IntentExit
	default:
		return IntentUnrecognized
	}
}

// Quantity is an optional non-negative quantity. The classifier emits it as a
// number, a numeric string, an empty string or not at all; absence must stay
// observable, so a zero value means "unspecified", not zero items.
type Quantity struct {
	Value int
	Set   bool
}

func NewQuantity(v int) Quantity {
	return Quantity{Value: v, Set: true}
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*q = Quantity{}
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*q = Quantity{}
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%w: quantity %q is not a number", ErrSchemaViolation, s)
		}
		if n < 0 {
			return fmt.Errorf("%w: quantity must be non-negative", ErrSchemaViolation)
		}
		*q = Quantity{Value: n, Set: true}
		return nil
	}

	var n int
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("%w: quantity %s is not an integer", ErrSchemaViolation, string(trimmed))
	}
	if n < 0 {
		return fmt.Errorf("%w: quantity must be non-negative", ErrSchemaViolation)
	}
	*q = Quantity{Value: n, Set: true}
	return nil
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.Set {
		return []byte(`""`), nil
	}
	return json.Marshal(q.Value)
}

// ProductRef is one product mention extracted by the classifier.
type ProductRef struct {
	ProductName string   `json:"product_name"`
	Quantity    Quantity `json:"quantity"`
}

// CustomerDetails is the classifier's echo of customer fields. Untrusted;
// only used for reporting, never persisted directly.
type CustomerDetails struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	Email       string `json:"email"`
}

// ClassifiedIntent is the typed result of one classification call. It is an
// externally produced structure: every field may be absent.
type ClassifiedIntent struct {
	Intent          Intent
	UserResponse    string
	Products        []ProductRef
	CustomerDetails *CustomerDetails
	ErrorMessage    string

	// SQLQuery carries the model's SQL suggestion verbatim. It is never
	// executed or interpolated anywhere; the dispatcher discards it.
	SQLQuery string
}

// CartLine is one line of the active cart.
type CartLine struct {
	ProductName string
	Quantity    int
}

// Customer is an immutable customer record from the directory.
type Customer struct {
	ID          int64
	Name        string
	PhoneNumber string
	Address     string
	Email       string
}

// MissingFields lists the customer fields that are empty, in prompt order.
func (c *Customer) MissingFields() []string {
	if c == nil {
		return []string{"name", "phone_number", "address", "email"}
	}
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.PhoneNumber) == "" {
		missing = append(missing, "phone_number")
	}
	if strings.TrimSpace(c.Address) == "" {
		missing = append(missing, "address")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	return missing
}
